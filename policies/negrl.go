package policies

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/zeu5/rl-trainer/core"
)

type SoftMaxNegParams struct {
	Actions     int
	Alpha       float64
	Gamma       float64
	Temperature float64
	Interval    int
	// 0 seeds from the clock
	Seed uint64
}

type negStep struct {
	state  string
	action int
	next   string
}

// SoftMaxNegPolicy is an on-policy exploration agent. It learns from the
// transitions observed since its last update with a negative reward that grows with the number of visits to
// the next state, and picks actions with a softmax over the q-values.
// It ignores environment rewards.
type SoftMaxNegPolicy struct {
	params SoftMaxNegParams
	qTable *QTable
	freq   map[string]int

	actions []string
	trace   []negStep

	rand erand.Source
}

var (
	_ core.Agent              = &SoftMaxNegPolicy{}
	_ core.Snapshotter        = &SoftMaxNegPolicy{}
	_ core.TransitionObserver = &SoftMaxNegPolicy{}
)

func NewSoftMaxNegPolicy(params SoftMaxNegParams) *SoftMaxNegPolicy {
	seed := params.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixMilli())
	}
	if params.Temperature <= 0 {
		params.Temperature = 1
	}
	actions := make([]string, params.Actions)
	for i := range actions {
		actions[i] = actionKey(i)
	}
	return &SoftMaxNegPolicy{
		params:  params,
		qTable:  NewQTable(),
		freq:    make(map[string]int),
		actions: actions,
		trace:   make([]negStep, 0),
		rand:    erand.NewSource(seed),
	}
}

func (s *SoftMaxNegPolicy) SelectAction(obs core.Observation) (core.Action, error) {
	state := stateKey(obs)
	vals := make([]float64, len(s.actions))
	largest := math.Inf(-1)
	for i, a := range s.actions {
		vals[i] = s.qTable.Get(state, a, 0) / s.params.Temperature
		if vals[i] > largest {
			largest = vals[i]
		}
	}
	// Normalizing
	sum := 0.0
	for i := range vals {
		vals[i] = math.Exp(vals[i] - largest)
		sum += vals[i]
	}
	for i := range vals {
		vals[i] = vals[i] / sum
	}
	i, ok := sampleuv.NewWeighted(vals, s.rand).Take()
	if !ok {
		return nil, fmt.Errorf("no action to sample in state %s", state)
	}
	return i, nil
}

// ObserveTransition records a step taken in the environment. Steps never
// span an episode boundary, the terminal state is the next state of the
// last step of an episode.
func (s *SoftMaxNegPolicy) ObserveTransition(t core.Transition) error {
	action, ok := t.Action.(int)
	if !ok || action < 0 || action >= len(s.actions) {
		return fmt.Errorf("softmax expects integer actions within the action space, got %v", t.Action)
	}
	s.trace = append(s.trace, negStep{
		state:  stateKey(t.Observation),
		action: action,
		next:   stateKey(t.NextObservation),
	})
	return nil
}

// Update replays the steps observed since the previous update. The batch is
// always nil: this agent runs without an experience buffer.
func (s *SoftMaxNegPolicy) Update(_ *core.Batch) error {
	for _, step := range s.trace {
		s.freq[step.next]++
		reward := float64(-1 * s.freq[step.next])

		curVal := s.qTable.Get(step.state, s.actions[step.action], 0)
		max := float64(0)
		if s.qTable.Exists(step.next) {
			_, max = s.qTable.MaxAmong(step.next, s.actions, 0)
		}
		nextVal := (1-s.params.Alpha)*curVal + s.params.Alpha*(reward+s.params.Gamma*max)
		s.qTable.Set(step.state, s.actions[step.action], nextVal)
	}
	s.trace = s.trace[:0]
	return nil
}

func (s *SoftMaxNegPolicy) UpdateInterval() int {
	return s.params.Interval
}

func (s *SoftMaxNegPolicy) BatchSize() int {
	return 0
}

type softMaxNegState struct {
	Freq map[string]int `json:"freq"`
}

// SaveState writes the visit counts on the first line followed by the q-table
func (s *SoftMaxNegPolicy) SaveState(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(softMaxNegState{Freq: s.freq}); err != nil {
		return err
	}
	return s.qTable.Write(w)
}

func (s *SoftMaxNegPolicy) LoadState(r io.Reader) error {
	dec := json.NewDecoder(r)
	var state softMaxNegState
	if err := dec.Decode(&state); err != nil {
		return fmt.Errorf("error reading visit counts: %w", err)
	}
	if state.Freq == nil {
		state.Freq = make(map[string]int)
	}
	if err := s.qTable.Read(io.MultiReader(dec.Buffered(), r)); err != nil {
		return err
	}
	s.freq = state.Freq
	s.trace = s.trace[:0]
	return nil
}
