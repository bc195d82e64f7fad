package policies

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	erand "golang.org/x/exp/rand"

	"github.com/zeu5/rl-trainer/core"
)

type UCBZeroParams struct {
	StateSize int
	Actions   int
	// Horizon bounds the value of a state and is the optimistic initial value
	Horizon   int
	Episodes  int
	Constant  float64
	Epsilon   float64
	Interval  int
	BatchSize int
	// 0 seeds from the clock
	Seed uint64
}

// UCBZeroPolicy is optimistic tabular Q-learning with a visit count bonus.
// The learning rate of a state-action pair decays with its visits as
// (H+1)/(H+t).
type UCBZeroPolicy struct {
	qTable  *QTable
	visits  *QTable
	actions []string
	rand    *erand.Rand
	params  UCBZeroParams

	eta float64
}

var (
	_ core.Agent       = &UCBZeroPolicy{}
	_ core.Snapshotter = &UCBZeroPolicy{}
)

func NewUCBZeroPolicy(params UCBZeroParams) *UCBZeroPolicy {
	eta := math.Log(
		float64(params.Horizon) * float64(params.Actions) * float64(params.Episodes) * float64(params.StateSize),
	)
	if eta < 0 || math.IsNaN(eta) || math.IsInf(eta, 0) {
		eta = 0
	}
	seed := params.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	actions := make([]string, params.Actions)
	for i := range actions {
		actions[i] = actionKey(i)
	}

	return &UCBZeroPolicy{
		qTable:  NewQTable(),
		visits:  NewQTable(),
		actions: actions,
		rand:    erand.New(erand.NewSource(seed)),
		params:  params,

		eta: eta,
	}
}

func (b *UCBZeroPolicy) horizon() float64 {
	return float64(b.params.Horizon)
}

func (b *UCBZeroPolicy) SelectAction(obs core.Observation) (core.Action, error) {
	if b.rand.Float64() < b.params.Epsilon {
		return b.rand.Intn(b.params.Actions), nil
	}
	maxAction, _ := b.qTable.MaxAmong(stateKey(obs), b.actions, b.horizon())
	for i, a := range b.actions {
		if a == maxAction {
			return i, nil
		}
	}
	return 0, nil
}

func (b *UCBZeroPolicy) Update(batch *core.Batch) error {
	if batch == nil {
		return ErrBatchRequired
	}
	for _, t := range batch.Transitions {
		action, ok := t.Action.(int)
		if !ok || action < 0 || action >= b.params.Actions {
			return fmt.Errorf("ucb expects integer actions within the action space, got %v", t.Action)
		}
		stateHash := stateKey(t.Observation)
		actionHash := b.actions[action]
		visits := b.visits.Get(stateHash, actionHash, 0) + 1
		b.visits.Set(stateHash, actionHash, visits)

		nextStateVal := 0.0
		if !t.Done {
			_, nextStateVal = b.qTable.MaxAmong(stateKey(t.NextObservation), b.actions, b.horizon())
			if nextStateVal > b.horizon() {
				nextStateVal = b.horizon()
			}
		}

		bonus := b.params.Constant * math.Sqrt((math.Pow(b.horizon(), 3)+b.eta)/visits)
		alphaT := (b.horizon() + 1) / (b.horizon() + visits)
		curVal := b.qTable.Get(stateHash, actionHash, b.horizon())

		newVal := (1-alphaT)*curVal + alphaT*(t.Reward+nextStateVal+bonus)
		b.qTable.Set(stateHash, actionHash, newVal)
	}
	return nil
}

func (b *UCBZeroPolicy) UpdateInterval() int {
	return b.params.Interval
}

func (b *UCBZeroPolicy) BatchSize() int {
	return b.params.BatchSize
}

// SaveState writes the visit counts on the first line followed by the q-table
func (b *UCBZeroPolicy) SaveState(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(b.visits.table); err != nil {
		return err
	}
	return b.qTable.Write(w)
}

func (b *UCBZeroPolicy) LoadState(r io.Reader) error {
	visits := NewQTable()
	dec := json.NewDecoder(r)
	if err := dec.Decode(&visits.table); err != nil {
		return fmt.Errorf("error reading visit counts: %w", err)
	}
	if visits.table == nil {
		visits.table = make(map[string]map[string]float64)
	}
	qTable := NewQTable()
	if err := qTable.Read(io.MultiReader(dec.Buffered(), r)); err != nil {
		return err
	}
	b.visits = visits
	b.qTable = qTable
	return nil
}

// Visits returns how many updates the state-action pair received
func (b *UCBZeroPolicy) Visits(obs core.Observation, action int) int {
	return int(b.visits.Get(stateKey(obs), actionKey(action), 0))
}
