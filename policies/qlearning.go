package policies

import (
	"errors"
	"io"
	"math"
	"time"

	erand "golang.org/x/exp/rand"

	"github.com/zeu5/rl-trainer/core"
	"github.com/zeu5/rl-trainer/replay"
)

var ErrBatchRequired = errors.New("q-learning needs a batch of transitions")

type QLearningParams struct {
	Actions   int
	Alpha     float64
	Discount  float64
	Epsilon   float64
	Interval  int
	BatchSize int
	// 0 seeds from the clock
	Seed uint64
}

// QLearning is an epsilon-greedy tabular agent trained off-policy from
// replayed batches. Actions are the integers [0, Actions).
type QLearning struct {
	params     QLearningParams
	qTable     *QTable
	actions    []string
	rand       *erand.Rand
	priorities replay.PriorityUpdater
}

var (
	_ core.Agent       = &QLearning{}
	_ core.Snapshotter = &QLearning{}
)

func NewQLearning(params QLearningParams) *QLearning {
	seed := params.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	actions := make([]string, params.Actions)
	for i := range actions {
		actions[i] = actionKey(i)
	}
	return &QLearning{
		params:  params,
		qTable:  NewQTable(),
		actions: actions,
		rand:    erand.New(erand.NewSource(seed)),
	}
}

// WithPriorities makes the agent report absolute TD errors of every batch
func (q *QLearning) WithPriorities(p replay.PriorityUpdater) *QLearning {
	q.priorities = p
	return q
}

func (q *QLearning) SelectAction(obs core.Observation) (core.Action, error) {
	if q.params.Epsilon > 0 && q.rand.Float64() < q.params.Epsilon {
		return q.rand.Intn(q.params.Actions), nil
	}
	return q.Greedy(obs), nil
}

// Greedy returns the action with the highest value without exploring
func (q *QLearning) Greedy(obs core.Observation) int {
	best, _ := q.qTable.MaxAmong(stateKey(obs), q.actions, 0)
	for i, a := range q.actions {
		if a == best {
			return i
		}
	}
	return 0
}

func (q *QLearning) Update(batch *core.Batch) error {
	if batch == nil {
		return ErrBatchRequired
	}
	tdErrors := make([]float64, batch.Len())
	for i, t := range batch.Transitions {
		action, ok := t.Action.(int)
		if !ok || action < 0 || action >= q.params.Actions {
			return errors.New("q-learning expects integer actions within the action space")
		}
		state := stateKey(t.Observation)
		target := t.Reward
		if !t.Done {
			_, next := q.qTable.MaxAmong(stateKey(t.NextObservation), q.actions, 0)
			target += q.params.Discount * next
		}
		cur := q.qTable.Get(state, q.actions[action], 0)
		td := target - cur
		q.qTable.Set(state, q.actions[action], cur+q.params.Alpha*td)
		tdErrors[i] = math.Abs(td)
	}
	if q.priorities != nil {
		q.priorities.UpdatePriorities(batch.Indices, tdErrors)
	}
	return nil
}

func (q *QLearning) UpdateInterval() int {
	return q.params.Interval
}

func (q *QLearning) BatchSize() int {
	return q.params.BatchSize
}

func (q *QLearning) SaveState(w io.Writer) error {
	return q.qTable.Write(w)
}

func (q *QLearning) LoadState(r io.Reader) error {
	return q.qTable.Read(r)
}

// Value returns the current estimate for the state-action pair
func (q *QLearning) Value(obs core.Observation, action int) float64 {
	return q.qTable.Get(stateKey(obs), actionKey(action), 0)
}
