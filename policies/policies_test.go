package policies

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zeu5/rl-trainer/core"
)

type cell struct {
	X, Y int
}

type recordingPriorities struct {
	indices    []int
	priorities []float64
}

func (r *recordingPriorities) UpdatePriorities(indices []int, priorities []float64) {
	r.indices = append(r.indices, indices...)
	r.priorities = append(r.priorities, priorities...)
}

func TestQLearningUpdate(t *testing.T) {
	q := NewQLearning(QLearningParams{Actions: 2, Alpha: 0.5, Discount: 0.9, Interval: 1, BatchSize: 2, Seed: 1})
	prio := &recordingPriorities{}
	q.WithPriorities(prio)

	batch := core.NewBatch(2)
	batch.Add(3, core.Transition{Observation: cell{0, 0}, Action: 1, NextObservation: cell{0, 1}, Reward: 1})
	batch.Add(5, core.Transition{Observation: cell{0, 1}, Action: 0, NextObservation: cell{0, 2}, Reward: 2, Done: true})
	if err := q.Update(batch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := q.Value(cell{0, 0}, 1); got != 0.5 {
		t.Errorf("Q(s0, 1) = %v, want 0.5", got)
	}
	if got := q.Value(cell{0, 1}, 0); got != 1 {
		t.Errorf("Q(s1, 0) = %v, want 1", got)
	}
	if len(prio.indices) != 2 || prio.indices[0] != 3 || prio.indices[1] != 5 {
		t.Errorf("unexpected priority indices %v", prio.indices)
	}
	if prio.priorities[0] != 1 || prio.priorities[1] != 2 {
		t.Errorf("unexpected priorities %v", prio.priorities)
	}

	// the bootstrapped target uses the updated next state value
	batch = core.NewBatch(1)
	batch.Add(0, core.Transition{Observation: cell{0, 0}, Action: 1, NextObservation: cell{0, 1}, Reward: 0})
	if err := q.Update(batch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	alpha, discount, cur := 0.5, 0.9, 0.5
	target := 0.0
	target += discount * 1
	if got, want := q.Value(cell{0, 0}, 1), cur+alpha*(target-cur); got != want {
		t.Errorf("Q(s0, 1) = %v, want %v", got, want)
	}
}

func TestQLearningRequiresBatch(t *testing.T) {
	q := NewQLearning(QLearningParams{Actions: 2, Interval: 1, BatchSize: 1, Seed: 1})
	if err := q.Update(nil); !errors.Is(err, ErrBatchRequired) {
		t.Errorf("expected ErrBatchRequired, got %v", err)
	}
	batch := core.NewBatch(1)
	batch.Add(0, core.Transition{Observation: cell{}, Action: 7})
	if err := q.Update(batch); err == nil {
		t.Error("expected an error for an action outside the action space")
	}
}

func TestQLearningGreedy(t *testing.T) {
	q := NewQLearning(QLearningParams{Actions: 3, Alpha: 1, Interval: 1, BatchSize: 1, Seed: 1})
	batch := core.NewBatch(1)
	batch.Add(0, core.Transition{Observation: cell{1, 1}, Action: 2, Reward: 5, Done: true})
	if err := q.Update(batch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	action, err := q.SelectAction(cell{1, 1})
	if err != nil {
		t.Fatalf("SelectAction: %v", err)
	}
	if action != 2 {
		t.Errorf("expected greedy action 2, got %v", action)
	}
	// ties go to the first action
	if got := q.Greedy(cell{9, 9}); got != 0 {
		t.Errorf("expected action 0 for an unseen state, got %d", got)
	}
}

func TestQLearningSnapshot(t *testing.T) {
	q := NewQLearning(QLearningParams{Actions: 2, Alpha: 1, Interval: 1, BatchSize: 1, Seed: 1})
	batch := core.NewBatch(2)
	batch.Add(0, core.Transition{Observation: cell{0, 0}, Action: 1, Reward: 3, Done: true})
	batch.Add(1, core.Transition{Observation: cell{2, 0}, Action: 0, Reward: -1, Done: true})
	q.Update(batch)

	buf := new(bytes.Buffer)
	if err := q.SaveState(buf); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	restored := NewQLearning(QLearningParams{Actions: 2, Interval: 1, BatchSize: 1, Seed: 2})
	if err := restored.LoadState(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	for _, obs := range []cell{{0, 0}, {2, 0}} {
		for a := 0; a < 2; a++ {
			if q.Value(obs, a) != restored.Value(obs, a) {
				t.Errorf("value mismatch at %v/%d", obs, a)
			}
		}
	}
}

func TestQTableReadRejectsGarbage(t *testing.T) {
	if err := NewQTable().Read(bytes.NewBufferString("{\"state\": 3}\n")); err == nil {
		t.Error("expected an error")
	}
}

func TestSoftMaxNegPolicy(t *testing.T) {
	s := NewSoftMaxNegPolicy(SoftMaxNegParams{Actions: 2, Alpha: 0.5, Gamma: 0.5, Interval: 2, Seed: 3})
	if s.BatchSize() != 0 || s.UpdateInterval() != 2 {
		t.Fatalf("unexpected cadence")
	}
	for _, obs := range []cell{{0, 0}, {0, 1}} {
		a, err := s.SelectAction(obs)
		if err != nil {
			t.Fatalf("SelectAction: %v", err)
		}
		if a.(int) < 0 || a.(int) > 1 {
			t.Fatalf("action out of range: %v", a)
		}
	}
	if len(s.trace) != 0 {
		t.Fatalf("selecting actions must not record steps, got %d", len(s.trace))
	}
	s.ObserveTransition(core.Transition{Observation: cell{0, 0}, Action: 1, NextObservation: cell{0, 1}})
	s.ObserveTransition(core.Transition{Observation: cell{0, 1}, Action: 0, NextObservation: cell{0, 0}})
	if len(s.trace) != 2 {
		t.Fatalf("expected 2 recorded steps, got %d", len(s.trace))
	}
	if err := s.Update(nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(s.trace) != 0 {
		t.Error("trace must be consumed by the update")
	}
	if s.freq[stateKey(cell{0, 1})] != 1 || s.freq[stateKey(cell{0, 0})] != 1 {
		t.Errorf("unexpected visit counts %v", s.freq)
	}

	buf := new(bytes.Buffer)
	if err := s.SaveState(buf); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	restored := NewSoftMaxNegPolicy(SoftMaxNegParams{Actions: 2, Seed: 4})
	if err := restored.LoadState(buf); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if restored.freq[stateKey(cell{0, 1})] != 1 {
		t.Errorf("visit counts not restored: %v", restored.freq)
	}
	if restored.qTable.Size() != s.qTable.Size() {
		t.Errorf("q-table not restored: %d vs %d states", restored.qTable.Size(), s.qTable.Size())
	}
}

func TestSoftMaxNegPolicyAcrossEpisodes(t *testing.T) {
	s := NewSoftMaxNegPolicy(SoftMaxNegParams{Actions: 2, Alpha: 0.5, Gamma: 0.5, Interval: 1, Seed: 3})
	start, goal := cell{0, 0}, cell{0, 1}

	// the first episode ends in the goal, the second starts over
	s.SelectAction(start)
	if err := s.ObserveTransition(core.Transition{Observation: start, Action: 1, NextObservation: goal, Done: true}); err != nil {
		t.Fatalf("ObserveTransition: %v", err)
	}
	s.SelectAction(start)
	s.SelectAction(start)
	if err := s.Update(nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	want := map[string]int{stateKey(goal): 1}
	if diff := cmp.Diff(want, s.freq); diff != "" {
		t.Errorf("visit counts mismatch (-want +got):\n%s", diff)
	}
	if got := s.qTable.Get(stateKey(start), actionKey(1), 0); got != -0.5 {
		t.Errorf("expected the terminal step to be learned, got %v", got)
	}
	if s.qTable.Exists(stateKey(goal)) {
		t.Error("no step may start from the terminal state")
	}

	if err := s.ObserveTransition(core.Transition{Observation: start, Action: "up", NextObservation: goal}); err == nil {
		t.Error("expected an error for a non integer action")
	}
}

func TestRandomPolicy(t *testing.T) {
	r := NewRandomPolicy(3, 5)
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		a, _ := r.SelectAction(nil)
		seen[a.(int)] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected all 3 actions, got %v", seen)
	}
}

func TestUCBZeroPolicy(t *testing.T) {
	params := UCBZeroParams{Actions: 2, Horizon: 2, Interval: 1, BatchSize: 1, Seed: 1}
	u := NewUCBZeroPolicy(params)
	if err := u.Update(nil); !errors.Is(err, ErrBatchRequired) {
		t.Fatalf("expected ErrBatchRequired, got %v", err)
	}

	batch := core.NewBatch(2)
	batch.Add(0, core.Transition{Observation: cell{0, 0}, Action: 0, Reward: -5, Done: true})
	batch.Add(1, core.Transition{Observation: cell{1, 0}, Action: 1, NextObservation: cell{2, 0}, Reward: 1})
	if err := u.Update(batch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := u.qTable.Get(stateKey(cell{0, 0}), "0", 0); got != -5 {
		t.Errorf("terminal update = %v, want -5", got)
	}
	if got := u.qTable.Get(stateKey(cell{1, 0}), "1", 0); got != 3 {
		t.Errorf("bootstrapped update = %v, want reward plus the optimistic value 3", got)
	}
	a, _ := u.SelectAction(cell{0, 0})
	if a != 1 {
		t.Errorf("expected the untried optimistic action, got %v", a)
	}

	buf := new(bytes.Buffer)
	if err := u.SaveState(buf); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	restored := NewUCBZeroPolicy(params)
	if err := restored.LoadState(buf); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if restored.Visits(cell{0, 0}, 0) != 1 || restored.Visits(cell{1, 0}, 1) != 1 {
		t.Error("visit counts not restored")
	}
	if restored.qTable.Get(stateKey(cell{0, 0}), "0", 0) != -5 {
		t.Error("q-table not restored")
	}
}
