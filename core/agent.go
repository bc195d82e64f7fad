package core

import "io"

// Agent is the learner driven by the Trainer.
type Agent interface {
	// SelectAction picks the action to take for the observation
	SelectAction(Observation) (Action, error)
	// Update performs one learning update. The batch is nil when the
	// Trainer runs without an experience buffer (on-policy mode).
	Update(*Batch) error
	// UpdateInterval is the number of global steps between updates
	UpdateInterval() int
	// BatchSize is the number of transitions requested per update
	BatchSize() int
}

// Snapshotter is implemented by agents whose state can be checkpointed
type Snapshotter interface {
	SaveState(io.Writer) error
	LoadState(io.Reader) error
}

// TransitionObserver is an optional capability. An on-policy agent or a
// visualizer implementing it receives every transition right after the
// environment step, before the episode is reset.
type TransitionObserver interface {
	ObserveTransition(Transition) error
}
