package core

// Transition is one environment step handed to the experience buffer
type Transition struct {
	Observation     Observation
	Action          Action
	NextObservation Observation
	Reward          float64
	Done            bool
}

// Batch is a set of transitions sampled from an experience buffer.
// Indices holds the buffer slot each transition was drawn from.
type Batch struct {
	Transitions []Transition
	Indices     []int
}

func NewBatch(size int) *Batch {
	return &Batch{
		Transitions: make([]Transition, 0, size),
		Indices:     make([]int, 0, size),
	}
}

func (b *Batch) Add(index int, t Transition) {
	b.Indices = append(b.Indices, index)
	b.Transitions = append(b.Transitions, t)
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Transitions)
}

type ExperienceBuffer interface {
	Add(Transition) error
	Sample(int) (*Batch, error)
	// OnEpisodeEnd is called once every time an episode completes
	OnEpisodeEnd() error
}

type MetricsSink interface {
	RecordScalar(name string, value float64, step int) error
	Flush() error
}

type CheckpointStore interface {
	// Save writes a snapshot of the agent and returns its path
	Save() (string, error)
	// RestoreLatest loads the most recent snapshot found in dir. It
	// returns false when dir holds no snapshot.
	RestoreLatest(dir string) (bool, error)
}
