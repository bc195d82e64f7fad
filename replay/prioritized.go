package replay

import (
	"math"

	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/zeu5/rl-trainer/core"
)

const priorityEpsilon = 1e-3

// PriorityUpdater receives new priorities for sampled transitions,
// typically absolute TD errors computed by the agent.
type PriorityUpdater interface {
	UpdatePriorities(indices []int, priorities []float64)
}

// Prioritized samples transitions with probability proportional to
// priority^alpha. New transitions get the highest priority seen so far.
// Priority feedback is buffered and applied at the end of every episode.
type Prioritized struct {
	ring
	alpha       float64
	priorities  []float64
	maxPriority float64
	pending     map[int]float64

	src     erand.Source
	sampler *sampleuv.Weighted
	dirty   bool
}

var (
	_ core.ExperienceBuffer = &Prioritized{}
	_ PriorityUpdater       = &Prioritized{}
)

func NewPrioritized(capacity int, alpha float64, seed uint64) *Prioritized {
	return &Prioritized{
		ring:        newRing(capacity),
		alpha:       alpha,
		priorities:  make([]float64, 0, capacity),
		maxPriority: 1,
		pending:     make(map[int]float64),
		src:         newSource(seed),
	}
}

func (p *Prioritized) Add(t core.Transition) error {
	slot := p.add(t)
	if slot == len(p.priorities) {
		p.priorities = append(p.priorities, p.maxPriority)
	} else {
		p.priorities[slot] = p.maxPriority
	}
	// a stale update must not apply to the overwritten slot
	delete(p.pending, slot)
	p.dirty = true
	return nil
}

func (p *Prioritized) weight(priority float64) float64 {
	return math.Pow(priority+priorityEpsilon, p.alpha)
}

func (p *Prioritized) rebuild() {
	weights := make([]float64, len(p.priorities))
	for i, pr := range p.priorities {
		weights[i] = p.weight(pr)
	}
	sampler := sampleuv.NewWeighted(weights, p.src)
	p.sampler = &sampler
	p.dirty = false
}

// Sample draws n transitions with replacement
func (p *Prioritized) Sample(n int) (*core.Batch, error) {
	if p.Len() == 0 {
		return nil, ErrEmpty
	}
	if p.dirty || p.sampler == nil {
		p.rebuild()
	}
	batch := core.NewBatch(n)
	for i := 0; i < n; i++ {
		idx, ok := p.sampler.Take()
		if !ok {
			return nil, ErrEmpty
		}
		// Take removes the item, put it back
		p.sampler.Reweight(idx, p.weight(p.priorities[idx]))
		batch.Add(idx, p.items[idx])
	}
	return batch, nil
}

func (p *Prioritized) UpdatePriorities(indices []int, priorities []float64) {
	for i, idx := range indices {
		if i >= len(priorities) || idx < 0 || idx >= p.Len() {
			continue
		}
		p.pending[idx] = math.Abs(priorities[i])
	}
}

// OnEpisodeEnd applies the buffered priority updates
func (p *Prioritized) OnEpisodeEnd() error {
	if len(p.pending) == 0 {
		return nil
	}
	for idx, pr := range p.pending {
		p.priorities[idx] = pr
		if pr > p.maxPriority {
			p.maxPriority = pr
		}
	}
	p.pending = make(map[int]float64)
	p.dirty = true
	return nil
}

// Priority returns the current priority of the transition in slot idx
func (p *Prioritized) Priority(idx int) float64 {
	return p.priorities[idx]
}
