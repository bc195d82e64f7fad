// Package replay provides experience buffers for the trainer.
package replay

import (
	"errors"
	"fmt"
	"time"

	erand "golang.org/x/exp/rand"

	"github.com/zeu5/rl-trainer/core"
)

var ErrEmpty = errors.New("replay buffer is empty")

const (
	KindNone        = "none"
	KindUniform     = "uniform"
	KindPrioritized = "prioritized"
)

type Config struct {
	Kind     string  `json:"kind"`
	Capacity int     `json:"capacity"`
	Alpha    float64 `json:"alpha"`
	// 0 seeds from the clock
	Seed uint64 `json:"seed"`
}

func DefaultConfig() Config {
	return Config{
		Kind:     KindUniform,
		Capacity: 100000,
		Alpha:    0.6,
	}
}

// New creates the buffer described by the config. It returns a nil buffer
// for KindNone, in which case the trainer runs on-policy.
func New(c Config) (core.ExperienceBuffer, error) {
	if c.Kind == KindNone || c.Kind == "" {
		return nil, nil
	}
	if c.Capacity <= 0 {
		return nil, fmt.Errorf("replay capacity must be positive, got %d", c.Capacity)
	}
	switch c.Kind {
	case KindUniform:
		return NewUniform(c.Capacity, c.Seed), nil
	case KindPrioritized:
		if c.Alpha < 0 {
			return nil, fmt.Errorf("prioritized replay alpha must not be negative, got %f", c.Alpha)
		}
		return NewPrioritized(c.Capacity, c.Alpha, c.Seed), nil
	default:
		return nil, fmt.Errorf("unknown replay buffer kind %q", c.Kind)
	}
}

func newSource(seed uint64) erand.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return erand.NewSource(seed)
}

// ring is a fixed capacity FIFO of transitions
type ring struct {
	capacity int
	items    []core.Transition
	next     int
}

func newRing(capacity int) ring {
	return ring{
		capacity: capacity,
		items:    make([]core.Transition, 0, capacity),
	}
}

// add stores t and returns the slot it was written to
func (r *ring) add(t core.Transition) int {
	slot := r.next
	if len(r.items) < r.capacity {
		r.items = append(r.items, t)
	} else {
		r.items[slot] = t
	}
	r.next = (r.next + 1) % r.capacity
	return slot
}

func (r *ring) Len() int {
	return len(r.items)
}

// Uniform samples stored transitions uniformly with replacement
type Uniform struct {
	ring
	rand *erand.Rand
}

var _ core.ExperienceBuffer = &Uniform{}

func NewUniform(capacity int, seed uint64) *Uniform {
	return &Uniform{
		ring: newRing(capacity),
		rand: erand.New(newSource(seed)),
	}
}

func (u *Uniform) Add(t core.Transition) error {
	u.add(t)
	return nil
}

func (u *Uniform) Sample(n int) (*core.Batch, error) {
	if u.Len() == 0 {
		return nil, ErrEmpty
	}
	batch := core.NewBatch(n)
	for i := 0; i < n; i++ {
		idx := u.rand.Intn(u.Len())
		batch.Add(idx, u.items[idx])
	}
	return batch, nil
}

func (u *Uniform) OnEpisodeEnd() error {
	return nil
}
