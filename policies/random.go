package policies

import (
	"time"

	erand "golang.org/x/exp/rand"

	"github.com/zeu5/rl-trainer/core"
)

// RandomPolicy picks actions uniformly and never learns
type RandomPolicy struct {
	actions int
	rand    *erand.Rand
}

var _ core.Agent = &RandomPolicy{}

func NewRandomPolicy(actions int, seed uint64) *RandomPolicy {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomPolicy{
		actions: actions,
		rand:    erand.New(erand.NewSource(seed)),
	}
}

func (r *RandomPolicy) SelectAction(_ core.Observation) (core.Action, error) {
	return r.rand.Intn(r.actions), nil
}

func (r *RandomPolicy) Update(_ *core.Batch) error { return nil }

func (r *RandomPolicy) UpdateInterval() int { return 1 }

func (r *RandomPolicy) BatchSize() int { return 1 }
