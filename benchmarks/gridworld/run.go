package gridworld

import (
	"fmt"
	"log"

	"github.com/zeu5/rl-trainer/benchmarks/common"
	"github.com/zeu5/rl-trainer/core"
	"github.com/zeu5/rl-trainer/policies"
	"github.com/zeu5/rl-trainer/replay"
)

// Setup is everything a training run on the grid needs besides the run
// configuration
type Setup struct {
	Env    *Env
	Agent  core.Agent
	Buffer core.ExperienceBuffer
}

// Options returns the trainer options for the optional collaborators of the
// setup
func (s *Setup) Options() []core.Option {
	opts := make([]core.Option, 0)
	if s.Buffer != nil {
		opts = append(opts, core.WithExperienceBuffer(s.Buffer))
	}
	return opts
}

// Prepare builds the environment, the experience buffer and the agent
// selected by the flags. The goal is the bottom right corner.
func Prepare(flags *common.Flags) (*Setup, error) {
	config := DefaultConfig()
	config.Rows = flags.Rows
	config.Cols = flags.Cols
	config.Goal = Position{flags.Rows - 1, flags.Cols - 1}
	config.MaxSteps = flags.GridMaxSteps
	config.StepPenalty = flags.StepPenalty
	config.Seed = flags.Seed
	env, err := NewEnv(config)
	if err != nil {
		return nil, err
	}

	bufferKind := flags.Buffer
	if flags.Agent == "softmax" && bufferKind != replay.KindNone {
		log.Printf("the softmax agent learns on-policy, ignoring buffer %q", bufferKind)
		bufferKind = replay.KindNone
	}
	buffer, err := replay.New(replay.Config{
		Kind:     bufferKind,
		Capacity: flags.BufferCapacity,
		Alpha:    flags.PriorityAlpha,
		Seed:     flags.Seed,
	})
	if err != nil {
		return nil, err
	}

	var agent core.Agent
	switch flags.Agent {
	case "qlearning":
		if buffer == nil {
			return nil, fmt.Errorf("the qlearning agent needs an experience buffer")
		}
		q := policies.NewQLearning(policies.QLearningParams{
			Actions:   env.NumActions(),
			Alpha:     flags.Alpha,
			Discount:  flags.Discount,
			Epsilon:   flags.Epsilon,
			Interval:  flags.UpdateInterval,
			BatchSize: flags.BatchSize,
			Seed:      flags.Seed,
		})
		if p, ok := buffer.(replay.PriorityUpdater); ok {
			q.WithPriorities(p)
		}
		agent = q
	case "ucb":
		if buffer == nil {
			return nil, fmt.Errorf("the ucb agent needs an experience buffer")
		}
		agent = policies.NewUCBZeroPolicy(policies.UCBZeroParams{
			StateSize: config.Rows * config.Cols,
			Actions:   env.NumActions(),
			Horizon:   config.MaxSteps,
			Episodes:  flags.Episodes,
			Constant:  flags.UCBConstant,
			Epsilon:   flags.Epsilon,
			Interval:  flags.UpdateInterval,
			BatchSize: flags.BatchSize,
			Seed:      flags.Seed,
		})
	case "softmax":
		agent = policies.NewSoftMaxNegPolicy(policies.SoftMaxNegParams{
			Actions:     env.NumActions(),
			Alpha:       flags.Alpha,
			Gamma:       flags.Discount,
			Temperature: flags.Temperature,
			Interval:    flags.UpdateInterval,
			Seed:        flags.Seed,
		})
	case "random":
		agent = policies.NewRandomPolicy(env.NumActions(), flags.Seed)
	default:
		return nil, fmt.Errorf("unknown agent %q", flags.Agent)
	}
	return &Setup{Env: env, Agent: agent, Buffer: buffer}, nil
}
