package core

import "time"

type Observation interface{}

type Action interface{}

// Info is auxiliary data returned by Environment.Step. The Trainer ignores it.
type Info map[string]interface{}

type Environment interface {
	Reset() (Observation, error)
	Step(Action) (Observation, float64, bool, Info, error)
	// SampleAction draws an action uniformly from the action space
	SampleAction() Action
}

// Renderer is an optional capability of an Environment
type Renderer interface {
	Render() error
}

type Visualizer interface {
	Visualize() error
}

type noopVisualizer struct{}

func (noopVisualizer) Visualize() error { return nil }

type noopRenderer struct{}

func (noopRenderer) Render() error { return nil }

// EpisodeState is scoped to a single episode and replaced on every
// environment reset.
type EpisodeState struct {
	Observation Observation
	Reward      float64
	Steps       int
	Start       time.Time
}

// RunState is the mutable state of one Trainer.Run call.
type RunState struct {
	TotalSteps        int
	RunningReward     float64
	Episode           int
	EpisodesCompleted int
}

const (
	runningRewardDecay  = 0.99
	runningRewardWeight = 0.01
)

// CompleteEpisode folds the finished episode's reward into the running reward.
func (s *RunState) CompleteEpisode(episodeReward float64) {
	s.RunningReward = runningRewardDecay*s.RunningReward + runningRewardWeight*episodeReward
	s.EpisodesCompleted++
}
