package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

// Trainer drives the interaction between an Agent and an Environment over a
// number of episodes. It is not safe for concurrent use: one Run at a time.
type Trainer struct {
	config   *RunConfig
	agent    Agent
	env      Environment
	sink     MetricsSink
	interval int

	buffer     ExperienceBuffer
	experience experienceHandler
	visualizer Visualizer
	// stepTracer is the visualizer when it also observes transitions
	stepTracer TransitionObserver
	renderer   Renderer
	store      CheckpointStore
	progress   ProgressReporter
	now        func() time.Time

	restored bool
	// last checkpoint written during the current run and the global step it
	// was taken at, -1 when there is none
	savedPath string
	savedAt   int
}

type Option func(*Trainer)

func WithExperienceBuffer(b ExperienceBuffer) Option {
	return func(t *Trainer) {
		t.buffer = b
	}
}

func WithVisualizer(v Visualizer) Option {
	return func(t *Trainer) {
		t.visualizer = v
	}
}

func WithCheckpointStore(s CheckpointStore) Option {
	return func(t *Trainer) {
		t.store = s
	}
}

func WithProgressReporter(p ProgressReporter) Option {
	return func(t *Trainer) {
		t.progress = p
	}
}

// WithClock replaces time.Now, used for episode timings
func WithClock(now func() time.Time) Option {
	return func(t *Trainer) {
		t.now = now
	}
}

// NewTrainer validates the configuration, resolves the optional
// collaborators and, when config.ModelDir is set, restores the latest
// checkpoint found there into the agent.
func NewTrainer(config *RunConfig, agent Agent, env Environment, sink MetricsSink, opts ...Option) (*Trainer, error) {
	if config == nil {
		return nil, &ConfigurationError{Reason: "missing run configuration"}
	}
	if agent == nil || env == nil || sink == nil {
		return nil, &ConfigurationError{Reason: "agent, environment and metrics sink are required"}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	t := &Trainer{
		config:   config.Copy(),
		agent:    agent,
		env:      env,
		sink:     sink,
		progress: noopProgress{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.interval = agent.UpdateInterval()
	if t.config.PolicyUpdateInterval != nil {
		t.interval = *t.config.PolicyUpdateInterval
	}
	if t.interval <= 0 {
		return nil, &ConfigurationError{
			Option: "policy_update_interval",
			Reason: "not configured and the agent reports no positive update interval",
		}
	}

	if t.buffer != nil {
		if agent.BatchSize() <= 0 {
			return nil, &ConfigurationError{Reason: "agent batch size must be positive when an experience buffer is used"}
		}
		t.experience = &bufferedExperience{buffer: t.buffer, agent: agent, interval: t.interval}
	} else {
		onPolicy := &onPolicyExperience{agent: agent, interval: t.interval}
		if o, ok := agent.(TransitionObserver); ok {
			onPolicy.observer = o
		}
		t.experience = onPolicy
	}

	t.renderer = noopRenderer{}
	if t.config.ShowProgressInterval != nil {
		if r, ok := env.(Renderer); ok {
			t.renderer = r
		} else {
			log.Printf("environment %T does not render, show_progress_interval has no effect", env)
		}
	}

	switch {
	case !t.config.Visualize:
		t.visualizer = noopVisualizer{}
	case t.visualizer == nil:
		// No default visualizer: an enabled flag without one does nothing
		log.Printf("visualize is enabled but no visualizer was supplied")
		t.visualizer = noopVisualizer{}
	}
	if o, ok := t.visualizer.(TransitionObserver); ok {
		t.stepTracer = o
	}

	if t.config.ModelDir != "" {
		if err := t.restore(t.config.ModelDir); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Trainer) restore(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return &ConfigurationError{Option: "model_dir", Err: fmt.Errorf("%s: %w", dir, ErrDirectoryNotFound)}
	}
	if t.store == nil {
		return &ConfigurationError{Option: "model_dir", Err: ErrNoCheckpointStore}
	}
	restored, err := t.store.RestoreLatest(dir)
	if err != nil {
		return wrap("checkpoint", "restore", err)
	}
	if !restored {
		log.Printf("no checkpoint found in %s, agent starts from its default state", dir)
	}
	t.restored = restored
	return nil
}

// Restored reports whether a checkpoint was loaded at construction
func (t *Trainer) Restored() bool {
	return t.restored
}

// UpdateInterval is the resolved global-step cadence of learning updates
func (t *Trainer) UpdateInterval() int {
	return t.interval
}

// Run executes the training loop until the episodes are exhausted, the
// running reward reaches the threshold or the step budget is spent.
// Errors from collaborators abort the run and are returned as is.
// Cancelling ctx stops the run between two steps without a checkpoint.
func (t *Trainer) Run(ctx context.Context) (*RunResult, error) {
	state := &RunState{}
	ep := &EpisodeState{}
	reason := EpisodesExhausted
	t.savedPath, t.savedAt = "", -1

EpisodeLoop:
	for episode := 0; episode < t.config.NumEpisodes; episode++ {
		state.Episode = episode
		if err := t.resetEpisode(ep); err != nil {
			return nil, err
		}
		for step := 0; step < t.config.MaxEpisodeSteps; step++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			stop, stopped, err := t.step(state, ep)
			if err != nil {
				return nil, err
			}
			if stopped {
				reason = stop
				break EpisodeLoop
			}
		}
	}
	return t.finish(state, ep, reason)
}

func (t *Trainer) resetEpisode(ep *EpisodeState) error {
	obs, err := t.env.Reset()
	if err != nil {
		return wrap("environment", "reset", err)
	}
	*ep = EpisodeState{
		Observation: obs,
		Start:       t.now(),
	}
	return nil
}

func (t *Trainer) selectAction(state *RunState, obs Observation) (Action, error) {
	if state.TotalSteps < t.config.WarmupSteps {
		return t.env.SampleAction(), nil
	}
	action, err := t.agent.SelectAction(obs)
	if err != nil {
		return nil, wrap("agent", "select action", err)
	}
	return action, nil
}

// step takes one environment step. It returns true together with the reason
// when the run has to terminate.
func (t *Trainer) step(state *RunState, ep *EpisodeState) (TerminationReason, bool, error) {
	action, err := t.selectAction(state, ep.Observation)
	if err != nil {
		return 0, false, err
	}
	nextObs, reward, done, _, err := t.env.Step(action)
	if err != nil {
		return 0, false, wrap("environment", "step", err)
	}
	state.TotalSteps++
	ep.Steps++
	ep.Reward += reward

	if t.config.ShowProgressInterval != nil && state.Episode%*t.config.ShowProgressInterval == 0 {
		if err := t.renderer.Render(); err != nil {
			return 0, false, wrap("environment", "render", err)
		}
	}

	transition := Transition{
		Observation:     ep.Observation,
		Action:          action,
		NextObservation: nextObs,
		Reward:          reward,
		Done:            done,
	}
	if t.stepTracer != nil {
		if err := t.stepTracer.ObserveTransition(transition); err != nil {
			return 0, false, wrap("visualizer", "observe", err)
		}
	}
	if err := t.experience.handle(state.TotalSteps, transition); err != nil {
		return 0, false, err
	}
	ep.Observation = nextObs

	if done {
		solved, err := t.completeEpisode(state, ep)
		if err != nil {
			return 0, false, err
		}
		if solved {
			return RewardThresholdReached, true, nil
		}
	}

	// a spent budget stops the run before the environment is reset
	if t.config.MaxSteps != nil && state.TotalSteps >= *t.config.MaxSteps {
		return StepBudgetExhausted, true, nil
	}

	if done {
		if err := t.resetEpisode(ep); err != nil {
			return 0, false, err
		}
	}

	if err := t.visualizer.Visualize(); err != nil {
		return 0, false, wrap("visualizer", "visualize", err)
	}
	return 0, false, nil
}

// completeEpisode records the finished episode and reports whether the
// reward threshold has been met.
func (t *Trainer) completeEpisode(state *RunState, ep *EpisodeState) (bool, error) {
	fps := 0.0
	if elapsed := t.now().Sub(ep.Start).Seconds(); elapsed > 0 {
		fps = float64(ep.Steps) / elapsed
	}
	state.CompleteEpisode(ep.Reward)
	t.progress.Report(Progress{
		Episode:       state.Episode,
		EpisodeReward: ep.Reward,
		RunningReward: state.RunningReward,
		FPS:           fps,
		TotalSteps:    state.TotalSteps,
	})

	if err := t.sink.RecordScalar(MetricTrainingReward, ep.Reward, state.TotalSteps); err != nil {
		return false, wrap("metrics", "record", err)
	}
	if err := t.sink.RecordScalar(MetricTrainingEpisodeLength, float64(ep.Steps), state.TotalSteps); err != nil {
		return false, wrap("metrics", "record", err)
	}
	if err := t.experience.episodeEnd(); err != nil {
		return false, err
	}

	if t.config.RewardThreshold != nil && state.RunningReward >= *t.config.RewardThreshold {
		return true, nil
	}

	if t.store != nil && t.config.CheckpointInterval > 0 && state.EpisodesCompleted%t.config.CheckpointInterval == 0 {
		path, err := t.store.Save()
		if err != nil {
			return false, wrap("checkpoint", "save", err)
		}
		t.savedPath, t.savedAt = path, state.TotalSteps
	}
	return false, nil
}

// finish checkpoints, flushes the metrics once and reports the final progress
func (t *Trainer) finish(state *RunState, ep *EpisodeState, reason TerminationReason) (*RunResult, error) {
	result := &RunResult{
		Reason:            reason,
		TotalSteps:        state.TotalSteps,
		RunningReward:     state.RunningReward,
		Episodes:          state.Episode + 1,
		EpisodesCompleted: state.EpisodesCompleted,
		Restored:          t.restored,
	}
	switch {
	case t.store == nil:
	case t.savedAt == state.TotalSteps:
		// the agent has not changed since the periodic checkpoint
		result.Checkpoint = t.savedPath
	default:
		path, err := t.store.Save()
		if err != nil {
			return nil, wrap("checkpoint", "save", err)
		}
		result.Checkpoint = path
	}
	if err := t.sink.Flush(); err != nil {
		return nil, wrap("metrics", "flush", err)
	}
	t.progress.Finish(Progress{
		Episode:       state.Episode,
		EpisodeReward: ep.Reward,
		RunningReward: state.RunningReward,
		TotalSteps:    state.TotalSteps,
	}, reason)
	return result, nil
}
