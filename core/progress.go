package core

const (
	MetricTrainingReward        = "Common/training_reward"
	MetricTrainingEpisodeLength = "Common/training_episode_length"
)

// Progress is the display data emitted when an episode completes and once
// more when the run terminates.
type Progress struct {
	Episode       int
	EpisodeReward float64
	RunningReward float64
	FPS           float64
	TotalSteps    int
}

type ProgressReporter interface {
	Report(Progress)
	Finish(Progress, TerminationReason)
}

type noopProgress struct{}

func (noopProgress) Report(Progress) {}

func (noopProgress) Finish(Progress, TerminationReason) {}

// experienceHandler is resolved once at construction depending on whether
// an experience buffer is present.
type experienceHandler interface {
	handle(totalSteps int, t Transition) error
	episodeEnd() error
}

// bufferedExperience stores every transition and trains on sampled batches
type bufferedExperience struct {
	buffer   ExperienceBuffer
	agent    Agent
	interval int
}

func (b *bufferedExperience) handle(totalSteps int, t Transition) error {
	if err := b.buffer.Add(t); err != nil {
		return wrap("buffer", "add", err)
	}
	if totalSteps%b.interval != 0 {
		return nil
	}
	batch, err := b.buffer.Sample(b.agent.BatchSize())
	if err != nil {
		return wrap("buffer", "sample", err)
	}
	return wrap("agent", "update", b.agent.Update(batch))
}

func (b *bufferedExperience) episodeEnd() error {
	return wrap("buffer", "episode end", b.buffer.OnEpisodeEnd())
}

// onPolicyExperience lets the agent learn from its own internal state
type onPolicyExperience struct {
	agent    Agent
	observer TransitionObserver
	interval int
}

func (o *onPolicyExperience) handle(totalSteps int, t Transition) error {
	if o.observer != nil {
		if err := o.observer.ObserveTransition(t); err != nil {
			return wrap("agent", "observe", err)
		}
	}
	if totalSteps%o.interval != 0 {
		return nil
	}
	return wrap("agent", "update", o.agent.Update(nil))
}

func (o *onPolicyExperience) episodeEnd() error {
	return nil
}
