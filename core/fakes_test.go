package core

import (
	"errors"
	"time"
)

// scriptedEnv counts steps and signals done every doneEvery steps of an
// episode (never when doneEvery is 0). Every step yields reward.
type scriptedEnv struct {
	doneEvery int
	reward    float64
	stepErr   error

	steps        int
	episodeSteps int
	resets       int
	renders      int
	sampled      int
	lastAction   Action
}

func (e *scriptedEnv) Reset() (Observation, error) {
	e.resets++
	e.episodeSteps = 0
	return e.resets * 1000, nil
}

func (e *scriptedEnv) Step(a Action) (Observation, float64, bool, Info, error) {
	if e.stepErr != nil {
		return nil, 0, false, nil, e.stepErr
	}
	e.steps++
	e.episodeSteps++
	e.lastAction = a
	done := e.doneEvery > 0 && e.episodeSteps%e.doneEvery == 0
	return e.resets*1000 + e.episodeSteps, e.reward, done, Info{"step": e.steps}, nil
}

func (e *scriptedEnv) SampleAction() Action {
	e.sampled++
	return "random"
}

func (e *scriptedEnv) Render() error {
	e.renders++
	return nil
}

// plainEnv hides the Render method of scriptedEnv
type plainEnv struct {
	env *scriptedEnv
}

func (p *plainEnv) Reset() (Observation, error) { return p.env.Reset() }

func (p *plainEnv) Step(a Action) (Observation, float64, bool, Info, error) { return p.env.Step(a) }

func (p *plainEnv) SampleAction() Action { return p.env.SampleAction() }

// recordingAgent records the global step (taken from the env) at which it
// was queried or updated.
type recordingAgent struct {
	env       *scriptedEnv
	interval  int
	batchSize int
	warmup    int

	selectCalls  int
	warmupQuery  bool
	updateSteps  []int
	batches      []*Batch
	observations []Observation
}

func (a *recordingAgent) SelectAction(obs Observation) (Action, error) {
	if a.env.steps < a.warmup {
		a.warmupQuery = true
	}
	a.selectCalls++
	a.observations = append(a.observations, obs)
	return "policy", nil
}

func (a *recordingAgent) Update(b *Batch) error {
	a.updateSteps = append(a.updateSteps, a.env.steps)
	a.batches = append(a.batches, b)
	return nil
}

func (a *recordingAgent) UpdateInterval() int { return a.interval }

func (a *recordingAgent) BatchSize() int { return a.batchSize }

// observingAgent also records the transitions handed to it by the Trainer
type observingAgent struct {
	recordingAgent
	observed         []Transition
	observedAtUpdate []int
}

func (a *observingAgent) ObserveTransition(t Transition) error {
	a.observed = append(a.observed, t)
	return nil
}

func (a *observingAgent) Update(b *Batch) error {
	a.observedAtUpdate = append(a.observedAtUpdate, len(a.observed))
	return a.recordingAgent.Update(b)
}

type recordingBuffer struct {
	transitions []Transition
	sampleSizes []int
	episodeEnds int
}

func (b *recordingBuffer) Add(t Transition) error {
	b.transitions = append(b.transitions, t)
	return nil
}

func (b *recordingBuffer) Sample(n int) (*Batch, error) {
	b.sampleSizes = append(b.sampleSizes, n)
	batch := NewBatch(n)
	for i := 0; i < n && i < len(b.transitions); i++ {
		batch.Add(i, b.transitions[i])
	}
	return batch, nil
}

func (b *recordingBuffer) OnEpisodeEnd() error {
	b.episodeEnds++
	return nil
}

type scalar struct {
	Name  string
	Value float64
	Step  int
}

type recordingSink struct {
	scalars []scalar
	flushes int
}

func (s *recordingSink) RecordScalar(name string, value float64, step int) error {
	s.scalars = append(s.scalars, scalar{Name: name, Value: value, Step: step})
	return nil
}

func (s *recordingSink) Flush() error {
	s.flushes++
	return nil
}

type recordingStore struct {
	found      bool
	restoreDir string
	saves      int
	saveErr    error
}

func (s *recordingStore) Save() (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saves++
	return "ckpt", nil
}

func (s *recordingStore) RestoreLatest(dir string) (bool, error) {
	s.restoreDir = dir
	return s.found, nil
}

type recordingProgress struct {
	reports  []Progress
	finished []TerminationReason
	final    Progress
}

func (p *recordingProgress) Report(pr Progress) {
	p.reports = append(p.reports, pr)
}

func (p *recordingProgress) Finish(pr Progress, reason TerminationReason) {
	p.final = pr
	p.finished = append(p.finished, reason)
}

type countingVisualizer struct {
	calls int
}

func (v *countingVisualizer) Visualize() error {
	v.calls++
	return nil
}

// tracingVisualizer records the env episode current at every observed step
type tracingVisualizer struct {
	env      *scriptedEnv
	episodes []int
	calls    int
}

func (v *tracingVisualizer) ObserveTransition(Transition) error {
	v.episodes = append(v.episodes, v.env.resets)
	return nil
}

func (v *tracingVisualizer) Visualize() error {
	v.calls++
	return nil
}

// stepClock advances one second every time it is read
type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

var errBoom = errors.New("boom")

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func baseConfig(episodes, steps int) *RunConfig {
	c := DefaultRunConfig()
	c.NumEpisodes = episodes
	c.MaxEpisodeSteps = steps
	return &c
}
