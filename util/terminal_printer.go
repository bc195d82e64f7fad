package util

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
	"github.com/logrusorgru/aurora"

	"github.com/zeu5/rl-trainer/core"
)

// ProgressPrinter keeps a live progress line for a training run. The line is
// refreshed every frequency once Start is called; the final summary is
// printed when the run finishes.
type ProgressPrinter struct {
	output    *ParallelOutput
	episodes  int
	frequency time.Duration
	doneCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu     sync.Mutex
	writer *uilive.Writer
	colors aurora.Aurora
}

var _ core.ProgressReporter = &ProgressPrinter{}

func NewProgressPrinter(out io.Writer, episodes int, frequency time.Duration, colors bool) *ProgressPrinter {
	writer := uilive.New()
	writer.Out = out
	return &ProgressPrinter{
		output:    NewParallelOutput(),
		episodes:  episodes,
		frequency: frequency,
		doneCh:    make(chan struct{}),
		writer:    writer,
		colors:    aurora.NewAurora(colors),
	}
}

func (p *ProgressPrinter) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-p.doneCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(p.frequency):
				p.print()
			}
		}
	}()
}

func (p *ProgressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.doneCh)
	})
	p.wg.Wait()
}

func (p *ProgressPrinter) Report(pr core.Progress) {
	p.output.TrySet(p.format(pr))
}

func (p *ProgressPrinter) Finish(pr core.Progress, reason core.TerminationReason) {
	p.output.Set(p.format(pr))
	p.print()

	var summary string
	switch reason {
	case core.RewardThresholdReached:
		summary = p.colors.Green(fmt.Sprintf(
			"Solved at episode %d, average reward: %.2f", pr.Episode, pr.RunningReward,
		)).String()
	default:
		summary = p.colors.Cyan(fmt.Sprintf(
			"Finished (%s) at episode %d after %d steps, episode reward: %.2f, running reward: %.2f",
			reason, pr.Episode, pr.TotalSteps, pr.EpisodeReward, pr.RunningReward,
		)).String()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.writer.Out, summary)
}

func (p *ProgressPrinter) format(pr core.Progress) string {
	return fmt.Sprintf(
		"Episode %d/%d | episode_reward=%.2f running_reward=%.2f fps=%.1f steps=%d",
		pr.Episode, p.episodes, pr.EpisodeReward, pr.RunningReward, pr.FPS, pr.TotalSteps,
	)
}

func (p *ProgressPrinter) print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.output.Get()
	if s == "" {
		return
	}
	fmt.Fprint(p.writer, s+"\n")
	p.writer.Flush()
}

// PARALLEL OUTPUT
// used to update and print the progress line
type ParallelOutput struct {
	mu        *sync.Mutex
	printable string
}

func NewParallelOutput() *ParallelOutput {
	return &ParallelOutput{
		mu:        new(sync.Mutex),
		printable: "",
	}
}

// Set the output string (blocking)
func (p *ParallelOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

// Try to set the output string (non-blocking)
func (p *ParallelOutput) TrySet(s string) bool {
	success := p.mu.TryLock()
	if success {
		defer p.mu.Unlock()
		p.printable = s
		return true
	}
	return false
}

// Get the output string (blocking)
func (p *ParallelOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}
