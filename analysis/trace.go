package analysis

import (
	"bytes"
	"fmt"
	"os"
	"path"

	"github.com/zeu5/rl-trainer/core"
)

// Framer is an environment that can describe its current state as text
type Framer interface {
	Frame() string
	// Episode identifies the episode the frame belongs to. It changes only
	// when the environment is reset.
	Episode() int
}

// TraceVisualizer records one frame per step and writes the frames of every
// episode to traces/episode_<n>.txt under the save path. Frames are taken
// when the step is observed, before the environment is reset at the end of
// an episode, and an episode's file is written once it is done.
type TraceVisualizer struct {
	framer   Framer
	savePath string
	// will save the trace only after the episode number reaches this threshold
	thresholdEpisode int

	episode int
	steps   int
	done    bool
	buf     *bytes.Buffer
}

var (
	_ core.Visualizer         = &TraceVisualizer{}
	_ core.TransitionObserver = &TraceVisualizer{}
)

func NewTraceVisualizer(framer Framer, savePath string, threshold int) (*TraceVisualizer, error) {
	tracesPath := path.Join(savePath, "traces")
	if err := os.MkdirAll(tracesPath, 0755); err != nil {
		return nil, err
	}
	return &TraceVisualizer{
		framer:           framer,
		savePath:         tracesPath,
		thresholdEpisode: threshold,
		episode:          -1,
		buf:              new(bytes.Buffer),
	}, nil
}

func (v *TraceVisualizer) ObserveTransition(t core.Transition) error {
	episode := v.framer.Episode()
	if episode != v.episode {
		if err := v.Flush(); err != nil {
			return err
		}
		v.episode = episode
		v.steps = 0
	}
	v.done = t.Done
	if episode < v.thresholdEpisode {
		return nil
	}
	v.steps++
	v.buf.WriteString(fmt.Sprintf("Step %d\n%s\n", v.steps, v.framer.Frame()))
	return nil
}

// Visualize writes the trace of an episode that just ended
func (v *TraceVisualizer) Visualize() error {
	if !v.done {
		return nil
	}
	v.done = false
	return v.Flush()
}

// Flush writes the frames of the current episode, if any
func (v *TraceVisualizer) Flush() error {
	if v.buf.Len() == 0 {
		return nil
	}
	file := path.Join(v.savePath, fmt.Sprintf("episode_%d.txt", v.episode))
	err := os.WriteFile(file, v.buf.Bytes(), 0644)
	v.buf.Reset()
	return err
}

// Path is the directory holding the trace files
func (v *TraceVisualizer) Path() string {
	return v.savePath
}
