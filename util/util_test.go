package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeu5/rl-trainer/core"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")

	if err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "first")
		return err
	}); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	failure := errors.New("disk on fire")
	err := WriteFileAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected the write error, got %v", err)
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(bs) != "first" {
		t.Errorf("failed write replaced the file: %q", bs)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestSaveJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveJson(path, map[string]int{"episodes": 3}); err != nil {
		t.Fatalf("SaveJson: %v", err)
	}
	bs, _ := os.ReadFile(path)
	var out map[string]int
	if err := json.Unmarshal(bs, &out); err != nil || out["episodes"] != 3 {
		t.Errorf("unexpected contents %q (%v)", bs, err)
	}
}

func TestJsonHashIsStable(t *testing.T) {
	a := JsonHash(map[string]int{"a": 1, "b": 2})
	b := JsonHash(map[string]int{"b": 2, "a": 1})
	if a != b {
		t.Errorf("hash depends on map order")
	}
}

func TestProgressPrinter(t *testing.T) {
	t.Run("solved", func(t *testing.T) {
		out := new(bytes.Buffer)
		p := NewProgressPrinter(out, 10, 0, false)
		p.Report(core.Progress{Episode: 1, EpisodeReward: 4, RunningReward: 0.04, FPS: 100, TotalSteps: 8})
		p.Finish(core.Progress{Episode: 2, EpisodeReward: 5, RunningReward: 0.5, TotalSteps: 12}, core.RewardThresholdReached)

		s := out.String()
		if !strings.Contains(s, "Episode 2/10 | episode_reward=5.00 running_reward=0.50") {
			t.Errorf("missing progress line in %q", s)
		}
		if !strings.Contains(s, "Solved at episode 2, average reward: 0.50") {
			t.Errorf("missing success line in %q", s)
		}
	})

	t.Run("budget", func(t *testing.T) {
		out := new(bytes.Buffer)
		p := NewProgressPrinter(out, 10, 0, false)
		p.Finish(core.Progress{Episode: 3, TotalSteps: 40}, core.StepBudgetExhausted)
		if !strings.Contains(out.String(), "Finished (step budget exhausted) at episode 3 after 40 steps") {
			t.Errorf("missing summary in %q", out.String())
		}
		p.Stop()
		p.Stop()
	})
}
