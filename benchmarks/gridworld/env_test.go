package gridworld

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newEnv(t *testing.T, config Config) *Env {
	t.Helper()
	config.Seed = 1
	e, err := NewEnv(config)
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}
	return e
}

func TestReachGoal(t *testing.T) {
	e := newEnv(t, DefaultConfig())
	obs, _ := e.Reset()
	if obs != (Position{0, 0}) {
		t.Fatalf("unexpected start %v", obs)
	}
	total := 0.0
	var done bool
	for _, a := range []int{Right, Right, Right, Down, Down, Down} {
		var r float64
		var err error
		obs, r, done, _, err = e.Step(a)
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		total += r
	}
	if !done || obs != (Position{3, 3}) {
		t.Fatalf("expected to reach the goal, at %v done=%v", obs, done)
	}
	if want := 1 + 5*-0.01; total < want-1e-9 || total > want+1e-9 {
		t.Errorf("unexpected total reward %v", total)
	}
}

func TestWallsAndEdges(t *testing.T) {
	config := DefaultConfig()
	config.Walls = []Position{{0, 1}}
	e := newEnv(t, config)
	e.Reset()

	obs, _, _, info, _ := e.Step(Up)
	if obs != (Position{0, 0}) || info["bumped"] != true {
		t.Errorf("moving off the grid must bump, got %v %v", obs, info)
	}
	obs, _, _, _, _ = e.Step(Right)
	if obs != (Position{0, 0}) {
		t.Errorf("walls must block, got %v", obs)
	}
	if _, _, _, _, err := e.Step("jump"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
}

func TestStepCapTruncates(t *testing.T) {
	config := DefaultConfig()
	config.MaxSteps = 3
	e := newEnv(t, config)
	e.Reset()
	for i := 1; i <= 3; i++ {
		_, _, done, info, _ := e.Step(Up)
		if done != (i == 3) {
			t.Errorf("step %d: done=%v", i, done)
		}
		if i == 3 && info["truncated"] != true {
			t.Error("expected the truncated marker")
		}
	}
	e.Reset()
	if _, _, done, _, _ := e.Step(Up); done {
		t.Error("reset must clear the step count")
	}
}

func TestSampleActionInRange(t *testing.T) {
	e := newEnv(t, DefaultConfig())
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		a := e.SampleAction().(int)
		if a < 0 || a >= e.NumActions() {
			t.Fatalf("action %d out of range", a)
		}
		seen[a] = true
	}
	if len(seen) != e.NumActions() {
		t.Errorf("expected every action to be sampled, saw %v", seen)
	}
}

func TestFrameAndRender(t *testing.T) {
	config := DefaultConfig()
	config.Rows, config.Cols = 2, 3
	config.Goal = Position{1, 2}
	config.Walls = []Position{{1, 0}}
	e := newEnv(t, config)
	out := new(bytes.Buffer)
	e.WithOutput(out, false)
	e.Reset()
	e.Step(Right)

	want := "step 1\n.A.\n#.G\n"
	if diff := cmp.Diff(want, e.Frame()); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
	if err := e.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.String() != want {
		t.Errorf("uncolored render should match the frame, got %q", out.String())
	}

	colored := new(bytes.Buffer)
	e.WithOutput(colored, true)
	e.Render()
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Error("expected escape codes in colored output")
	}
}

func TestInvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Walls = []Position{config.Goal}
	if _, err := NewEnv(config); err == nil {
		t.Error("expected goal on a wall to be rejected")
	}
	config = DefaultConfig()
	config.Rows = 0
	if _, err := NewEnv(config); err == nil {
		t.Error("expected empty grid to be rejected")
	}
}
