// Package gridworld is a small deterministic grid used to exercise the
// trainer end to end.
package gridworld

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	erand "golang.org/x/exp/rand"

	"github.com/zeu5/rl-trainer/core"
)

var ErrInvalidAction = errors.New("invalid gridworld action")

const (
	Up = iota
	Down
	Left
	Right
	numActions
)

var actionNames = []string{"up", "down", "left", "right"}

// Position is the observation of the grid: the agent's cell
type Position struct {
	Row int
	Col int
}

func (p Position) Hash() string {
	return fmt.Sprintf("%d_%d", p.Row, p.Col)
}

type Config struct {
	Rows int
	Cols int
	// Walls are cells the agent cannot enter
	Walls []Position
	Start Position
	Goal  Position
	// GoalReward is paid when the goal is reached, StepPenalty on every
	// other step
	GoalReward  float64
	StepPenalty float64
	// MaxSteps ends the episode without reaching the goal, 0 disables it
	MaxSteps int
	// 0 seeds from the clock
	Seed uint64
}

func DefaultConfig() Config {
	return Config{
		Rows:        4,
		Cols:        4,
		Start:       Position{0, 0},
		Goal:        Position{3, 3},
		GoalReward:  1,
		StepPenalty: -0.01,
		MaxSteps:    50,
	}
}

func (c Config) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return errors.New("gridworld needs positive dimensions")
	}
	if !c.inside(c.Start) || !c.inside(c.Goal) {
		return errors.New("start and goal must be inside the grid")
	}
	if c.isWall(c.Start) || c.isWall(c.Goal) {
		return errors.New("start and goal cannot be walls")
	}
	return nil
}

func (c Config) inside(p Position) bool {
	return p.Row >= 0 && p.Col >= 0 && p.Row < c.Rows && p.Col < c.Cols
}

func (c Config) isWall(p Position) bool {
	for _, w := range c.Walls {
		if w == p {
			return true
		}
	}
	return false
}

// Env implements core.Environment and core.Renderer. Actions are the
// integers Up, Down, Left and Right.
type Env struct {
	config   Config
	pos      Position
	steps    int
	episodes int
	rand     *erand.Rand

	out    io.Writer
	colors bool
}

var (
	_ core.Environment = &Env{}
	_ core.Renderer    = &Env{}
)

func NewEnv(config Config) (*Env, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Env{
		config: config,
		pos:    config.Start,
		rand:   erand.New(erand.NewSource(seed)),
		out:    os.Stdout,
	}, nil
}

// WithOutput sets where Render draws the grid
func (e *Env) WithOutput(out io.Writer, colors bool) *Env {
	e.out = out
	e.colors = colors
	return e
}

func (e *Env) NumActions() int {
	return numActions
}

func (e *Env) Reset() (core.Observation, error) {
	e.pos = e.config.Start
	e.steps = 0
	e.episodes++
	return e.pos, nil
}

func (e *Env) Step(a core.Action) (core.Observation, float64, bool, core.Info, error) {
	action, ok := a.(int)
	if !ok || action < 0 || action >= numActions {
		return nil, 0, false, nil, fmt.Errorf("%v: %w", a, ErrInvalidAction)
	}
	next := e.pos
	switch action {
	case Up:
		next.Row--
	case Down:
		next.Row++
	case Left:
		next.Col--
	case Right:
		next.Col++
	}
	bumped := !e.config.inside(next) || e.config.isWall(next)
	if !bumped {
		e.pos = next
	}
	e.steps++

	info := core.Info{
		"action":  actionNames[action],
		"bumped":  bumped,
		"episode": e.episodes,
	}
	if e.pos == e.config.Goal {
		return e.pos, e.config.GoalReward, true, info, nil
	}
	truncated := e.config.MaxSteps > 0 && e.steps >= e.config.MaxSteps
	if truncated {
		info["truncated"] = true
	}
	return e.pos, e.config.StepPenalty, truncated, info, nil
}

func (e *Env) SampleAction() core.Action {
	return e.rand.Intn(numActions)
}

// Episode is the number of resets so far
func (e *Env) Episode() int {
	return e.episodes
}

func (e *Env) Position() Position {
	return e.pos
}
