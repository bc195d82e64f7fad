package gridworld

import (
	"fmt"
	"strings"

	"github.com/logrusorgru/aurora"
)

// Frame returns the grid as plain text: A is the agent, G the goal and # a
// wall.
func (e *Env) Frame() string {
	return e.paint(aurora.NewAurora(false))
}

// Render draws the current grid to the output of the environment
func (e *Env) Render() error {
	_, err := fmt.Fprint(e.out, e.paint(aurora.NewAurora(e.colors)))
	return err
}

func (e *Env) paint(au aurora.Aurora) string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "step %d\n", e.steps)
	for r := 0; r < e.config.Rows; r++ {
		for c := 0; c < e.config.Cols; c++ {
			p := Position{r, c}
			switch {
			case p == e.pos:
				b.WriteString(au.Green("A").String())
			case p == e.config.Goal:
				b.WriteString(au.Yellow("G").String())
			case e.config.isWall(p):
				b.WriteString(au.Red("#").String())
			default:
				b.WriteString(au.Faint(".").String())
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
