package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/pacer/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return nil, err
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// PatternTable describes a pattern set as markdown.
// The active pattern, if any, is marked in the table.
func PatternTable(set domain.PatternSet, active string) string {
	var b strings.Builder
	b.WriteString("# Patterns\n\n")

	if set.Sensitivity != nil {
		fmt.Fprintf(&b, "Sensitivity: x=%g y=%g\n\n", set.Sensitivity.X, set.Sensitivity.Y)
	}
	if len(set.Patterns) == 0 {
		b.WriteString("_No patterns configured._\n")
		return b.String()
	}

	b.WriteString("| Pattern | Steps | Duration | Net displacement |\n")
	b.WriteString("|---|---:|---:|---|\n")
	for _, p := range set.Patterns {
		var x, y float64
		for _, s := range p.Steps {
			x += s.DX
			y += s.DY
		}
		name := p.Name
		if name == active {
			name = "**" + name + "** (active)"
		}
		fmt.Fprintf(&b, "| %s | %d | %s | (%g, %g) |\n", name, len(p.Steps), p.TotalDuration(), x, y)
	}
	return b.String()
}
