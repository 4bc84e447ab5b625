package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/pacer/pkg/domain"
)

// Overlay contains run state to highlight on the diagram.
// CurrentStep is the index of the last applied step, -1 for none.
type Overlay struct {
	CurrentStep int
}

// GenerateMermaid produces a Mermaid flowchart tracing the positions a pattern visits.
// Node p0 is the origin; node pN is the position after step N-1. Each edge is labeled
// with the displacement and the dwell that follows it. Displacements are shown
// after sensitivity scaling when sens is not nil.
// Applied steps are styled when an overlay is provided.
func GenerateMermaid(p domain.Pattern, sens *domain.Sensitivity, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	var x, y float64
	sb.WriteString(fmt.Sprintf("    p0((\"%s<br/>(0, 0)\"))\n", sanitizeLabel(p.Name)))

	for i, step := range p.Steps {
		dx, dy := sens.Scale(step.DX, step.DY)
		x += dx
		y += dy

		to := i + 1
		shape := fmt.Sprintf("p%d[\"(%g, %g)\"]", to, x, y)
		if to == len(p.Steps) {
			shape = fmt.Sprintf("p%d([\"(%g, %g)\"])", to, x, y)
		}

		label := fmt.Sprintf("%+g, %+g", dx, dy)
		if step.Duration > 0 {
			label += " / " + step.Duration.String()
		}
		sb.WriteString(fmt.Sprintf("    p%d -- \"%s\" --> %s\n", i, label, shape))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		current := overlay.CurrentStep
		if current >= len(p.Steps) {
			current = len(p.Steps) - 1
		}
		for i := 0; i <= current; i++ {
			sb.WriteString(fmt.Sprintf("    class p%d visited;\n", i))
		}
		if current >= 0 {
			sb.WriteString(fmt.Sprintf("    class p%d current;\n", current+1))
		}
	}

	return sb.String()
}

func sanitizeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
