package graph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aretw0/pacer/internal/presentation/graph"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/stretchr/testify/assert"
)

var wave = domain.Pattern{
	Name: "wave",
	Steps: []domain.Step{
		{DX: 2, DY: 0, Duration: 100 * time.Millisecond},
		{DX: 0, DY: -2},
	},
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		sens     *domain.Sensitivity
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Trajectory",
			contains: []string{
				"graph LR",
				`p0(("wave<br/>(0, 0)"))`,
				`p0 -- "+2, +0 / 100ms" --> p1["(2, 0)"]`,
				`p1 -- "+0, -2" --> p2(["(2, -2)"])`,
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Sensitivity Scaling",
			sens: &domain.Sensitivity{X: 2, Y: 2},
			contains: []string{
				`p1["(1, 0)"]`,
				`p2(["(1, -1)"])`,
			},
		},
		{
			name:    "Overlay",
			overlay: &graph.Overlay{CurrentStep: 0},
			contains: []string{
				"class p0 visited;",
				"class p1 current;",
			},
			excludes: []string{"class p1 visited;"},
		},
		{
			name:     "Overlay Before First Step",
			overlay:  &graph.Overlay{CurrentStep: -1},
			contains: []string{"classDef current"},
			excludes: []string{"class p0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(wave, tt.sens, tt.overlay)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.False(t, strings.Contains(got, unwanted), "unexpected %q in:\n%s", unwanted, got)
			}
		})
	}
}
