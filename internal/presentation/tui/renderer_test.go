package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/pacer/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternTable(t *testing.T) {
	set := domain.PatternSet{
		Sensitivity: &domain.Sensitivity{X: 2, Y: 1.5},
		Patterns: []domain.Pattern{
			{Name: "wave", Steps: []domain.Step{
				{DX: 1, DY: 0, Duration: 100 * time.Millisecond},
				{DX: 0, DY: 1, Duration: 150 * time.Millisecond},
			}},
			{Name: "still", Steps: []domain.Step{{}}},
		},
	}

	md := PatternTable(set, "wave")
	assert.Contains(t, md, "Sensitivity: x=2 y=1.5")
	assert.Contains(t, md, "| **wave** (active) | 2 | 250ms | (1, 1) |")
	assert.Contains(t, md, "| still | 1 | 0s | (0, 0) |")
}

func TestPatternTable_Empty(t *testing.T) {
	assert.Contains(t, PatternTable(domain.PatternSet{}, ""), "No patterns configured")
}

func TestRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)

	out, err := render(PatternTable(domain.PatternSet{}, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "Patterns")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}
