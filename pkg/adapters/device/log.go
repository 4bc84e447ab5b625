// Package device provides actuators that move real or simulated hardware.
package device

import (
	"context"
	"log/slog"

	"github.com/aretw0/pacer/pkg/domain"
)

// LogActuator simulates a device by logging every command and tracking the
// resulting cursor position.
type LogActuator struct {
	logger *slog.Logger
	level  slog.Level
	x, y   float64
}

// NewLogActuator creates a simulated actuator writing to logger at level.
func NewLogActuator(logger *slog.Logger, level slog.Level) *LogActuator {
	return &LogActuator{logger: logger, level: level}
}

// Apply logs cmd and accumulates the displacement.
func (a *LogActuator) Apply(ctx context.Context, cmd domain.Command) error {
	a.x += cmd.DX
	a.y += cmd.DY
	a.logger.Log(ctx, a.level, "Move",
		"pattern", cmd.Pattern,
		"step", cmd.Index,
		"dx", cmd.DX,
		"dy", cmd.DY,
		"x", a.x,
		"y", a.y,
		"dwell", cmd.Duration,
	)
	return nil
}
