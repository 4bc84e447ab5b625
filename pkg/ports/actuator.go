package ports

import (
	"context"

	"github.com/aretw0/pacer/pkg/domain"
)

// Actuator applies positional commands.
// The sequencer emits one Command per step, and the host implements this interface to move the device.
type Actuator interface {
	Apply(ctx context.Context, cmd domain.Command) error
}

// ActuatorFunc adapts a plain function to the Actuator interface.
type ActuatorFunc func(ctx context.Context, cmd domain.Command) error

// Apply calls f(ctx, cmd).
func (f ActuatorFunc) Apply(ctx context.Context, cmd domain.Command) error {
	return f(ctx, cmd)
}
