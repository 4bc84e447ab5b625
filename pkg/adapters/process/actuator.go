// Package process drives an external program once per step.
//
// Step values are passed as PACER_* environment variables rather than
// arguments, so pattern data can never inject flags into the command line.
package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/pacer/pkg/domain"
)

// Actuator implements ports.Actuator by executing a configured command.
type Actuator struct {
	cfg CommandConfig
}

// NewActuator creates an actuator running cfg.Command for every step.
func NewActuator(cfg CommandConfig) *Actuator {
	return &Actuator{cfg: cfg}
}

// Env returns the variables describing cmd.
func Env(cmd domain.Command) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		"PACER_RUN_ID=" + cmd.RunID,
		"PACER_PATTERN=" + cmd.Pattern,
		"PACER_STEP=" + strconv.Itoa(cmd.Index),
		"PACER_DX=" + f(cmd.DX),
		"PACER_DY=" + f(cmd.DY),
		"PACER_DURATION_MS=" + f(float64(cmd.Duration)/float64(time.Millisecond)),
	}
}

// Apply runs the command and waits for it. Cancelling ctx kills the process.
func (a *Actuator) Apply(ctx context.Context, cmd domain.Command) error {
	proc := exec.CommandContext(ctx, a.cfg.Command, a.cfg.Args...)
	proc.Dir = a.cfg.Dir

	env := proc.Environ()
	for k, v := range a.cfg.Environment {
		env = append(env, k+"="+v)
	}
	proc.Env = append(env, Env(cmd)...)

	var stderr bytes.Buffer
	proc.Stderr = &stderr

	if err := proc.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("actuator command failed: %w. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
