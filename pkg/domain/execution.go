package domain

import "time"

// RunState is the lifecycle of a single sequencer run.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunCancelled RunState = "cancelled"
)

// Terminal reports whether no further steps can be applied in this state.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunCancelled
}

// Command is what the sequencer hands to the actuator for one step,
// after sensitivity scaling.
type Command struct {
	RunID    string        `json:"run_id"`
	Pattern  string        `json:"pattern"`
	Index    int           `json:"index"`
	DX       float64       `json:"dx"`
	DY       float64       `json:"dy"`
	Duration time.Duration `json:"duration"`
}

// Status is a snapshot of the active execution.
type Status struct {
	ActivePattern string   `json:"active_pattern"`
	RunID         string   `json:"run_id,omitempty"`
	State         RunState `json:"state"`
	// StepIndex is the index of the last applied step, -1 before the first one.
	StepIndex int `json:"step_index"`
	// ConfigRevision increments every time a pattern set is installed.
	ConfigRevision uint64 `json:"config_revision"`
}
