package ports

import (
	"context"

	"github.com/aretw0/pacer/pkg/domain"
)

// Subscription is one subscriber's ordered view of pattern-selected notifications.
type Subscription interface {
	// C delivers every notification published after Subscribe, in publish order.
	// It is closed after Close or when the engine shuts down.
	C() <-chan domain.PatternSelected
	Close()
}

// Engine is the command surface shared by every boundary (HTTP, MCP, CLI).
type Engine interface {
	// GetConfig returns a copy of the installed pattern set.
	GetConfig() domain.PatternSet

	// SetActivePattern cancels the current run and starts the named pattern.
	SetActivePattern(ctx context.Context, name string) error

	// ClearActivePattern cancels the current run and leaves no pattern selected.
	ClearActivePattern(ctx context.Context) error

	// SaveConfig validates, persists and installs a new pattern set.
	SaveConfig(ctx context.Context, set domain.PatternSet) error

	// SaveConfigBytes decodes a raw document and saves it.
	SaveConfigBytes(ctx context.Context, data []byte) error

	// ReloadConfig reads the persisted document and installs it.
	ReloadConfig(ctx context.Context) error

	// Status reports the active execution.
	Status() domain.Status

	// Subscribe registers a new pattern-selected subscriber.
	Subscribe() Subscription
}
