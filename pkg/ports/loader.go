package ports

import "context"

// Watchable defines an interface for persisters that can notify about backend changes.
// This is used for hot-reload: the engine calls ReloadConfig on every signal.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying document changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
