package ports

import "context"

// ConfigPersister stores the raw pattern document.
// Implementations move bytes only: decoding and validation belong to the pattern store.
type ConfigPersister interface {
	// Load returns the last saved document.
	// Returns domain.ErrConfigNotFound if nothing has been stored yet.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored document. A failed Save must leave the previous
	// document readable.
	Save(ctx context.Context, data []byte) error
}
