package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/pacer/pkg/domain"
)

// DefaultPath is used when New receives an empty path.
var DefaultPath = filepath.Join(".pacer", "patterns.json")

// Persister implements ports.ConfigPersister using a single file on the local filesystem.
type Persister struct {
	Path string
}

// New creates a Persister for path.
// If path is empty, it defaults to ".pacer/patterns.json".
func New(path string) *Persister {
	if path == "" {
		path = DefaultPath
	}
	return &Persister{Path: path}
}

// Save writes the document atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (p *Persister) Save(ctx context.Context, data []byte) error {
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(p.Path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, p.Path); err != nil {
		return fmt.Errorf("failed to rename temp file over config: %w", err)
	}
	return nil
}

// Load reads the document.
func (p *Persister) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}
