// Package loam persists the pattern document inside a Loam repository,
// optionally versioned with git so every save becomes a commit.
package loam

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/aretw0/pacer/pkg/domain"
)

// DefaultID is the document id used when none is configured.
const DefaultID = "patterns"

const encodingBase64 = "base64"

// Persister implements ports.ConfigPersister and ports.Watchable on Loam.
type Persister struct {
	Repo   *loam.TypedRepository[DocumentMetadata]
	dir    string
	id     string
	format string
}

// Option configures a Persister.
type Option func(*Persister)

// WithID sets the document id inside the repository.
func WithID(id string) Option {
	return func(p *Persister) {
		if id != "" {
			p.id = id
		}
	}
}

// WithFormat records the serialization of saved bodies in the front matter.
func WithFormat(format string) Option {
	return func(p *Persister) {
		p.format = format
	}
}

// Open initializes a Loam repository rooted at dir.
func Open(dir string, versioned bool, opts ...Option) (*Persister, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithVersioning(versioned),
		loam.WithForceTemp(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(absPath, repo, opts...), nil
}

// New wraps an already initialized repository rooted at dir.
func New(dir string, repo core.Repository, opts ...Option) *Persister {
	p := &Persister{
		Repo:   loam.NewTypedRepository[DocumentMetadata](repo),
		dir:    dir,
		id:     DefaultID,
		format: "json",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load returns the stored document body exactly as it was saved.
func (p *Persister) Load(ctx context.Context) ([]byte, error) {
	if !p.exists() {
		return nil, domain.ErrConfigNotFound
	}

	doc, err := p.Repo.Get(ctx, p.id)
	if err != nil {
		return nil, fmt.Errorf("loam get failed for %s: %w", p.id, err)
	}

	if doc.Data.Encoding != encodingBase64 {
		return nil, fmt.Errorf("%s: unsupported body encoding %q", p.id, doc.Data.Encoding)
	}
	body, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace([]byte(doc.Content))))
	if err != nil {
		return nil, fmt.Errorf("%s: corrupt body: %w", p.id, err)
	}
	if sum := checksum(body); doc.Data.Checksum != "" && sum != doc.Data.Checksum {
		return nil, fmt.Errorf("%s: checksum mismatch (stored %s, computed %s)", p.id, doc.Data.Checksum, sum)
	}
	return body, nil
}

// Save writes data as the document body. With versioning enabled Loam commits it.
func (p *Persister) Save(ctx context.Context, data []byte) error {
	err := p.Repo.Save(ctx, &loam.DocumentModel[DocumentMetadata]{
		ID:      p.id,
		Content: base64.StdEncoding.EncodeToString(data),
		Data: DocumentMetadata{
			Format:   p.format,
			Encoding: encodingBase64,
			Size:     len(data),
			Checksum: checksum(data),
			SavedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", p.id, err)
	}
	return nil
}

// Watch implements ports.Watchable.
func (p *Persister) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := p.Repo.Watch(ctx, p.id+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

// exists reports whether any file backs the document id.
func (p *Persister) exists() bool {
	matches, err := filepath.Glob(filepath.Join(p.dir, p.id+".*"))
	return err == nil && len(matches) > 0
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
