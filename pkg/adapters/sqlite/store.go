// Package sqlite keeps every saved pattern document as a revision row.
// Load returns the newest revision; older ones stay available for audit.
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/pacer/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultName is the document name used when none is configured.
const DefaultName = "patterns"

// Revision describes one stored version of the document.
type Revision struct {
	ID       int64
	Checksum string
	Size     int
	SavedAt  time.Time
}

// Persister implements ports.ConfigPersister on top of SQLite.
type Persister struct {
	db   *sql.DB
	name string
	now  func() time.Time
}

// Option configures a Persister.
type Option func(*Persister)

// WithName selects which document the persister reads and writes.
// Several documents may share one database file.
func WithName(name string) Option {
	return func(p *Persister) {
		if name != "" {
			p.name = name
		}
	}
}

// Open creates or opens the database at path and applies the schema.
func Open(path string, opts ...Option) (*Persister, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	p := &Persister{db: db, name: DefaultName, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (p *Persister) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Load returns the newest revision.
func (p *Persister) Load(ctx context.Context) ([]byte, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT body FROM config_revisions
		WHERE name = ?
		ORDER BY id DESC
		LIMIT 1
	`, p.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.name, err)
	}
	if body == nil {
		body = []byte{}
	}
	return body, nil
}

// Save appends a new revision.
func (p *Persister) Save(ctx context.Context, data []byte) error {
	sum := sha256.Sum256(data)
	if data == nil {
		data = []byte{}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO config_revisions (name, body, checksum, saved_at)
		VALUES (?, ?, ?, ?)
	`, p.name, data, hex.EncodeToString(sum[:]), p.now().UnixNano())
	if err != nil {
		return fmt.Errorf("save %s: %w", p.name, err)
	}
	return nil
}

// Revisions lists stored revisions, newest first.
func (p *Persister) Revisions(ctx context.Context) ([]Revision, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, checksum, length(body), saved_at FROM config_revisions
		WHERE name = ?
		ORDER BY id DESC
	`, p.name)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			r     Revision
			saved int64
		)
		if err := rows.Scan(&r.ID, &r.Checksum, &r.Size, &saved); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		r.SavedAt = time.Unix(0, saved)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadRevision returns the body stored under a specific revision id.
func (p *Persister) LoadRevision(ctx context.Context, id int64) ([]byte, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT body FROM config_revisions WHERE name = ? AND id = ?
	`, p.name, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %d: %w", id, domain.ErrConfigNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load revision %d: %w", id, err)
	}
	return body, nil
}
