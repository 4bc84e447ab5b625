package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/pacer/pkg/adapters/sqlite"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, opts ...sqlite.Option) *sqlite.Persister {
	t.Helper()
	p, err := sqlite.Open(filepath.Join(t.TempDir(), "pacer.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSQLitePersister_Contract(t *testing.T) {
	ports.RunPersisterContract(t, open(t))
}

func TestSQLitePersister_KeepsRevisions(t *testing.T) {
	ctx := context.Background()
	p := open(t)

	require.NoError(t, p.Save(ctx, []byte("one")))
	require.NoError(t, p.Save(ctx, []byte("two!")))

	revs, err := p.Revisions(ctx)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, 4, revs[0].Size)
	assert.Equal(t, 3, revs[1].Size)
	assert.Greater(t, revs[0].ID, revs[1].ID)
	assert.NotEqual(t, revs[0].Checksum, revs[1].Checksum)

	old, err := p.LoadRevision(ctx, revs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "one", string(old))

	_, err = p.LoadRevision(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestSQLitePersister_NamesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	a, err := sqlite.Open(path, sqlite.WithName("a"))
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Save(ctx, []byte("for a")))
	require.NoError(t, a.Close())

	b, err := sqlite.Open(path, sqlite.WithName("b"))
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestSQLitePersister_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pacer.db")

	p, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, p.Save(ctx, []byte("persisted")))
	require.NoError(t, p.Close())

	p, err = sqlite.Open(path)
	require.NoError(t, err)
	defer p.Close()

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}
