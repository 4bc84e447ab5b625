package ports

import (
	"context"
	"testing"

	"github.com/aretw0/pacer/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPersisterContract runs a suite of tests to verify that a ConfigPersister implementation
// adheres to the defined interface contract.
// The persister must be empty when the suite starts.
func RunPersisterContract(t *testing.T, p ConfigPersister) {
	ctx := context.Background()

	t.Run("Load Empty", func(t *testing.T) {
		_, err := p.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrConfigNotFound)
	})

	t.Run("Save and Load", func(t *testing.T) {
		doc := []byte(`{"version": 2, "patterns": {"wave": [{"dx": 1, "dy": 0, "duration": 100}]}}`)

		err := p.Save(ctx, doc)
		require.NoError(t, err, "Save should not return error")

		loaded, err := p.Load(ctx)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, string(doc), string(loaded))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, p.Save(ctx, []byte("first")))
		require.NoError(t, p.Save(ctx, []byte("second")))

		loaded, err := p.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second", string(loaded))
	})

	t.Run("Bytes Are Not Interpreted", func(t *testing.T) {
		// Persisters move bytes; validation happens elsewhere.
		raw := []byte("not a pattern document \x00\xff")
		require.NoError(t, p.Save(ctx, raw))

		loaded, err := p.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, raw, loaded)
	})

	t.Run("Load Returns A Copy", func(t *testing.T) {
		require.NoError(t, p.Save(ctx, []byte("stable")))

		loaded, err := p.Load(ctx)
		require.NoError(t, err)
		loaded[0] = 'X'

		again, err := p.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "stable", string(again))
	})
}
