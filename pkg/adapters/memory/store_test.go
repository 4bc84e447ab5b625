package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/pacer/pkg/adapters/memory"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPersister_Contract(t *testing.T) {
	ports.RunPersisterContract(t, memory.NewPersister())
}

func TestMemoryPersister_InjectedFailures(t *testing.T) {
	ctx := context.Background()
	p := memory.NewPersisterWith([]byte("original"))
	boom := errors.New("disk full")

	p.FailSave(boom)
	assert.ErrorIs(t, p.Save(ctx, []byte("new")), boom)

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "original", string(loaded), "failed save must keep the previous document")
	assert.Equal(t, 0, p.Saves())

	p.FailSave(nil)
	p.FailLoad(boom)
	_, err = p.Load(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRecorder()

	require.NoError(t, r.Apply(ctx, domain.Command{Index: 0}))
	require.NoError(t, r.Apply(ctx, domain.Command{Index: 1}))
	require.NoError(t, r.WaitFor(ctx, 2))

	cmds := r.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, 1, cmds[1].Index)

	boom := errors.New("unplugged")
	r.FailWith(func(domain.Command) error { return boom })
	assert.ErrorIs(t, r.Apply(ctx, domain.Command{Index: 2}), boom)
	assert.Equal(t, 3, r.Len(), "failed applies are still recorded")

	r.Reset()
	assert.Zero(t, r.Len())
}
