package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/pacer/pkg/ports"
)

// WatchableContractTest is a reusable test suite that verifies if an adapter complies with ports.Watchable.
// touch must modify the watched document.
func WatchableContractTest(t *testing.T, w ports.Watchable, touch func()) {
	t.Helper()

	// 1. A change is signaled
	t.Run("Signals_On_Change", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := w.Watch(ctx)
		if err != nil {
			t.Fatalf("unexpected error starting watch: %v", err)
		}

		touch()

		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("expected a change signal, got none")
		}
	})

	// 2. Cancelling the context closes the channel
	t.Run("Closes_On_Cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		ch, err := w.Watch(ctx)
		if err != nil {
			t.Fatalf("unexpected error starting watch: %v", err)
		}
		cancel()

		deadline := time.After(5 * time.Second)
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("watch channel was not closed after cancel")
			}
		}
	})
}
