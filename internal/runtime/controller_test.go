package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/pacer/internal/runtime"
	"github.com/aretw0/pacer/pkg/adapters/memory"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/events"
	"github.com/aretw0/pacer/pkg/patterns"
	"github.com/aretw0/pacer/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waveDoc = `{"patterns": {"wave": [
	{"dx": 1, "dy": 0, "duration": 100},
	{"dx": 0, "dy": 1, "duration": 100}
]}}`

type fixture struct {
	ctrl      *runtime.Controller
	store     *patterns.Store
	persister *memory.Persister
	recorder  *memory.Recorder
}

func newFixture(t *testing.T, doc string, opts ...runtime.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:    patterns.NewStore(),
		recorder: memory.NewRecorder(),
	}
	if doc == "" {
		f.persister = memory.NewPersister()
	} else {
		f.persister = memory.NewPersisterWith([]byte(doc))
	}
	f.ctrl = runtime.NewController(f.store, f.persister, runtime.NewSequencer(f.recorder), opts...)
	require.NoError(t, f.ctrl.Init(context.Background()))
	t.Cleanup(func() { _ = f.ctrl.Close() })
	return f
}

func expectEvent(t *testing.T, sub *events.Subscription, name string) domain.PatternSelected {
	t.Helper()
	select {
	case evt, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		assert.Equal(t, name, evt.Name)
		return evt
	case <-time.After(2 * time.Second):
		t.Fatalf("no %q notification", name)
	}
	return domain.PatternSelected{}
}

func expectNoEvent(t *testing.T, sub *events.Subscription) {
	t.Helper()
	select {
	case evt := <-sub.C():
		t.Fatalf("unexpected notification %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func pattern(name string, d time.Duration, n int) domain.Pattern {
	p := domain.Pattern{Name: name}
	for i := 0; i < n; i++ {
		p.Steps = append(p.Steps, domain.Step{DX: float64(i + 1), Duration: d})
	}
	return p
}

func TestController_WaveScenario(t *testing.T) {
	f := newFixture(t, waveDoc)
	sub := f.ctrl.Subscribe()
	defer sub.Close()

	require.NoError(t, f.ctrl.SetActivePattern(context.Background(), "wave"))
	evt := expectEvent(t, sub, "wave")
	assert.NotEmpty(t, evt.RunID)

	state, err := f.ctrl.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, state)

	applied := f.recorder.Applied()
	require.Len(t, applied, 2)
	assert.Equal(t, [2]float64{1, 0}, [2]float64{applied[0].Command.DX, applied[0].Command.DY})
	assert.Equal(t, [2]float64{0, 1}, [2]float64{applied[1].Command.DX, applied[1].Command.DY})
	assert.GreaterOrEqual(t, applied[1].At.Sub(applied[0].At), 90*time.Millisecond)

	st := f.ctrl.Status()
	assert.Equal(t, "wave", st.ActivePattern, "completed pattern stays selected")
	assert.Equal(t, domain.RunCompleted, st.State)
	assert.Equal(t, 1, st.StepIndex)
}

func TestController_MissingScenario(t *testing.T) {
	f := newFixture(t, waveDoc)
	sub := f.ctrl.Subscribe()
	defer sub.Close()

	before := f.ctrl.Status()
	err := f.ctrl.SetActivePattern(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrPatternNotFound)

	expectNoEvent(t, sub)
	assert.Equal(t, before, f.ctrl.Status())
	assert.Zero(t, f.recorder.Len())
}

func TestController_MissingKeepsCurrentRun(t *testing.T) {
	f := newFixture(t, `{"patterns": {"long": [{"dx": 1, "dy": 0, "duration": 60000}]}}`)
	ctx := context.Background()

	require.NoError(t, f.ctrl.SetActivePattern(ctx, "long"))
	require.NoError(t, f.recorder.WaitFor(waitCtx(t), 1))
	runID := f.ctrl.Status().RunID

	assert.ErrorIs(t, f.ctrl.SetActivePattern(ctx, "nope"), domain.ErrPatternNotFound)

	st := f.ctrl.Status()
	assert.Equal(t, "long", st.ActivePattern)
	assert.Equal(t, runID, st.RunID)
	assert.Equal(t, domain.RunRunning, st.State)
}

func TestController_SwitchNeverInterleaves(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	require.NoError(t, f.ctrl.SaveConfig(ctx, domain.PatternSet{Patterns: []domain.Pattern{
		pattern("a", 5*time.Millisecond, 50),
		pattern("b", 5*time.Millisecond, 50),
	}}))

	for i := 0; i < 10; i++ {
		name := "a"
		if i%2 == 1 {
			name = "b"
		}
		require.NoError(t, f.ctrl.SetActivePattern(ctx, name))
		time.Sleep(7 * time.Millisecond)
	}
	_, err := f.ctrl.Wait(waitCtx(t))
	require.NoError(t, err)

	// Commands from one run form a single contiguous block: once a new run
	// starts, nothing from an older run may appear.
	finished := map[string]bool{}
	last := ""
	for _, cmd := range f.recorder.Commands() {
		if cmd.RunID != last {
			require.False(t, finished[cmd.RunID], "run %s resumed after a later run started", cmd.RunID)
			if last != "" {
				finished[last] = true
			}
			last = cmd.RunID
		}
	}
	assert.Equal(t, f.ctrl.Status().RunID, last)
	assert.LessOrEqual(t, len(finished), 9)
}

func TestController_ReselectRestartsRun(t *testing.T) {
	f := newFixture(t, `{"patterns": {"p": [{"dx": 1, "dy": 0, "duration": 60000}]}}`)
	ctx := context.Background()
	sub := f.ctrl.Subscribe()
	defer sub.Close()

	require.NoError(t, f.ctrl.SetActivePattern(ctx, "p"))
	first := expectEvent(t, sub, "p")
	require.NoError(t, f.recorder.WaitFor(waitCtx(t), 1))
	require.NoError(t, f.ctrl.SetActivePattern(ctx, "p"))
	second := expectEvent(t, sub, "p")

	assert.NotEqual(t, first.RunID, second.RunID)
	require.NoError(t, f.recorder.WaitFor(waitCtx(t), 2))
	assert.Equal(t, 0, f.recorder.Commands()[1].Index)
}

func TestController_ReloadKeepingActiveNameNeverCancels(t *testing.T) {
	f := newFixture(t, `{"patterns": {"p": [
		{"dx": 1, "dy": 0, "duration": 60000},
		{"dx": 2, "dy": 0, "duration": 0}
	]}}`)
	ctx := context.Background()
	sub := f.ctrl.Subscribe()
	defer sub.Close()

	require.NoError(t, f.ctrl.SetActivePattern(ctx, "p"))
	expectEvent(t, sub, "p")
	require.NoError(t, f.recorder.WaitFor(waitCtx(t), 1))
	runID := f.ctrl.Status().RunID

	// The definition changes but the name survives.
	require.NoError(t, f.persister.Save(ctx, []byte(`{"patterns": {
		"p": [{"dx": 9, "dy": 9, "duration": 1}],
		"q": [{"dx": 0, "dy": 0, "duration": 1}]
	}}`)))
	require.NoError(t, f.ctrl.ReloadConfig(ctx))

	st := f.ctrl.Status()
	assert.Equal(t, "p", st.ActivePattern)
	assert.Equal(t, runID, st.RunID)
	assert.Equal(t, domain.RunRunning, st.State)
	assert.Equal(t, uint64(2), st.ConfigRevision)
	expectNoEvent(t, sub)
}

func TestController_ReloadDroppingActiveNameClearsIt(t *testing.T) {
	f := newFixture(t, `{"patterns": {"p": [{"dx": 1, "dy": 0, "duration": 60000}]}}`)
	ctx := context.Background()
	sub := f.ctrl.Subscribe()
	defer sub.Close()

	require.NoError(t, f.ctrl.SetActivePattern(ctx, "p"))
	expectEvent(t, sub, "p")
	require.NoError(t, f.recorder.WaitFor(waitCtx(t), 1))

	require.NoError(t, f.persister.Save(ctx, []byte(`{"patterns": {"q": [{"dx": 0, "dy": 0, "duration": 1}]}}`)))
	require.NoError(t, f.ctrl.ReloadConfig(ctx))

	expectEvent(t, sub, "")
	st := f.ctrl.Status()
	assert.Empty(t, st.ActivePattern)
	assert.Equal(t, domain.RunIdle, st.State)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, f.recorder.Len())
}

func TestController_FailedReloadLeavesEverythingUntouched(t *testing.T) {
	f := newFixture(t, `{"patterns": {"p": [{"dx": 1, "dy": 0, "duration": 60000}]}}`)
	ctx := context.Background()

	require.NoError(t, f.ctrl.SetActivePattern(ctx, "p"))
	require.NoError(t, f.recorder.WaitFor(waitCtx(t), 1))
	time.Sleep(10 * time.Millisecond)
	before := f.ctrl.Status()

	t.Run("invalid document", func(t *testing.T) {
		require.NoError(t, f.persister.Save(ctx, []byte(`{"patterns": {"p": []}}`)))
		err := f.ctrl.ReloadConfig(ctx)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("io failure", func(t *testing.T) {
		boom := errors.New("disk gone")
		f.persister.FailLoad(boom)
		defer f.persister.FailLoad(nil)

		err := f.ctrl.ReloadConfig(ctx)
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.ErrorIs(t, err, boom)
	})

	assert.Equal(t, before, f.ctrl.Status())
	assert.True(t, f.store.Has("p"))
}

func TestController_InvalidSaveLeavesStorageAndMemoryUnchanged(t *testing.T) {
	f := newFixture(t, waveDoc)
	ctx := context.Background()
	stored, err := f.persister.Load(ctx)
	require.NoError(t, err)
	config := f.ctrl.GetConfig()

	invalid := []domain.PatternSet{
		{Patterns: []domain.Pattern{{Name: "", Steps: []domain.Step{{DX: 1}}}}},
		{Patterns: []domain.Pattern{{Name: "empty"}}},
	}
	for _, set := range invalid {
		err := f.ctrl.SaveConfig(ctx, set)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}

	after, err := f.persister.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(stored), string(after))
	assert.Equal(t, config, f.ctrl.GetConfig())
	assert.Zero(t, f.persister.Saves())
}

func TestController_FailedPersistLeavesMemoryUnchanged(t *testing.T) {
	f := newFixture(t, waveDoc)
	ctx := context.Background()
	config := f.ctrl.GetConfig()

	boom := errors.New("read-only")
	f.persister.FailSave(boom)

	err := f.ctrl.SaveConfig(ctx, domain.PatternSet{Patterns: []domain.Pattern{pattern("other", 0, 1)}})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, config, f.ctrl.GetConfig())
}

func TestController_SaveReloadRoundTrip(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	cfg := domain.PatternSet{
		Sensitivity: &domain.Sensitivity{X: 1.25, Y: 0.5},
		Patterns: []domain.Pattern{
			{Name: "zeta", Steps: []domain.Step{{DX: -1.5, DY: 2, Duration: 1500 * time.Microsecond}}},
			{Name: "alpha", Steps: []domain.Step{{DX: 0, DY: 0, Duration: 0}, {DX: 1e-3, DY: 1e6, Duration: time.Hour}}},
		},
	}

	require.NoError(t, f.ctrl.SaveConfig(ctx, cfg))
	require.NoError(t, f.ctrl.ReloadConfig(ctx))
	assert.Equal(t, cfg, f.ctrl.GetConfig())
}

func TestController_SaveDroppingActiveNameClearsIt(t *testing.T) {
	f := newFixture(t, `{"patterns": {"p": [{"dx": 1, "dy": 0, "duration": 60000}]}}`)
	ctx := context.Background()
	sub := f.ctrl.Subscribe()
	defer sub.Close()

	require.NoError(t, f.ctrl.SetActivePattern(ctx, "p"))
	expectEvent(t, sub, "p")

	require.NoError(t, f.ctrl.SaveConfig(ctx, domain.PatternSet{Patterns: []domain.Pattern{pattern("q", 0, 1)}}))
	expectEvent(t, sub, "")
	assert.Empty(t, f.ctrl.Status().ActivePattern)
}

func TestController_SaveConfigBytesMigratesLegacy(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	err := f.ctrl.SaveConfigBytes(ctx, []byte(`{"version": 1, "patterns": {"p": [{"x": 5, "y": 5, "delay": 10}]}}`))
	require.NoError(t, err)

	stored, err := f.persister.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"dx": 5`)
	assert.NotContains(t, string(stored), `"delay"`)
}

func TestController_ClearActivePattern(t *testing.T) {
	f := newFixture(t, `{"patterns": {"p": [{"dx": 1, "dy": 0, "duration": 60000}]}}`)
	ctx := context.Background()
	sub := f.ctrl.Subscribe()
	defer sub.Close()

	require.NoError(t, f.ctrl.ClearActivePattern(ctx))
	expectNoEvent(t, sub)

	require.NoError(t, f.ctrl.SetActivePattern(ctx, "p"))
	expectEvent(t, sub, "p")
	require.NoError(t, f.ctrl.ClearActivePattern(ctx))
	expectEvent(t, sub, "")

	assert.Equal(t, domain.RunIdle, f.ctrl.Status().State)
}

func TestController_LongDwellDoesNotBlockCommands(t *testing.T) {
	f := newFixture(t, `{"patterns": {"p": [{"dx": 1, "dy": 0, "duration": 60000}]}}`)
	ctx := context.Background()

	require.NoError(t, f.ctrl.SetActivePattern(ctx, "p"))
	require.NoError(t, f.recorder.WaitFor(waitCtx(t), 1))

	done := make(chan error, 1)
	go func() { done <- f.ctrl.ReloadConfig(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reload blocked behind the sequencer dwell")
	}
}

func TestController_CommandsAreSerialized(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	require.NoError(t, f.ctrl.SaveConfig(ctx, domain.PatternSet{Patterns: []domain.Pattern{
		pattern("a", time.Millisecond, 3),
		pattern("b", time.Millisecond, 3),
	}}))
	sub := f.ctrl.Subscribe()
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				_ = f.ctrl.SetActivePattern(ctx, "a")
			case 1:
				_ = f.ctrl.SetActivePattern(ctx, "b")
			default:
				_ = f.ctrl.ReloadConfig(ctx)
			}
		}(i)
	}
	wg.Wait()

	// The last notification names the pattern left selected.
	var last domain.PatternSelected
	for {
		select {
		case evt := <-sub.C():
			last = evt
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}
	assert.Equal(t, f.ctrl.Status().ActivePattern, last.Name)
	assert.Equal(t, f.ctrl.Status().RunID, last.RunID)
}

func TestController_ClosedRejectsCommands(t *testing.T) {
	f := newFixture(t, waveDoc)
	ctx := context.Background()
	sub := f.ctrl.Subscribe()

	require.NoError(t, f.ctrl.SetActivePattern(ctx, "wave"))
	require.NoError(t, f.ctrl.Close())

	assert.ErrorIs(t, f.ctrl.SetActivePattern(ctx, "wave"), domain.ErrEngineClosed)
	assert.ErrorIs(t, f.ctrl.ReloadConfig(ctx), domain.ErrEngineClosed)
	assert.ErrorIs(t, f.ctrl.SaveConfig(ctx, domain.PatternSet{}), domain.ErrEngineClosed)
	assert.ErrorIs(t, f.ctrl.ClearActivePattern(ctx), domain.ErrEngineClosed)

	// Queued notifications drain, then the channel closes.
	for range sub.C() {
	}
	assert.Empty(t, f.ctrl.Status().ActivePattern)
	require.NoError(t, f.ctrl.Close())
}

func TestController_InitWithoutStoredConfig(t *testing.T) {
	f := newFixture(t, "")
	assert.Empty(t, f.ctrl.GetConfig().Patterns)
	assert.Equal(t, uint64(0), f.ctrl.Status().ConfigRevision)
}

func TestController_ConfigHook(t *testing.T) {
	var got []string
	hooks := domain.LifecycleHooks{
		OnConfigInstalled: func(_ context.Context, e *domain.ConfigEvent) {
			got = append(got, e.Source)
		},
	}
	f := newFixture(t, waveDoc, runtime.WithHooks(hooks))
	require.NoError(t, f.ctrl.SaveConfig(context.Background(), f.ctrl.GetConfig()))
	assert.Equal(t, []string{"reload", "save"}, got)
}

type countingLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	lastKey  string
	failWith error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.locks++
	l.lastKey = key
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestController_LockerGuardsSaves(t *testing.T) {
	locker := &countingLocker{}
	f := newFixture(t, waveDoc, runtime.WithLocker(locker, "test:key", time.Second))
	ctx := context.Background()

	require.NoError(t, f.ctrl.SaveConfig(ctx, f.ctrl.GetConfig()))
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
	assert.Equal(t, "test:key", locker.lastKey)

	locker.failWith = errors.New("lock timeout")
	err := f.ctrl.SaveConfig(ctx, f.ctrl.GetConfig())
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 1, f.persister.Saves())
}
