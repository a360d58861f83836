package plugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "SongForge/internal/errors"
)

type fakePlugin struct {
	*Lifecycle
	disposals  atomic.Int32
	disposeErr error
}

func newFake(id string) *fakePlugin {
	return &fakePlugin{Lifecycle: NewLifecycle(Identity{
		ID:             id,
		Name:           "Fake " + id,
		Version:        "0.0.1",
		RequiredConfig: []string{"API_KEY"},
		OptionalConfig: map[string]string{"textModel": "fake-text"},
	})}
}

func (f *fakePlugin) Initialize(_ context.Context, cfg map[string]string) error {
	resolved, err := f.Resolve(cfg)
	if err != nil {
		return err
	}
	f.MarkReady(resolved)
	return nil
}

func (f *fakePlugin) Dispose() error {
	f.disposals.Add(1)
	f.Reset()
	return f.disposeErr
}

func (f *fakePlugin) GenerateLyrics(context.Context, LyricsParams) (LyricsResult, error) {
	if err := f.Ensure(); err != nil {
		return LyricsResult{}, err
	}
	return LyricsResult{Title: "t", Lyrics: "[Verse]\nla", StylePrompt: "pop"}, nil
}

// midiOnly implements a single contract.
type midiOnly struct{ *fakePlugin }

func (m midiOnly) GenerateMidi(context.Context, MidiParams) (string, error) { return "TVRoZA==", nil }

func quietRegistry(opts ...Option) *Registry {
	audit := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewRegistry(append([]Option{WithAuditLogger(audit)}, opts...)...)
}

func TestRegistryTotalMatchesSuccessfulRegistrations(t *testing.T) {
	reg := quietRegistry()
	for i := 0; i < 5; i++ {
		require.NoError(t, reg.Register(TypeLyrics, newFake(fmt.Sprintf("p-%d", i)), false))
	}
	require.Error(t, reg.Register(TypeLyrics, newFake("p-1"), false))

	s := reg.Summary()
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 5, s.ByType[TypeLyrics])
	assert.Equal(t, 0, s.ByType[TypeMidi])
	assert.Equal(t, "", s.Active[TypeLyrics])
	assert.Len(t, s.Active, len(CapabilityTypes()))
}

func TestRegistryActivationScenario(t *testing.T) {
	reg := quietRegistry()
	a, b := newFake("gemini-default"), newFake("alt-default")

	require.NoError(t, reg.Register(TypeLyrics, a, false))
	require.NoError(t, reg.Activate("gemini-default"))
	require.NoError(t, reg.Register(TypeLyrics, b, false))
	require.NoError(t, reg.Activate("alt-default"))

	active, ok := reg.Active(TypeLyrics)
	require.True(t, ok)
	assert.Equal(t, "alt-default", active.ID)

	entryA, ok := reg.Get("gemini-default")
	require.True(t, ok)
	assert.False(t, entryA.Active)
}

func TestRegistryRegisterWithActivateReplacesActive(t *testing.T) {
	reg := quietRegistry()
	require.NoError(t, reg.Register(TypeLyrics, newFake("first"), true))
	require.NoError(t, reg.Register(TypeLyrics, newFake("second"), true))

	active, ok := reg.Active(TypeLyrics)
	require.True(t, ok)
	assert.Equal(t, "second", active.ID)
	first, _ := reg.Get("first")
	assert.False(t, first.Active)
}

func TestRegistryRoundTripReturnsSameInstance(t *testing.T) {
	reg := quietRegistry()
	p := newFake("gemini-default")
	require.NoError(t, p.Initialize(context.Background(), map[string]string{"API_KEY": "k"}))
	require.NoError(t, reg.Register(TypeLyrics, p, true))

	got, entry, err := reg.ActiveLyrics()
	require.NoError(t, err)
	assert.Same(t, p, got)
	assert.True(t, entry.Active)
	assert.True(t, reg.IsReady("gemini-default"))
}

func TestRegistryDuplicateLeavesStateUnchanged(t *testing.T) {
	reg := quietRegistry()
	original := newFake("dup")
	require.NoError(t, reg.Register(TypeLyrics, original, true))
	before := reg.Entries()

	err := reg.Register(TypeLyrics, newFake("dup"), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, xerrors.CodeConflict, xerrors.CodeOf(err))
	assert.Equal(t, before, reg.Entries())

	e, _ := reg.Get("dup")
	assert.Same(t, original, e.Plugin)
}

func TestRegistryUnknownIDs(t *testing.T) {
	reg := quietRegistry()
	require.NoError(t, reg.Register(TypeLyrics, newFake("known"), true))
	before := reg.Summary()

	err := reg.Activate("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = reg.Deactivate("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, reg.Unregister("missing"))
	assert.False(t, reg.IsReady("missing"))
	_, ok := reg.Identity("missing")
	assert.False(t, ok)
	assert.True(t, errors.Is(reg.Initialize(context.Background(), "missing", nil), ErrNotFound))

	assert.Equal(t, before, reg.Summary())
}

func TestRegistryUnregisterDisposesOnce(t *testing.T) {
	reg := quietRegistry()
	p := newFake("gone")
	require.NoError(t, reg.Register(TypeLyrics, p, true))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Unregister("gone")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.disposals.Load())
	_, ok := reg.Get("gone")
	assert.False(t, ok)
	_, ok = reg.Active(TypeLyrics)
	assert.False(t, ok)
}

func TestRegistryUnregisterReturnsDisposeError(t *testing.T) {
	reg := quietRegistry()
	p := newFake("broken")
	p.disposeErr = errors.New("socket stuck")
	require.NoError(t, reg.Register(TypeLyrics, p, false))

	err := reg.Unregister("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "socket stuck")
	assert.Equal(t, 0, reg.Summary().Total)
}

func TestRegistryDeactivateOnlyTouchesTarget(t *testing.T) {
	reg := quietRegistry()
	require.NoError(t, reg.Register(TypeLyrics, newFake("lyrics"), true))
	require.NoError(t, reg.Register(TypeMidi, midiOnly{newFake("midi")}, true))

	require.NoError(t, reg.Deactivate("lyrics"))
	_, ok := reg.Active(TypeLyrics)
	assert.False(t, ok)
	e, ok := reg.Active(TypeMidi)
	require.True(t, ok)
	assert.Equal(t, "midi", e.ID)
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	reg := quietRegistry()

	err := reg.Register(TypeMidi, newFake("no-midi"), false)
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	err = reg.Register(CapabilityType("video"), newFake("video"), false)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	err = reg.Register(TypeLyrics, nil, false)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	err = reg.Register(TypeLyrics, newFake("x"), false, WithEntryID("  "))
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	assert.Equal(t, 0, reg.Summary().Total)
}

func TestRegistrySameInstanceUnderSeveralTypes(t *testing.T) {
	reg := quietRegistry()
	p := midiOnly{newFake("multi")}
	require.NoError(t, reg.Register(TypeLyrics, p, true))
	require.NoError(t, reg.Register(TypeMidi, p, true, WithEntryID("multi/midi")))

	lyrics, _, err := reg.ActiveLyrics()
	require.NoError(t, err)
	midi, _, err := reg.ActiveMidi()
	require.NoError(t, err)
	assert.Equal(t, lyrics.Identity().ID, midi.Identity().ID)

	s := reg.Summary()
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, "multi/midi", s.Active[TypeMidi])
}

func TestRegistryNoActivePlugin(t *testing.T) {
	reg := quietRegistry()
	_, _, err := reg.ActiveEvaluator()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoActive))
}

func TestRegistryConcurrentActivationKeepsSingleActive(t *testing.T) {
	reg := quietRegistry()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		require.NoError(t, reg.Register(TypeLyrics, newFake(id), false))
	}

	stop := make(chan struct{})
	violations := atomic.Int32{}
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			active := 0
			for _, e := range reg.ByType(TypeLyrics) {
				if e.Active {
					active++
				}
			}
			if active > 1 {
				violations.Add(1)
			}
		}
	}()

	var writers sync.WaitGroup
	for i := 0; i < 200; i++ {
		writers.Add(1)
		go func(id string) {
			defer writers.Done()
			_ = reg.Activate(id)
		}(ids[i%len(ids)])
	}
	writers.Wait()
	close(stop)
	readers.Wait()

	assert.Zero(t, violations.Load())
	_, ok := reg.Active(TypeLyrics)
	assert.True(t, ok)
}

func TestRegistryObserverAndClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var seen []Summary
	reg := quietRegistry(WithClock(func() time.Time { return fixed }), WithObserver(func(s Summary) {
		seen = append(seen, s)
	}))

	require.NoError(t, reg.Register(TypeLyrics, newFake("obs"), true))
	require.NoError(t, reg.Deactivate("obs"))
	require.NoError(t, reg.Unregister("obs"))

	require.Len(t, seen, 3)
	assert.Equal(t, "obs", seen[0].Active[TypeLyrics])
	assert.Equal(t, "", seen[1].Active[TypeLyrics])
	assert.Equal(t, 0, seen[2].Total)

	require.NoError(t, reg.Register(TypeLyrics, newFake("later"), false))
	e, _ := reg.Get("later")
	assert.Equal(t, fixed, e.RegisteredAt)
}

func TestRegistryInitializeAndClose(t *testing.T) {
	reg := quietRegistry()
	a, b := newFake("a"), newFake("b")
	require.NoError(t, reg.Register(TypeLyrics, a, true))
	require.NoError(t, reg.Register(TypeLyrics, b, false))

	err := reg.Initialize(context.Background(), "a", map[string]string{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.False(t, reg.IsReady("a"))

	require.NoError(t, reg.Initialize(context.Background(), "a", map[string]string{"API_KEY": "k"}))
	assert.True(t, reg.IsReady("a"))

	require.NoError(t, reg.Close())
	assert.Equal(t, 0, reg.Summary().Total)
	assert.Equal(t, int32(1), a.disposals.Load())
	assert.Equal(t, int32(1), b.disposals.Load())
	assert.False(t, a.IsReady())
}

func TestRegistryDisposesSharedInstanceWithLastEntry(t *testing.T) {
	reg := quietRegistry()
	inner := newFake("shared")
	require.NoError(t, inner.Initialize(context.Background(), map[string]string{"API_KEY": "k"}))
	p := midiOnly{inner}
	require.NoError(t, reg.Register(TypeLyrics, p, true))
	require.NoError(t, reg.Register(TypeMidi, p, true, WithEntryID("shared/midi")))

	require.NoError(t, reg.Unregister("shared/midi"))
	assert.Equal(t, int32(0), inner.disposals.Load())
	assert.True(t, reg.IsReady("shared"))

	require.NoError(t, reg.Unregister("shared"))
	assert.Equal(t, int32(1), inner.disposals.Load())
}
