package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"crovlune/onboarding/lib/catalog"
	"crovlune/onboarding/lib/history"
	"crovlune/onboarding/lib/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	Name  string
	Props telemetry.Properties
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) Emit(name string, props telemetry.Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{Name: name, Props: props})
}

func (r *recordingEmitter) EmitItem(ev telemetry.ItemEvent) {
	r.Emit(ev.Name(), telemetry.Properties{"timestamp": ev.ElapsedSeconds})
}

func (r *recordingEmitter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

type staticSource struct {
	entries []catalog.RawEntry
	err     error
}

func (s staticSource) Fetch(ctx context.Context) ([]catalog.RawEntry, error) {
	return s.entries, s.err
}

func TestEndToEndEndedWritesThrough(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	e := New(store, nil)

	s := e.Load(ctx, staticSource{entries: []catalog.RawEntry{{ID: "a", Title: "T1"}, {ID: "b", Title: "T2"}}})
	require.Len(t, s.Items, 2)
	for _, it := range s.Items {
		assert.False(t, it.Completed)
		assert.Zero(t, it.ElapsedSeconds)
	}
	assert.True(t, s.IsPanelOpen)

	s = e.Dispatch(ctx, ItemEnded{Index: 0})
	assert.True(t, s.Items[0].Completed)
	assert.False(t, s.Items[1].Completed)

	p, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.Completed)

	p, ok, err = store.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, p.Completed)
}

func TestProgressWritesThroughWithDuration(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	e := New(store, nil)
	e.Load(ctx, staticSource{entries: []catalog.RawEntry{{ID: "a"}}})

	e.Dispatch(ctx, ItemDurationKnown{Index: 0, DurationSeconds: 120})
	e.Dispatch(ctx, ItemProgress{Index: 0, ElapsedSeconds: 33})

	p, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 33.0, p.ElapsedSeconds)
	require.NotNil(t, p.DurationSeconds)
	assert.Equal(t, 120.0, *p.DurationSeconds)
	assert.False(t, p.Completed)
}

func TestLoadRestoresHistoryAcrossSessions(t *testing.T) {
	ctx := context.Background()
	store := history.NewDiskStore(t.TempDir())
	src := staticSource{entries: []catalog.RawEntry{{ID: "a"}, {ID: "b"}}}

	first := New(store, nil)
	first.Load(ctx, src)
	first.Dispatch(ctx, ItemEnded{Index: 0})
	first.Dispatch(ctx, ItemEnded{Index: 1})

	second := New(store, nil)
	s := second.Load(ctx, src)
	assert.True(t, s.AllPreviouslyCompleted)
	assert.False(t, s.IsPanelOpen)
	assert.True(t, s.Visible())
	assert.Equal(t, 100, s.CompletedPercent())
}

func TestLoadFailureIsUnavailable(t *testing.T) {
	e := New(history.NewMemoryStore(), nil)
	s := e.Load(context.Background(), staticSource{err: catalog.ErrUnavailable})
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.Items)
	assert.False(t, s.Visible())
}

func TestLoadTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
		w.Write([]byte(`[{"id":"a"}]`))
	}))
	defer srv.Close()

	e := New(history.NewMemoryStore(), nil)
	s := e.Load(context.Background(), catalog.NewFetcher(srv.URL, 1000*time.Millisecond))
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.Items)
}

func TestDispatchTelemetry(t *testing.T) {
	ctx := context.Background()
	rec := &recordingEmitter{}
	e := New(history.NewMemoryStore(), rec)

	e.Dispatch(ctx, TogglePanel{})
	assert.Empty(t, rec.names())

	e.Load(ctx, staticSource{entries: []catalog.RawEntry{{ID: "a"}, {ID: "b"}}})
	e.Dispatch(ctx, TogglePanel{})
	e.Dispatch(ctx, TogglePanel{})
	e.Dispatch(ctx, ItemPlayStarted{Index: 1, ElapsedSeconds: 4})
	e.Dispatch(ctx, ItemPlayStopped{Index: 1, ElapsedSeconds: 9})
	e.Dispatch(ctx, ItemPlayStarted{Index: 7})

	assert.Equal(t, []string{
		telemetry.PanelClosed,
		telemetry.PanelOpened,
		"didPlay1GetStartedVideo",
		"didStop1Video",
	}, rec.names())
	assert.Equal(t, 9.0, rec.events[3].Props["timestamp"])
}

func TestStateReturnsCopy(t *testing.T) {
	ctx := context.Background()
	e := New(history.NewMemoryStore(), nil)
	e.Load(ctx, staticSource{entries: []catalog.RawEntry{{ID: "a"}}})

	s := e.State()
	s.Items[0].Completed = true
	assert.False(t, e.State().Items[0].Completed)
}

func TestConcurrentDispatch(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	e := New(store, &recordingEmitter{})
	e.Load(ctx, staticSource{entries: []catalog.RawEntry{{ID: "a"}}})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(sec int) {
			defer wg.Done()
			e.Dispatch(ctx, ItemProgress{Index: 0, ElapsedSeconds: float64(sec)})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50.0, e.State().Items[0].ElapsedSeconds)
	p, _, _ := store.Get(ctx, "a")
	assert.Equal(t, 50.0, p.ElapsedSeconds)
}

func TestSessionJSON(t *testing.T) {
	s := Apply(readySession(2), ItemEnded{Index: 0})
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, true, decoded["visible"])
	assert.Equal(t, float64(50), decoded["completedPercent"])
	assert.Equal(t, float64(NoItem), decoded["openIndex"])
	assert.Len(t, decoded["items"], 2)
}
