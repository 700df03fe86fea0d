package engine

import (
	"context"
	"log/slog"
	"sync"

	"crovlune/onboarding/lib/catalog"
	"crovlune/onboarding/lib/history"
	"crovlune/onboarding/lib/telemetry"
)

// Emitter is the usage event sink. Implementations must not block.
type Emitter interface {
	Emit(event string, props telemetry.Properties)
	EmitItem(ev telemetry.ItemEvent)
}

type nopEmitter struct{}

func (nopEmitter) Emit(string, telemetry.Properties) {}
func (nopEmitter) EmitItem(telemetry.ItemEvent)      {}

// Engine owns the live Session. Dispatch serializes event application, writes
// progress through to the history store and reports usage events.
type Engine struct {
	mu      sync.Mutex
	session Session
	history history.Store
	emitter Emitter
}

// New creates an Engine in the loading state. A nil emitter disables tracking.
func New(store history.Store, emitter Emitter) *Engine {
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &Engine{
		session: NewSession(),
		history: store,
		emitter: emitter,
	}
}

// State returns a copy of the current session.
func (e *Engine) State() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone()
}

// Load fetches the catalog from src and seeds the session. Any fetch error
// degrades to an empty catalog; nothing is returned to the caller.
func (e *Engine) Load(ctx context.Context, src catalog.Source) Session {
	raw, err := src.Fetch(ctx)
	if err != nil {
		slog.Error("onboarding catalog unavailable", "error", err)
		return e.Dispatch(ctx, CatalogUnavailable{})
	}
	formatted := FormatCatalog(ctx, e.history, raw)
	slog.Info("onboarding catalog loaded",
		"items", len(formatted.Items),
		"all_previously_completed", formatted.AllPreviouslyCompleted,
	)
	return e.Dispatch(ctx, CatalogLoaded{
		Items:                  formatted.Items,
		AllPreviouslyCompleted: formatted.AllPreviouslyCompleted,
	})
}

// Dispatch applies ev and returns the resulting session.
func (e *Engine) Dispatch(ctx context.Context, ev Event) Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.session
	next := Apply(prev, ev)
	e.session = next

	switch ev := ev.(type) {
	case ItemProgress:
		e.persistIfChanged(ctx, prev, next, ev.Index)
	case ItemEnded:
		e.persistIfChanged(ctx, prev, next, ev.Index)
	case TogglePanel:
		if !prev.IsLoading {
			name := telemetry.PanelClosed
			if next.IsPanelOpen {
				name = telemetry.PanelOpened
			}
			e.emitter.Emit(name, nil)
		}
	case ItemPlayStarted:
		if next.inRange(ev.Index) {
			e.emitter.EmitItem(telemetry.ItemEvent{Index: ev.Index, Kind: telemetry.PlayStarted, ElapsedSeconds: ev.ElapsedSeconds})
		}
	case ItemPlayStopped:
		if next.inRange(ev.Index) {
			e.emitter.EmitItem(telemetry.ItemEvent{Index: ev.Index, Kind: telemetry.PlayStopped, ElapsedSeconds: ev.ElapsedSeconds})
		}
	}
	return next.clone()
}

func (e *Engine) persistIfChanged(ctx context.Context, prev, next Session, index int) {
	if !prev.inRange(index) || !next.inRange(index) {
		return
	}
	before, item := prev.Items[index], next.Items[index]
	if before.ElapsedSeconds == item.ElapsedSeconds && before.Completed == item.Completed {
		return
	}
	if err := e.history.Set(ctx, item.ID, item.progress()); err != nil {
		slog.Error("failed to persist watch progress",
			"item_id", item.ID,
			"error", err,
		)
	}
}
