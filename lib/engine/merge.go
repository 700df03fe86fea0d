package engine

import (
	"context"
	"log/slog"

	"crovlune/onboarding/lib/catalog"
	"crovlune/onboarding/lib/history"
)

// Formatted is the catalog merged with the stored watch history.
type Formatted struct {
	Items                  []MediaItem
	AllPreviouslyCompleted bool
}

// FormatCatalog overlays stored progress onto raw in catalog order and writes
// the merged records back so newly seen items are recorded immediately.
// Unreadable history is treated as empty for the session, and then only ids
// the store reports as absent are written so existing records survive.
func FormatCatalog(ctx context.Context, store history.Store, raw []catalog.RawEntry) Formatted {
	stored, err := store.All(ctx)
	readFailed := err != nil
	if readFailed {
		slog.Warn("watch history unreadable, starting fresh",
			"operation", "format_catalog",
			"error", err,
		)
		stored = nil
	}

	out := Formatted{Items: make([]MediaItem, 0, len(raw)), AllPreviouslyCompleted: true}
	for _, entry := range raw {
		item := MediaItem{
			ID:        entry.ID,
			Title:     entry.Title,
			SourceURL: entry.SourceURL,
		}
		if p, ok := stored[entry.ID]; ok {
			item.ElapsedSeconds = p.ElapsedSeconds
			item.Completed = p.Completed
			if p.DurationSeconds != nil {
				d := *p.DurationSeconds
				item.DurationSeconds = &d
			}
		}
		out.AllPreviouslyCompleted = out.AllPreviouslyCompleted && item.Completed
		out.Items = append(out.Items, item)
	}

	for _, item := range out.Items {
		if readFailed && !absent(ctx, store, item.ID) {
			continue
		}
		if err := store.Set(ctx, item.ID, item.progress()); err != nil {
			slog.Error("failed to persist merged watch history",
				"operation", "format_catalog",
				"item_id", item.ID,
				"error", err,
			)
		}
	}
	return out
}

// absent reports whether the store positively holds no record for id.
// Read errors count as present.
func absent(ctx context.Context, store history.Store, id string) bool {
	_, ok, err := store.Get(ctx, id)
	if err != nil {
		slog.Warn("skipping write-back of unreadable watch history",
			"operation", "format_catalog",
			"item_id", id,
			"error", err,
		)
		return false
	}
	return !ok
}
