package engine

import "math"

// Apply returns the session that results from ev. It never modifies s and
// returns s unchanged for events that do not apply in the current state.
func Apply(s Session, ev Event) Session {
	switch ev := ev.(type) {
	case CatalogLoaded:
		if !s.IsLoading {
			return s
		}
		next := Session{
			Items:                  ev.Items,
			AllPreviouslyCompleted: ev.AllPreviouslyCompleted,
			IsPanelOpen:            !ev.AllPreviouslyCompleted,
			OpenIndex:              NoItem,
		}.clone()
		return next

	case CatalogUnavailable:
		if !s.IsLoading {
			return s
		}
		return Session{Items: []MediaItem{}, OpenIndex: NoItem}

	case TogglePanel:
		if s.IsLoading {
			return s
		}
		next := s.clone()
		next.IsPanelOpen = !s.IsPanelOpen
		return next

	case OpenItem:
		if !s.inRange(ev.Index) {
			return s
		}
		next := s.clone()
		if s.OpenIndex == ev.Index {
			next.OpenIndex = NoItem
		} else {
			next.OpenIndex = ev.Index
		}
		return next

	case ItemDurationKnown:
		if !s.inRange(ev.Index) || !validSeconds(ev.DurationSeconds) {
			return s
		}
		next := s.clone()
		d := ev.DurationSeconds
		next.Items[ev.Index].DurationSeconds = &d
		return next

	case ItemProgress:
		if !s.inRange(ev.Index) || !validSeconds(ev.ElapsedSeconds) {
			return s
		}
		if ev.ElapsedSeconds <= s.Items[ev.Index].ElapsedSeconds {
			return s
		}
		next := s.clone()
		next.Items[ev.Index].ElapsedSeconds = ev.ElapsedSeconds
		return next

	case ItemEnded:
		if !s.inRange(ev.Index) || s.Items[ev.Index].Completed {
			return s
		}
		next := s.clone()
		next.Items[ev.Index].Completed = true
		return next
	}
	return s
}

func validSeconds(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
