package engine

import (
	"encoding/json"

	"crovlune/onboarding/lib/history"
)

// NoItem is the OpenIndex value when no item is open for playback.
const NoItem = -1

// MediaItem is a catalog entry merged with its playback progress.
type MediaItem struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	SourceURL       string   `json:"sourceUrl"`
	DurationSeconds *float64 `json:"durationSeconds"`
	ElapsedSeconds  float64  `json:"elapsedSeconds"`
	Completed       bool     `json:"completed"`
}

func (m MediaItem) progress() history.Progress {
	p := history.Progress{ElapsedSeconds: m.ElapsedSeconds, Completed: m.Completed}
	if m.DurationSeconds != nil {
		d := *m.DurationSeconds
		p.DurationSeconds = &d
	}
	return p
}

// Session is the engagement state for one mount of the onboarding panel.
// Values are never mutated in place; Apply returns a new Session.
type Session struct {
	IsLoading              bool        `json:"isLoading"`
	IsPanelOpen            bool        `json:"isPanelOpen"`
	Items                  []MediaItem `json:"items"`
	AllPreviouslyCompleted bool        `json:"allPreviouslyCompleted"`
	OpenIndex              int         `json:"openIndex"`
}

// NewSession returns the initial loading state.
func NewSession() Session {
	return Session{IsLoading: true, Items: []MediaItem{}, OpenIndex: NoItem}
}

// Visible reports whether the panel should be rendered at all. An empty
// catalog hides it even though AllPreviouslyCompleted is vacuously true.
func (s Session) Visible() bool {
	return !s.IsLoading && len(s.Items) > 0
}

// CompletedPercent is the floored share of completed items.
func (s Session) CompletedPercent() int {
	if len(s.Items) == 0 {
		return 0
	}
	done := 0
	for _, it := range s.Items {
		if it.Completed {
			done++
		}
	}
	return done * 100 / len(s.Items)
}

func (s Session) inRange(index int) bool {
	return index >= 0 && index < len(s.Items)
}

// clone deep-copies the items so the result can be modified freely.
func (s Session) clone() Session {
	items := make([]MediaItem, len(s.Items))
	for i, it := range s.Items {
		if it.DurationSeconds != nil {
			d := *it.DurationSeconds
			it.DurationSeconds = &d
		}
		items[i] = it
	}
	s.Items = items
	return s
}

// MarshalJSON implements json.Marshaler for Session, adding derived fields.
func (s Session) MarshalJSON() ([]byte, error) {
	type Alias Session
	return json.Marshal(&struct {
		Visible          bool `json:"visible"`
		CompletedPercent int  `json:"completedPercent"`
		Alias
	}{
		Visible:          s.Visible(),
		CompletedPercent: s.CompletedPercent(),
		Alias:            Alias(s),
	})
}
