package engine

// Event is the closed set of inputs the state machine accepts.
type Event interface {
	isEvent()
}

// CatalogLoaded seeds the session from the merge stage.
type CatalogLoaded struct {
	Items                  []MediaItem
	AllPreviouslyCompleted bool
}

// CatalogUnavailable seeds an empty session after a failed fetch.
type CatalogUnavailable struct{}

// TogglePanel flips panel visibility once the catalog has settled.
type TogglePanel struct{}

// OpenItem selects the item open for playback.
type OpenItem struct {
	Index int
}

// ItemDurationKnown records the duration reported by the player.
type ItemDurationKnown struct {
	Index           int
	DurationSeconds float64
}

// ItemProgress records the playback position and is written through to history.
type ItemProgress struct {
	Index          int
	ElapsedSeconds float64
}

// ItemEnded is the player's end signal, the only source of completion.
type ItemEnded struct {
	Index int
}

// ItemPlayStarted is reported when the player starts. Neither play event
// changes the session; the engine reports them as usage events.
type ItemPlayStarted struct {
	Index          int
	ElapsedSeconds float64
}

// ItemPlayStopped is reported when the player pauses or closes.
type ItemPlayStopped struct {
	Index          int
	ElapsedSeconds float64
}

func (CatalogLoaded) isEvent()      {}
func (CatalogUnavailable) isEvent() {}
func (TogglePanel) isEvent()        {}
func (OpenItem) isEvent()           {}
func (ItemDurationKnown) isEvent()  {}
func (ItemProgress) isEvent()       {}
func (ItemEnded) isEvent()          {}
func (ItemPlayStarted) isEvent()    {}
func (ItemPlayStopped) isEvent()    {}
