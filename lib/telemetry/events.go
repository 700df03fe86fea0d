package telemetry

import "fmt"

// Panel toggle event names. Each names the state the panel is in after the
// toggle: PanelOpened is sent when the panel opens. Earlier clients derived
// the name from the state before the toggle, so dashboards built on those
// events see the two names swapped from this release on.
const (
	PanelOpened = "didOpenGetStartedVideoContainer"
	PanelClosed = "didCloseGetStartedVideoContainer"
)

// ItemEventKind is the closed set of per-item playback interactions.
type ItemEventKind int

const (
	PlayStarted ItemEventKind = iota
	PlayStopped
)

func (k ItemEventKind) String() string {
	switch k {
	case PlayStarted:
		return "play_started"
	case PlayStopped:
		return "play_stopped"
	}
	return fmt.Sprintf("ItemEventKind(%d)", int(k))
}

// ItemEvent describes an interaction with the item at Index.
type ItemEvent struct {
	Index          int
	Kind           ItemEventKind
	ElapsedSeconds float64
}

// Name composes the wire event name. The ingestion side keys on these exact
// strings, index included.
func (ev ItemEvent) Name() string {
	switch ev.Kind {
	case PlayStopped:
		return fmt.Sprintf("didStop%dVideo", ev.Index)
	default:
		return fmt.Sprintf("didPlay%dGetStartedVideo", ev.Index)
	}
}
