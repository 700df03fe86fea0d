package history

import (
	"context"
	"errors"
)

// ErrCorrupt is returned when a persisted record cannot be decoded.
var ErrCorrupt = errors.New("corrupt watch history record")

// Progress is the last known playback state of a single catalog item.
type Progress struct {
	ElapsedSeconds  float64  `json:"elapsedSeconds"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	Completed       bool     `json:"completed"`
}

// Store is the interface for all the watch history backends.
// Writes are synchronous and last-write-wins.
type Store interface {
	Get(ctx context.Context, id string) (Progress, bool, error)
	Set(ctx context.Context, id string, progress Progress) error
	All(ctx context.Context) (map[string]Progress, error)
	Ping(ctx context.Context) error
}

// Utils
func flatTransform(s string) []string { return []string{} }
