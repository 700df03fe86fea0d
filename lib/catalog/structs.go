package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnavailable marks any failure to obtain the catalog. Callers treat
	// every cause the same way.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrInvalidCatalog is returned when entries lack a stable unique id.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Source is anything that can produce the raw catalog.
type Source interface {
	Fetch(ctx context.Context) ([]RawEntry, error)
}

// RawEntry is a single media item as published by the catalog endpoint.
type RawEntry struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	SourceURL string `json:"sourceUrl" yaml:"sourceUrl"`
}

// UnmarshalJSON implements json.Unmarshaler for RawEntry.
// Accepts numeric ids and the legacy "url" field.
func (e *RawEntry) UnmarshalJSON(data []byte) error {
	aux := struct {
		ID        interface{} `json:"id"`
		Title     string      `json:"title"`
		SourceURL string      `json:"sourceUrl"`
		URL       string      `json:"url"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch v := aux.ID.(type) {
	case string:
		e.ID = v
	case float64:
		e.ID = strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		e.ID = ""
	default:
		return fmt.Errorf("unsupported id type %T", v)
	}
	e.Title = aux.Title
	e.SourceURL = aux.SourceURL
	if e.SourceURL == "" {
		e.SourceURL = aux.URL
	}
	return nil
}

// Validate requires every entry to carry a non-empty, unique id. Positional
// identity would attach stored progress to the wrong item after a reorder.
func Validate(entries []RawEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return fmt.Errorf("%w: entry %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
