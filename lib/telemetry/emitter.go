package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

const (
	DefaultURL         = "https://analytics.strapi.io/track"
	DefaultProjectType = "Community"

	postTimeout = 5 * time.Second
)

// Properties are the caller supplied fields of a usage event.
type Properties map[string]interface{}

// Config configures an Emitter.
type Config struct {
	URL         string
	UUID        string
	ProjectType string
}

// Emitter posts usage events without ever reporting failure to the caller.
// With an empty UUID every call is a no-op.
type Emitter struct {
	url         string
	uuid        string
	projectType string
	httpClient  *http.Client
	wg          conc.WaitGroup
}

type payload struct {
	Event      string     `json:"event"`
	Properties Properties `json:"properties"`
	UUID       string     `json:"uuid"`
}

// New creates an Emitter.
func New(cfg Config) *Emitter {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.ProjectType == "" {
		cfg.ProjectType = DefaultProjectType
	}
	if cfg.UUID != "" {
		if _, err := uuid.Parse(cfg.UUID); err != nil {
			slog.Warn("telemetry uuid is not a valid UUID, sending as is", "error", err)
		}
	}
	return &Emitter{
		url:         cfg.URL,
		uuid:        cfg.UUID,
		projectType: cfg.ProjectType,
		httpClient:  &http.Client{Timeout: postTimeout},
	}
}

// Enabled reports whether events are sent at all.
func (e *Emitter) Enabled() bool {
	return e.uuid != ""
}

// Emit sends event in the background. Delivery errors are discarded.
func (e *Emitter) Emit(event string, props Properties) {
	if !e.Enabled() {
		return
	}
	body := payload{
		Event:      event,
		Properties: make(Properties, len(props)+1),
		UUID:       e.uuid,
	}
	for k, v := range props {
		body.Properties[k] = v
	}
	body.Properties["projectType"] = e.projectType

	e.wg.Go(func() {
		if err := e.post(body); err != nil {
			slog.Debug("telemetry delivery failed", "event", event, "error", err)
		}
	})
}

// EmitItem sends a per-item playback event.
func (e *Emitter) EmitItem(ev ItemEvent) {
	e.Emit(ev.Name(), Properties{"timestamp": ev.ElapsedSeconds})
}

// Wait blocks until every in-flight post has finished. Only shutdown and tests
// call it; Emit never does.
func (e *Emitter) Wait() {
	if r := e.wg.WaitAndRecover(); r != nil {
		slog.Debug("telemetry sender panicked", "error", r.Value)
	}
}

func (e *Emitter) post(body payload) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ingestion http %d", resp.StatusCode)
	}
	return nil
}
