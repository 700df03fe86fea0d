package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"syscall"
	"time"

	"crovlune/onboarding/lib/catalog"
	"crovlune/onboarding/lib/config"
	"crovlune/onboarding/lib/engine"
	"crovlune/onboarding/lib/history"
	"crovlune/onboarding/lib/logging"
	"crovlune/onboarding/lib/telemetry"

	"github.com/etherlabsio/healthcheck"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/afero"
)

var (
	version string
	commit  string
	date    string
	storage history.Store
	eng     *engine.Engine
)

// itemActionBody carries the player position for progress style actions.
type itemActionBody struct {
	Seconds *float64 `json:"seconds"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// getSession returns the current engagement session.
func getSession(w http.ResponseWriter, r *http.Request) {
	if eng == nil {
		writeJSONError(w, http.StatusNotFound, "onboarding disabled")
		return
	}
	writeJSON(w, http.StatusOK, eng.State())
}

func togglePanel(w http.ResponseWriter, r *http.Request) {
	if eng == nil {
		writeJSONError(w, http.StatusNotFound, "onboarding disabled")
		return
	}
	writeJSON(w, http.StatusOK, eng.Dispatch(r.Context(), engine.TogglePanel{}))
}

// itemAction translates /items/{index}/{action} into a state machine event.
// Out of range indices are not an error; the session is returned unchanged.
func itemAction(w http.ResponseWriter, r *http.Request) {
	if eng == nil {
		writeJSONError(w, http.StatusNotFound, "onboarding disabled")
		return
	}
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid item index")
		return
	}

	var body itemActionBody
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	seconds := 0.0
	if body.Seconds != nil {
		seconds = *body.Seconds
		if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			writeJSONError(w, http.StatusBadRequest, "seconds must be a non-negative number")
			return
		}
	}

	var ev engine.Event
	switch action := vars["action"]; action {
	case "open":
		ev = engine.OpenItem{Index: index}
	case "ended":
		ev = engine.ItemEnded{Index: index}
	case "play":
		ev = engine.ItemPlayStarted{Index: index, ElapsedSeconds: seconds}
	case "stop":
		ev = engine.ItemPlayStopped{Index: index, ElapsedSeconds: seconds}
	case "duration", "progress":
		if body.Seconds == nil {
			writeJSONError(w, http.StatusBadRequest, "seconds is required")
			return
		}
		if action == "duration" {
			ev = engine.ItemDurationKnown{Index: index, DurationSeconds: seconds}
		} else {
			ev = engine.ItemProgress{Index: index, ElapsedSeconds: seconds}
		}
	default:
		writeJSONError(w, http.StatusNotFound, "unknown action")
		return
	}
	writeJSON(w, http.StatusOK, eng.Dispatch(r.Context(), ev))
}

// healthcheckHandler only checks storage when the onboarding feature started it.
func healthcheckHandler() http.Handler {
	opts := []healthcheck.Option{healthcheck.WithTimeout(5 * time.Second)}
	if storage != nil {
		store := storage
		opts = append(opts, healthcheck.WithChecker("storage", healthcheck.CheckerFunc(func(ctx context.Context) error {
			return store.Ping(ctx)
		})))
	}
	return healthcheck.Handler(opts...)
}

func newRouter(trustProxy bool) *mux.Router {
	router := mux.NewRouter()
	router.Use(recoveryMiddleware)
	router.Use(requestLoggerMiddleware())
	if trustProxy {
		router.Use(handlers.ProxyHeaders)
	}
	router.Handle("/healthcheck", healthcheckHandler()).Methods("GET")

	api := router.PathPrefix("/api/onboarding").Subrouter()
	api.HandleFunc("", getSession).Methods("GET")
	api.HandleFunc("/panel/toggle", togglePanel).Methods("POST")
	api.HandleFunc("/items/{index:[0-9]+}/{action}", itemAction).Methods("POST")
	return router
}

func newStorage(cfg config.Config) history.Store {
	if cfg.PostgresqlURL != "" {
		slog.Info("using postgres storage")
		return history.NewPostgresqlStore(history.NewPostgresqlClient(cfg.PostgresqlURL))
	} else if cfg.RedisURL != "" {
		slog.Info("using redis storage", "url", cfg.RedisURL)
		return history.NewRedisStore(history.NewRedisClientWithUrl(cfg.RedisURL))
	} else if cfg.RedisURI != "" {
		slog.Info("using redis storage", "uri", cfg.RedisURI)
		return history.NewRedisStore(history.NewRedisClient(cfg.RedisURI, cfg.RedisPassword))
	}
	slog.Info("using disk storage", "path", cfg.HistoryDir)
	return history.NewDiskStore(cfg.HistoryDir)
}

func newCatalogSource(cfg config.Config) catalog.Source {
	if cfg.CatalogFile != "" {
		slog.Info("using catalog file", "path", cfg.CatalogFile)
		return catalog.NewFileSource(afero.NewOsFs(), cfg.CatalogFile)
	}
	return catalog.NewFetcher(cfg.CatalogURL, cfg.CatalogTimeout)
}

// startOnboarding wires storage, telemetry and the engine when the feature is
// enabled. When it is disabled nothing is opened, fetched or sent and the
// returned emitter is nil.
func startOnboarding(cfg config.Config) *telemetry.Emitter {
	if !cfg.ShowTutorials {
		slog.Info("onboarding tutorials disabled")
		return nil
	}
	storage = newStorage(cfg)
	emitter := telemetry.New(telemetry.Config{
		URL:         cfg.TelemetryURL,
		UUID:        cfg.TelemetryUUID,
		ProjectType: cfg.ProjectType,
	})
	eng = engine.New(storage, emitter)
	go eng.Load(context.Background(), newCatalogSource(cfg))
	return emitter
}

func main() {
	// init structured logging
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("starting", "version", version, "commit", commit, "date", date)
	emitter := startOnboarding(cfg)

	srv := &http.Server{Addr: cfg.Listen, Handler: newRouter(cfg.TrustProxy)}
	go func() {
		slog.Info("server starting", "listen", cfg.Listen, "version", version, "commit", commit, "date", date)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server exited", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	if emitter != nil {
		emitter.Wait()
	}
	slog.Info("stopped")
}

// requestLoggerMiddleware logs method, path, status, and duration for each request.
func requestLoggerMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", requestID)
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sr, r)
			slog.Info("request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", sr.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// statusRecorder captures HTTP status codes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// recoveryMiddleware logs panics and returns 500 instead of crashing.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic", "method", r.Method, "path", r.URL.Path, "error", rec, "stack", string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
