// Package httpapi exposes the record store, renderers and export worker over
// HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"datasetmd/internal/catalog"
	"datasetmd/internal/export"
	"datasetmd/internal/metrics"
	"datasetmd/internal/render"
	"datasetmd/pkg/metadata"
)

const maxDocumentBytes = 4 << 20

// Renderer produces a metadata document for a dataset.
type Renderer interface {
	Render(ds *metadata.Dataset, format render.Format) (render.Document, error)
}

// Exporter schedules and reports background exports.
type Exporter interface {
	EnqueueExport(ctx context.Context, input export.Input) (export.Job, error)
	GetExport(id string) (export.Job, bool)
}

// Deps are the collaborators the API is built from. Exports and Metrics are
// optional.
type Deps struct {
	Records  catalog.Store
	Renderer Renderer
	Exports  Exporter
	Metrics  *metrics.Prometheus
	Logger   *slog.Logger
}

type api struct {
	records  catalog.Store
	renderer Renderer
	exports  Exporter
	recorder metrics.Recorder
	log      *slog.Logger
}

// NewRouter builds the chi router for the API.
func NewRouter(d Deps) http.Handler {
	a := &api{records: d.Records, renderer: d.Renderer, exports: d.Exports, recorder: metrics.Noop{}, log: d.Logger}
	if a.log == nil {
		a.log = slog.New(slog.DiscardHandler)
	}
	if d.Metrics != nil {
		a.recorder = d.Metrics
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(a.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/records", func(rr chi.Router) {
			rr.Get("/", a.listRecords)
			rr.Post("/", a.createRecord)
			rr.Route("/{id}", func(one chi.Router) {
				one.Get("/", a.getRecord)
				one.Delete("/", a.deleteRecord)
				one.Get("/citation", a.citation)
				one.Get("/keywords", a.keywords)
				one.Get("/render/{format}", a.render)
			})
		})
		v1.Post("/exports", a.createExport)
		v1.Get("/exports/{id}", a.getExport)
	})
	return r
}

func (a *api) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		route := r.Method + " " + chi.RouteContext(r.Context()).RoutePattern()
		a.recorder.Observe(r.Context(), "http "+route, status < http.StatusInternalServerError, elapsed)
		a.log.LogAttrs(r.Context(), slog.LevelDebug, "http request",
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("elapsed", elapsed),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// fail maps known sentinels to client statuses and logs everything else as
// a server error.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, render.ErrUnknownFormat), errors.Is(err, metadata.ErrInvalidContributor):
		status = http.StatusBadRequest
	case errors.Is(err, render.ErrUnsupportedFormat):
		status = http.StatusNotImplemented
	case errors.Is(err, export.ErrQueueFull):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented && status != http.StatusServiceUnavailable {
		a.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
