// Package export renders stored dataset records into metadata documents and
// writes them to the artifact store in the background.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"datasetmd/internal/blob"
	"datasetmd/internal/catalog"
	"datasetmd/internal/metrics"
	"datasetmd/internal/render"
	"datasetmd/internal/slug"
	"datasetmd/pkg/metadata"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

const (
	auditAction      = "metadata_export"
	defaultQueueSize = 32
)

// ErrQueueFull is returned when the worker cannot accept another job.
var ErrQueueFull = errors.New("export: queue full")

// DefaultFormats are exported when a request names none.
var DefaultFormats = []render.Format{render.FormatISO19139, render.FormatSchemaOrg}

// Artifact is a stored rendering of one format.
type Artifact struct {
	Key         string            `json:"key"`
	Format      render.Format     `json:"format"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	ETag        string            `json:"etag,omitempty"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Job tracks an export request and its artifacts.
type Job struct {
	ID          string          `json:"id"`
	RecordID    string          `json:"record_id"`
	Slug        string          `json:"slug"`
	Formats     []render.Format `json:"formats"`
	Status      Status          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Artifacts   []Artifact      `json:"artifacts,omitempty"`
	RequestedBy string          `json:"requested_by,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Input is an enqueue request.
type Input struct {
	RecordID    string
	Formats     []render.Format
	RequestedBy string
	Reason      string
}

// Renderer produces a document for a dataset.
type Renderer interface {
	Render(ds *metadata.Dataset, format render.Format) (render.Document, error)
}

// Worker executes exports asynchronously.
type Worker struct {
	records  catalog.Store
	renderer Renderer
	store    blob.Store
	audit    AuditLogger
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Worker.
type Option func(*Worker)

// WithAudit records lifecycle transitions.
func WithAudit(a AuditLogger) Option { return func(w *Worker) { w.audit = a } }

// WithMetrics reports render and store operations.
func WithMetrics(r metrics.Recorder) Option { return func(w *Worker) { w.metrics = r } }

// WithLogger sets the worker logger.
func WithLogger(l *slog.Logger) Option { return func(w *Worker) { w.logger = l } }

// WithQueueSize bounds the number of pending jobs.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan string, n)
		}
	}
}

// NewWorker constructs an export worker. Call Start to begin processing.
func NewWorker(records catalog.Store, renderer Renderer, store blob.Store, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		records:  records,
		renderer: renderer,
		store:    store,
		metrics:  metrics.Noop{},
		logger:   slog.New(slog.DiscardHandler),
		now:      func() time.Time { return time.Now().UTC() },
		queue:    make(chan string, defaultQueueSize),
		jobs:     make(map[string]*Job),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// EnqueueExport validates the request, records a queued job and schedules it.
func (w *Worker) EnqueueExport(ctx context.Context, input Input) (Job, error) {
	rec, err := w.records.Get(ctx, input.RecordID)
	if err != nil {
		return Job{}, err
	}
	formats, err := normalizeFormats(input.Formats)
	if err != nil {
		return Job{}, err
	}
	name := rec.Title()
	if name == "" {
		name = rec.ID
	}
	now := w.now()
	job := &Job{
		ID:          uuid.NewString(),
		RecordID:    rec.ID,
		Slug:        slug.From(name),
		Formats:     formats,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The loop looks the job up under mu, so it cannot start on it (or audit
	// it as running) before the queued entry below is written.
	w.mu.Lock()
	select {
	case w.queue <- job.ID:
	default:
		w.mu.Unlock()
		return Job{}, ErrQueueFull
	}
	w.jobs[job.ID] = job
	queued := job.copy()
	w.record(ctx, queued, StatusQueued, nil)
	w.mu.Unlock()
	w.logger.DebugContext(ctx, "export queued", "export_id", job.ID, "record_id", rec.ID, "formats", formats)
	return queued, nil
}

func normalizeFormats(formats []render.Format) ([]render.Format, error) {
	if len(formats) == 0 {
		return append([]render.Format(nil), DefaultFormats...), nil
	}
	supported := make(map[render.Format]struct{})
	for _, f := range render.Formats() {
		supported[f] = struct{}{}
	}
	seen := make(map[render.Format]struct{}, len(formats))
	out := make([]render.Format, 0, len(formats))
	for _, raw := range formats {
		f, err := render.ParseFormat(string(raw))
		if err != nil {
			return nil, err
		}
		if _, ok := supported[f]; !ok {
			return nil, fmt.Errorf("%w: %s", render.ErrUnsupportedFormat, f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

// GetExport returns a snapshot of the job.
func (w *Worker) GetExport(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

func (w *Worker) process(id string) {
	w.mu.RLock()
	job, ok := w.jobs[id]
	var snapshot Job
	if ok {
		snapshot = job.copy()
	}
	w.mu.RUnlock()
	if !ok {
		return
	}
	w.updateStatus(id, StatusRunning)

	rec, err := w.records.Get(w.ctx, snapshot.RecordID)
	if err != nil {
		w.fail(id, fmt.Sprintf("load record: %v", err))
		return
	}
	artifacts := make([]Artifact, 0, len(snapshot.Formats))
	for _, format := range snapshot.Formats {
		artifact, err := w.export(snapshot, rec, format)
		if err != nil {
			w.fail(id, err.Error())
			return
		}
		artifacts = append(artifacts, artifact)
	}
	w.complete(id, artifacts)
}

// ArtifactKey is the blob key for one format of an export.
func ArtifactKey(job Job, doc render.Document) string {
	return fmt.Sprintf("exports/%s/%s/%s.%s", job.Slug, job.ID, doc.Format, doc.Extension)
}

func (w *Worker) export(job Job, rec catalog.Record, format render.Format) (Artifact, error) {
	var doc render.Document
	err := metrics.Time(w.ctx, w.metrics, "export.render."+string(format), func() error {
		var rerr error
		doc, rerr = w.renderer.Render(rec.Dataset, format)
		return rerr
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", format, err)
	}
	key := ArtifactKey(job, doc)
	md := map[string]string{"export_id": job.ID, "record_id": job.RecordID, "format": string(format)}
	var info blob.Info
	err = metrics.Time(w.ctx, w.metrics, "export.store", func() error {
		var serr error
		info, serr = w.store.Put(w.ctx, key, bytes.NewReader(doc.Body), blob.PutOptions{ContentType: doc.ContentType, Metadata: md})
		return serr
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("store artifact %s: %w", key, err)
	}
	artifact := Artifact{
		Key:         key,
		Format:      format,
		ContentType: doc.ContentType,
		SizeBytes:   int64(len(doc.Body)),
		ETag:        info.ETag,
		Metadata:    md,
		CreatedAt:   info.LastModified,
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = w.now()
	}
	url, err := w.store.PresignURL(w.ctx, key, blob.SignedURLOptions{})
	switch {
	case err == nil:
		artifact.URL = url
	case !errors.Is(err, blob.ErrUnsupported):
		w.logger.Warn("presign artifact", "key", key, "error", err)
	}
	return artifact, nil
}

func (w *Worker) updateStatus(id string, status Status) {
	w.mu.Lock()
	job, ok := w.jobs[id]
	var snapshot Job
	if ok {
		job.Status = status
		job.Error = ""
		job.UpdatedAt = w.now()
		snapshot = job.copy()
	}
	w.mu.Unlock()
	if ok {
		w.record(w.ctx, snapshot, status, nil)
	}
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := w.now()
	w.mu.Lock()
	job, ok := w.jobs[id]
	var snapshot Job
	if ok {
		job.Status = StatusSucceeded
		job.Error = ""
		job.Artifacts = artifacts
		job.UpdatedAt = now
		job.CompletedAt = &now
		snapshot = job.copy()
	}
	w.mu.Unlock()
	if ok {
		w.record(w.ctx, snapshot, StatusSucceeded, map[string]string{"artifacts": fmt.Sprint(len(artifacts))})
		w.logger.Info("export succeeded", "export_id", id, "record_id", snapshot.RecordID, "artifacts", len(artifacts))
	}
}

func (w *Worker) fail(id, reason string) {
	now := w.now()
	w.mu.Lock()
	job, ok := w.jobs[id]
	var snapshot Job
	if ok {
		job.Status = StatusFailed
		job.Error = reason
		job.UpdatedAt = now
		job.CompletedAt = &now
		snapshot = job.copy()
	}
	w.mu.Unlock()
	if ok {
		w.record(w.ctx, snapshot, StatusFailed, map[string]string{"error": reason})
		w.logger.Error("export failed", "export_id", id, "record_id", snapshot.RecordID, "error", reason)
	}
}

func (w *Worker) record(ctx context.Context, job Job, status Status, md map[string]string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Action:     auditAction,
		Actor:      job.RequestedBy,
		ExportID:   job.ID,
		RecordID:   job.RecordID,
		Status:     status,
		Reason:     job.Reason,
		Metadata:   md,
		OccurredAt: w.now(),
	})
}

func (j *Job) copy() Job {
	dup := *j
	dup.Formats = append([]render.Format(nil), j.Formats...)
	if len(j.Artifacts) > 0 {
		dup.Artifacts = make([]Artifact, len(j.Artifacts))
		for i, a := range j.Artifacts {
			a.Metadata = cloneStrings(a.Metadata)
			dup.Artifacts[i] = a
		}
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
