package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"datasetmd/internal/blob"
	"datasetmd/internal/catalog"
	"datasetmd/internal/infra/persistence/memory"
	"datasetmd/internal/metrics"
	"datasetmd/internal/render"
	"datasetmd/pkg/metadata"
)

type fixture struct {
	records *memory.Store
	blobs   blob.Store
	audit   *MemoryAuditLog
	worker  *Worker
}

func newFixture(t *testing.T, renderer Renderer, opts ...Option) fixture {
	t.Helper()
	blobs, err := blob.Open(context.Background(), blob.Config{Driver: blob.DriverMemory})
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	if renderer == nil {
		r, err := render.New()
		if err != nil {
			t.Fatalf("renderer: %v", err)
		}
		renderer = r
	}
	records := memory.NewStore()
	audit := &MemoryAuditLog{}
	w := NewWorker(records, renderer, blobs, append([]Option{WithAudit(audit)}, opts...)...)
	return fixture{records: records, blobs: blobs, audit: audit, worker: w}
}

func seed(t *testing.T, store catalog.Store, id, title string) catalog.Record {
	t.Helper()
	rec, err := store.Put(context.Background(), catalog.Record{ID: id, Dataset: &metadata.Dataset{
		Base: &metadata.Base{Identifier: id, Title: title, Abstract: "Hourly observations"},
		Citation: &metadata.Citation{
			DOI:     "10.1234/abcd",
			Authors: metadata.Contributors{&metadata.Person{GivenName: "Jane", FamilyName: "Doe"}},
		},
	}})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return rec
}

func waitFor(t *testing.T, w *Worker, id string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		job, ok := w.GetExport(id)
		if !ok {
			t.Fatalf("export %s vanished", id)
		}
		if job.Status == StatusSucceeded || job.Status == StatusFailed {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for export, last status %s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorkerProcessesExport(t *testing.T) {
	f := newFixture(t, nil, WithMetrics(metrics.NewPrometheus()))
	seed(t, f.records, "ocean-1", "Océan Temp 2020")
	f.worker.Start()
	t.Cleanup(func() { _ = f.worker.Stop(context.Background()) })

	ctx := context.Background()
	queued, err := f.worker.EnqueueExport(ctx, Input{RecordID: "ocean-1", RequestedBy: "curator@example.org", Reason: "publish"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued.Status != StatusQueued || queued.Slug != "ocean-temp-2020" {
		t.Fatalf("unexpected queued job %+v", queued)
	}
	if len(queued.Formats) != 2 || queued.Formats[0] != render.FormatISO19139 || queued.Formats[1] != render.FormatSchemaOrg {
		t.Fatalf("expected default formats, got %v", queued.Formats)
	}

	job := waitFor(t, f.worker, queued.ID)
	if job.Status != StatusSucceeded {
		t.Fatalf("export failed: %s", job.Error)
	}
	if len(job.Artifacts) != 2 || job.CompletedAt == nil {
		t.Fatalf("expected two artifacts, got %+v", job)
	}
	wantKeys := []string{
		"exports/ocean-temp-2020/" + queued.ID + "/iso19139.xml",
		"exports/ocean-temp-2020/" + queued.ID + "/schemaorg.jsonld",
	}
	for i, a := range job.Artifacts {
		if a.Key != wantKeys[i] {
			t.Fatalf("artifact %d key = %s, want %s", i, a.Key, wantKeys[i])
		}
		info, rc, err := f.blobs.Get(ctx, a.Key)
		if err != nil {
			t.Fatalf("get artifact: %v", err)
		}
		body, _ := io.ReadAll(rc)
		_ = rc.Close()
		if int64(len(body)) != a.SizeBytes || info.ContentType != a.ContentType {
			t.Fatalf("stored artifact mismatch: %+v vs %+v", info, a)
		}
		if info.Metadata["export_id"] != queued.ID || info.Metadata["record_id"] != "ocean-1" {
			t.Fatalf("missing artifact metadata: %v", info.Metadata)
		}
	}

	statuses := map[Status]int{}
	for _, e := range f.audit.Entries() {
		statuses[e.Status]++
		if e.ExportID != queued.ID || e.Actor != "curator@example.org" || e.Action != auditAction {
			t.Fatalf("unexpected audit entry %+v", e)
		}
	}
	if statuses[StatusQueued] != 1 || statuses[StatusRunning] != 1 || statuses[StatusSucceeded] != 1 {
		t.Fatalf("unexpected audit trail %v", statuses)
	}
}

func TestEnqueueValidation(t *testing.T) {
	f := newFixture(t, nil)
	seed(t, f.records, "r1", "")
	ctx := context.Background()

	if _, err := f.worker.EnqueueExport(ctx, Input{RecordID: "missing"}); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.worker.EnqueueExport(ctx, Input{RecordID: "r1", Formats: []render.Format{"pdf"}}); !errors.Is(err, render.ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := f.worker.EnqueueExport(ctx, Input{RecordID: "r1", Formats: []render.Format{render.FormatDataCite}}); !errors.Is(err, render.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	job, err := f.worker.EnqueueExport(ctx, Input{RecordID: "r1", Formats: []render.Format{"citation", "cite", "iso"}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(job.Formats) != 2 || job.Formats[0] != render.FormatCitation || job.Formats[1] != render.FormatISO19139 {
		t.Fatalf("formats not normalised: %v", job.Formats)
	}
	if job.Slug != "r1" {
		t.Fatalf("slug should fall back to record id, got %s", job.Slug)
	}
	if _, ok := f.worker.GetExport("nope"); ok {
		t.Fatalf("unknown export should not be found")
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	f := newFixture(t, nil, WithQueueSize(1))
	seed(t, f.records, "r1", "Title")
	ctx := context.Background()
	if _, err := f.worker.EnqueueExport(ctx, Input{RecordID: "r1"}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := f.worker.EnqueueExport(ctx, Input{RecordID: "r1"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	entries := f.audit.Entries()
	if len(entries) != 1 {
		t.Fatalf("rejected export must not be audited, got %d entries", len(entries))
	}
	if _, ok := f.worker.GetExport(entries[0].ExportID); !ok {
		t.Fatalf("audited export %s does not exist", entries[0].ExportID)
	}
}

type failingRenderer struct{}

func (failingRenderer) Render(*metadata.Dataset, render.Format) (render.Document, error) {
	return render.Document{}, errors.New("template exploded")
}

func TestWorkerMarksRenderFailure(t *testing.T) {
	var logs bytes.Buffer
	f := newFixture(t, failingRenderer{}, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	seed(t, f.records, "r1", "Title")
	f.worker.Start()
	t.Cleanup(func() { _ = f.worker.Stop(context.Background()) })

	queued, err := f.worker.EnqueueExport(context.Background(), Input{RecordID: "r1", Formats: []render.Format{render.FormatCitation}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job := waitFor(t, f.worker, queued.ID)
	if job.Status != StatusFailed || !strings.Contains(job.Error, "template exploded") {
		t.Fatalf("expected render failure, got %+v", job)
	}
	if !strings.Contains(logs.String(), "export failed") {
		t.Fatalf("expected failure log, got %q", logs.String())
	}
}

func TestWorkerFailsWhenArtifactExists(t *testing.T) {
	f := newFixture(t, nil)
	seed(t, f.records, "r1", "Title")
	queued, err := f.worker.EnqueueExport(context.Background(), Input{RecordID: "r1", Formats: []render.Format{render.FormatCitation}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	key := "exports/title/" + queued.ID + "/citation.txt"
	if _, err := f.blobs.Put(context.Background(), key, strings.NewReader("taken"), blob.PutOptions{}); err != nil {
		t.Fatalf("pre-seed: %v", err)
	}
	f.worker.Start()
	t.Cleanup(func() { _ = f.worker.Stop(context.Background()) })
	job := waitFor(t, f.worker, queued.ID)
	if job.Status != StatusFailed || !strings.Contains(job.Error, "already exists") {
		t.Fatalf("expected store failure, got %+v", job)
	}
}

func TestWorkerFailsWhenRecordDeleted(t *testing.T) {
	f := newFixture(t, nil)
	seed(t, f.records, "r1", "Title")
	queued, err := f.worker.EnqueueExport(context.Background(), Input{RecordID: "r1"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := f.records.Delete(context.Background(), "r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	f.worker.Start()
	t.Cleanup(func() { _ = f.worker.Stop(context.Background()) })
	job := waitFor(t, f.worker, queued.ID)
	if job.Status != StatusFailed || !strings.Contains(job.Error, "load record") {
		t.Fatalf("expected load failure, got %+v", job)
	}
}

func TestGetExportReturnsCopy(t *testing.T) {
	f := newFixture(t, nil)
	seed(t, f.records, "r1", "Title")
	queued, err := f.worker.EnqueueExport(context.Background(), Input{RecordID: "r1"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	queued.Formats[0] = "mutated"
	got, _ := f.worker.GetExport(queued.ID)
	if got.Formats[0] != render.FormatISO19139 {
		t.Fatalf("GetExport leaked internal state: %v", got.Formats)
	}
}

func TestStopHonoursContext(t *testing.T) {
	f := newFixture(t, nil)
	f.worker.Start()
	if err := f.worker.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSlogAuditLog(t *testing.T) {
	var buf bytes.Buffer
	l := SlogAuditLog{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	l.Record(context.Background(), AuditEntry{ID: "a1", Action: auditAction, ExportID: "e1", Status: StatusQueued})
	if !strings.Contains(buf.String(), `"export_id":"e1"`) || !strings.Contains(buf.String(), `"status":"queued"`) {
		t.Fatalf("unexpected audit log %s", buf.String())
	}
	SlogAuditLog{}.Record(context.Background(), AuditEntry{})
}
