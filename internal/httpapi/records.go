package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"datasetmd/internal/catalog"
	"datasetmd/internal/export"
	"datasetmd/internal/render"
	"datasetmd/pkg/citation"
	"datasetmd/pkg/keywords"
	"datasetmd/pkg/metadata"
)

func (a *api) listRecords(w http.ResponseWriter, r *http.Request) {
	records, err := a.records.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (a *api) createRecord(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	ds, err := metadata.Decode(body, metadata.FormatForContentType(r.Header.Get("Content-Type")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := a.records.Put(r.Context(), catalog.NewRecord(ds))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/records/"+rec.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"record": rec})
}

func (a *api) load(w http.ResponseWriter, r *http.Request) (catalog.Record, bool) {
	rec, err := a.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return catalog.Record{}, false
	}
	return rec, true
}

func (a *api) getRecord(w http.ResponseWriter, r *http.Request) {
	if rec, ok := a.load(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"record": rec})
	}
}

func (a *api) deleteRecord(w http.ResponseWriter, r *http.Request) {
	existed, err := a.records.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) citation(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.load(w, r)
	if !ok {
		return
	}
	text, present, err := citation.Synthesize(rec.Dataset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !present {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"citation": text})
}

func (a *api) keywords(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.load(w, r)
	if !ok {
		return
	}
	var observed, kws []*metadata.DefinedTerm
	if rec.Dataset != nil {
		observed, kws = rec.Dataset.ObservedProperties, rec.Dataset.Keywords
	}
	groups, _ := keywords.Group(observed, kws)
	if groups == nil {
		groups = []keywords.Vocabulary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"vocabularies": groups})
}

func (a *api) render(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rec, ok := a.load(w, r)
	if !ok {
		return
	}
	doc, err := a.renderer.Render(rec.Dataset, format)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": rec.ID + "." + doc.Extension}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

type exportRequest struct {
	RecordID    string   `json:"record_id"`
	Formats     []string `json:"formats"`
	RequestedBy string   `json:"requested_by"`
	Reason      string   `json:"reason"`
}

func (a *api) createExport(w http.ResponseWriter, r *http.Request) {
	if a.exports == nil {
		writeError(w, http.StatusServiceUnavailable, "exports not configured")
		return
	}
	var req exportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	if strings.TrimSpace(req.RecordID) == "" {
		writeError(w, http.StatusBadRequest, "record_id required")
		return
	}
	formats := make([]render.Format, 0, len(req.Formats))
	for _, f := range req.Formats {
		formats = append(formats, render.Format(f))
	}
	job, err := a.exports.EnqueueExport(r.Context(), export.Input{
		RecordID:    req.RecordID,
		Formats:     formats,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
	})
	if err != nil {
		if errors.Is(err, render.ErrUnsupportedFormat) {
			// a declared format without a renderer is a bad request here
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/exports/"+job.ID)
	writeJSON(w, http.StatusAccepted, map[string]any{"export": job})
}

func (a *api) getExport(w http.ResponseWriter, r *http.Request) {
	if a.exports == nil {
		writeError(w, http.StatusServiceUnavailable, "exports not configured")
		return
	}
	job, ok := a.exports.GetExport(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": job})
}
