package httpapi

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasetmd/internal/blob"
	"datasetmd/internal/catalog"
	"datasetmd/internal/export"
	"datasetmd/internal/infra/persistence/memory"
	"datasetmd/internal/metrics"
	"datasetmd/internal/render"
)

const oceanYAML = `
base:
  identifier: ocean-1
  title: Ocean Temp 2020
  abstract: Temperature & salinity <hourly>
citation:
  doi: 10.1/xyz
  authors:
    - type: person
      family_name: Doe
      given_name: Jane
      affiliation:
        - name: Marine Institute
          country: Ireland
observed_properties:
  - title: sea_water_temperature
    url: http://vocab/sst
    in_defined_term_set:
      title: CF Standard Names
      url: http://vocab/cf
keywords:
  - title: Oceans
    url: http://gemet/oceans
    in_defined_term_set:
      title: GEMET
      url: http://gemet
`

type harness struct {
	srv     *httptest.Server
	records *memory.Store
	worker  *export.Worker
}

func newHarness(t *testing.T) harness {
	t.Helper()
	renderer, err := render.New()
	require.NoError(t, err)
	blobs, err := blob.Open(context.Background(), blob.Config{Driver: blob.DriverMemory})
	require.NoError(t, err)
	records := memory.NewStore()
	worker := export.NewWorker(records, renderer, blobs)
	worker.Start()
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })
	srv := httptest.NewServer(NewRouter(Deps{
		Records:  records,
		Renderer: renderer,
		Exports:  worker,
		Metrics:  metrics.NewPrometheus(),
	}))
	t.Cleanup(srv.Close)
	return harness{srv: srv, records: records, worker: worker}
}

func (h harness) do(t *testing.T, method, path, contentType, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (h harness) seed(t *testing.T) {
	t.Helper()
	resp, body := h.do(t, http.MethodPost, "/api/v1/records", "application/yaml", oceanYAML)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRecordLifecycle(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodPost, "/api/v1/records", "application/yaml", oceanYAML)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, "/api/v1/records/ocean-1", resp.Header.Get("Location"))

	resp, body = h.do(t, http.MethodGet, "/api/v1/records", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Records []catalog.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Records, 1)
	assert.Equal(t, "Ocean Temp 2020", list.Records[0].Title())

	resp, body = h.do(t, http.MethodGet, "/api/v1/records/ocean-1", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"identifier":"ocean-1"`)

	resp, _ = h.do(t, http.MethodDelete, "/api/v1/records/ocean-1", "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = h.do(t, http.MethodDelete, "/api/v1/records/ocean-1", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"error"`)
	resp, _ = h.do(t, http.MethodGet, "/api/v1/records/ocean-1", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateRecordJSONAndErrors(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodPost, "/api/v1/records", "application/json", `{"base":{"title":"No id"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = h.do(t, http.MethodPost, "/api/v1/records", "application/json", `{"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "bogus")

	resp, _ = h.do(t, http.MethodPost, "/api/v1/records", "application/yaml", "citation:\n  authors:\n    - type: robot\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCitationAndKeywords(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	resp, body := h.do(t, http.MethodGet, "/api/v1/records/ocean-1/citation", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cite struct {
		Citation string `json:"citation"`
	}
	require.NoError(t, json.Unmarshal(body, &cite))
	assert.Equal(t, "Doe, Jane (1). Ocean Temp 2020. doi: 10.1/xyz. (1) Marine Institute, Ireland.", cite.Citation)

	resp, body = h.do(t, http.MethodGet, "/api/v1/records/ocean-1/keywords", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var kw struct {
		Vocabularies []struct {
			Title string `json:"title"`
			Terms []struct {
				Title string `json:"title"`
			} `json:"terms"`
		} `json:"vocabularies"`
	}
	require.NoError(t, json.Unmarshal(body, &kw))
	require.Len(t, kw.Vocabularies, 2)
	assert.Equal(t, "CF Standard Names", kw.Vocabularies[0].Title)
	assert.Equal(t, "GEMET", kw.Vocabularies[1].Title)
}

func TestCitationAndKeywordsAbsent(t *testing.T) {
	h := newHarness(t)
	_, err := h.records.Put(context.Background(), catalog.Record{ID: "bare"})
	require.NoError(t, err)

	resp, body := h.do(t, http.MethodGet, "/api/v1/records/bare/citation", "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)

	resp, body = h.do(t, http.MethodGet, "/api/v1/records/bare/keywords", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"vocabularies":[]}`, string(body))

	resp, _ = h.do(t, http.MethodGet, "/api/v1/records/missing/citation", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenderFormats(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	resp, body := h.do(t, http.MethodGet, "/api/v1/records/ocean-1/render/iso19139", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
	dec := xml.NewDecoder(strings.NewReader(string(body)))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Contains(t, string(body), "Temperature &amp; salinity &lt;hourly&gt;")

	resp, body = h.do(t, http.MethodGet, "/api/v1/records/ocean-1/render/schemaorg", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/ld+json", resp.Header.Get("Content-Type"))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "Ocean Temp 2020", doc["name"])

	resp, body = h.do(t, http.MethodGet, "/api/v1/records/ocean-1/render/citation", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), "Doe, Jane (1)."))

	resp, _ = h.do(t, http.MethodGet, "/api/v1/records/ocean-1/render/datacite", "", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, "/api/v1/records/ocean-1/render/pdf", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, "/api/v1/records/missing/render/iso19139", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenderFilenameIsQuoted(t *testing.T) {
	h := newHarness(t)
	_, err := h.records.Put(context.Background(), catalog.Record{ID: `ocean"v2`})
	require.NoError(t, err)

	resp, _ := h.do(t, http.MethodGet, "/api/v1/records/"+url.PathEscape(`ocean"v2`)+"/render/citation", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	disposition, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "inline", disposition)
	assert.Equal(t, `ocean"v2.txt`, params["filename"])
}

func TestExports(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	resp, body := h.do(t, http.MethodPost, "/api/v1/exports", "application/json", `{"record_id":"ocean-1","formats":["citation"],"requested_by":"curator"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	var created struct {
		Export export.Job `json:"export"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, export.StatusQueued, created.Export.Status)

	require.Eventually(t, func() bool {
		resp, err := h.srv.Client().Get(h.srv.URL + "/api/v1/exports/" + created.Export.ID)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		var got struct {
			Export export.Job `json:"export"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			return false
		}
		return got.Export.Status == export.StatusSucceeded && len(got.Export.Artifacts) == 1
	}, 2*time.Second, 20*time.Millisecond)

	cases := []struct {
		body   string
		status int
	}{
		{`{"record_id":"missing"}`, http.StatusNotFound},
		{`{"record_id":"ocean-1","formats":["pdf"]}`, http.StatusBadRequest},
		{`{"record_id":"ocean-1","formats":["datacite"]}`, http.StatusBadRequest},
		{`{"formats":["citation"]}`, http.StatusBadRequest},
		{`{"record_id":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, _ := h.do(t, http.MethodPost, "/api/v1/exports", "application/json", tc.body)
		assert.Equal(t, tc.status, resp.StatusCode, tc.body)
	}
	resp, _ = h.do(t, http.MethodGet, "/api/v1/exports/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportsNotConfigured(t *testing.T) {
	renderer, err := render.New()
	require.NoError(t, err)
	srv := httptest.NewServer(NewRouter(Deps{Records: memory.NewStore(), Renderer: renderer}))
	defer srv.Close()
	resp, err := srv.Client().Post(srv.URL+"/api/v1/exports", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodGet, "/healthz", "", "")
	resp, body := h.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `datasetmd_operations_total{operation="http GET /healthz",status="success"}`)
}
