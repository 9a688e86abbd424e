package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/storm-data-pros/internal/adapter/http"
	"github.com/couchcryptid/storm-data-pros/internal/adapter/memory"
	"github.com/couchcryptid/storm-data-pros/internal/config"
	"github.com/couchcryptid/storm-data-pros/internal/domain"
	"github.com/couchcryptid/storm-data-pros/internal/observability"
	"github.com/couchcryptid/storm-data-pros/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type failingStore struct{}

func (failingStore) Put(context.Context, domain.ClassifiedGrid) error { return errors.New("down") }
func (failingStore) Get(context.Context, string) (domain.ClassifiedGrid, error) {
	return domain.ClassifiedGrid{}, errors.New("down")
}

func newClassifier() *pipeline.GridTransformer {
	cfg := &config.Config{
		DefaultMethod:        "ks",
		Workers:              1,
		IntensityBreakpoints: []float64{1, 5, 10, 15},
		OutputEncoding:       domain.EncodingJSON,
	}
	return pipeline.NewTransformer(cfg, slog.Default(), observability.NewMetricsForTesting())
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, newClassifier(), memory.NewStore(16), slog.Default())
}

const dualJob = `{
	"id": "job-1",
	"method": "dual_ta",
	"threshold": [0, 3],
	"labels": ["tair"],
	"fields": [[[-1, 1, 4]]],
	"reflectivity": [[0.2, 2, 6]]
}`

func post(srv http.Handler, target, contentType string, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func get(srv http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestClassify_JSON(t *testing.T) {
	srv := newTestServer(nil)
	rec := post(srv, "/v1/classify", "application/json", []byte(dualJob))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.ContentTypeJSON, rec.Header().Get("Content-Type"))

	var grid domain.ClassifiedGrid
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, "job-1", grid.ID)
	assert.Equal(t, [][]float64{{2, 1, 0}}, grid.Result)
	assert.Equal(t, [][]int{{10, 6, 2}}, grid.Combined)

	// The result is now retrievable by ID.
	rec = get(srv, "/v1/results/job-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var stored domain.ClassifiedGrid
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, grid.Combined, stored.Combined)
}

func TestClassify_MsgpackBothWays(t *testing.T) {
	var job domain.GridJob
	require.NoError(t, json.Unmarshal([]byte(dualJob), &job))
	body, err := domain.Marshal(job, domain.EncodingMsgpack)
	require.NoError(t, err)

	rec := post(newTestServer(nil), "/v1/classify?format=msgpack", domain.ContentTypeMsgpack, body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ContentTypeMsgpack, rec.Header().Get("Content-Type"))

	grid, err := domain.DecodeResult(rec.Body.Bytes(), domain.EncodingMsgpack)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{10, 6, 2}}, grid.Combined)
}

func TestClassify_DefaultMethodAndGeneratedID(t *testing.T) {
	rec := post(newTestServer(nil), "/v1/classify", "", []byte(`{"labels":["tair","tdew"],"fields":[[[2]],[[0]]]}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var grid domain.ClassifiedGrid
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, "ks", grid.Method)
	assert.True(t, grid.Probabilistic)
	assert.NotEmpty(t, grid.ID)
}

func TestClassify_Errors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		reason string
	}{
		{"malformed", "{", http.StatusBadRequest, "decode"},
		{"bad threshold", `{"method":"dual_ta","threshold":2,"labels":["tair"],"fields":[[[1]]]}`, http.StatusUnprocessableEntity, "invalid_threshold"},
		{"unknown method", `{"method":"thermal","labels":["tair"],"fields":[[[1]]]}`, http.StatusUnprocessableEntity, "unknown_method"},
		{"shape mismatch", `{"method":"ks","labels":["tair","tdew"],"fields":[[[1]],[[1,2]]]}`, http.StatusUnprocessableEntity, "shape_mismatch"},
		{"missing variable", `{"method":"ks","labels":["tair"],"fields":[[[1]]]}`, http.StatusUnprocessableEntity, "invalid_variables"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(newTestServer(nil), "/v1/classify", "application/json", []byte(tc.body))
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.reason, body["reason"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestClassify_StoreFailureStillAnswers(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, newClassifier(), failingStore{}, slog.Default())

	rec := post(srv, "/v1/classify", "application/json", []byte(dualJob))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(srv, "/v1/results/job-1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResults_NotFound(t *testing.T) {
	rec := get(newTestServer(nil), "/v1/results/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "result not found"))

	srv := httpadapter.NewServer(":0", &mockReadiness{}, newClassifier(), nil, slog.Default())
	assert.Equal(t, http.StatusNotFound, get(srv, "/v1/results/missing").Code)
}

func TestClassify_WrongVerb(t *testing.T) {
	rec := get(newTestServer(nil), "/v1/classify")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
