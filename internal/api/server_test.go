package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safe-ro/safe-ro/internal/history"
	"github.com/safe-ro/safe-ro/internal/pipeline"
	"github.com/safe-ro/safe-ro/internal/properties"
	"github.com/safe-ro/safe-ro/internal/raster"
)

func TestMain(m *testing.M) {
	godal.RegisterAll()
	os.Exit(m.Run())
}

type fixture struct {
	red, nir, s1, fires string
}

func writeFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	bounds := raster.BoundingBox{Left: 21.1, Bottom: 45.6, Right: 21.4, Top: 45.9}
	write := func(name string, fn func(i int) float64) string {
		g := raster.NewGrid(10, 10)
		for i := range g.Data {
			g.Data[i] = fn(i)
		}
		path := filepath.Join(dir, name)
		require.NoError(t, raster.WriteGeoTIFF(path, g, raster.WithDataType(godal.Float64), raster.WithBounds(bounds, 4326)))
		return path
	}
	f := fixture{
		red: write("red.tif", func(int) float64 { return 0.1 }),
		nir: write("nir.tif", func(int) float64 { return 0.3 }),
		s1:  write("vv.tif", func(i int) float64 { return float64(i + 1) }),
	}
	f.fires = filepath.Join(dir, "fires.csv")
	csv := "latitude,longitude,confidence\n45.7,21.2,90\n45.8,21.3,50\n47.0,27.0,99\n"
	require.NoError(t, os.WriteFile(f.fires, []byte(csv), 0644))
	return f
}

type fakeHistory struct {
	runs []history.Run
	last int
}

func (f *fakeHistory) List(_ context.Context, limit int) ([]history.Run, error) {
	f.last = limit
	return f.runs, nil
}

func newServer(cfg properties.Config, h RunLister) *Server {
	return New(cfg, pipeline.NewRunner(), h)
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	var payload map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestRootAndHealth(t *testing.T) {
	s := newServer(properties.Config{}, nil)

	rec, body := do(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the SAFE-RO API", body["message"])

	rec, body = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "safe_ro_http_requests_total")
}

func TestNDVIEndpoint(t *testing.T) {
	f := writeFixture(t)
	s := newServer(properties.Config{}, nil)

	rec, body := do(t, s, http.MethodPost, "/ndvi", jsonBody(t, map[string]any{"red_path": f.red, "nir_path": f.nir}))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := body["stats"].(map[string]any)
	assert.InDelta(t, 0.5, stats["mean"].(float64), 1e-9)
	assert.InDelta(t, 0.5, stats["min"].(float64), 1e-9)
	bounds := body["bounds"].(map[string]any)
	assert.InDelta(t, 21.1, bounds["left"].(float64), 1e-9)

	rec, body = do(t, s, http.MethodPost, "/ndvi", jsonBody(t, map[string]any{"red_path": f.red, "nir_path": "/does/not/exist.tif"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Could not compute NDVI", body["error"])
	assert.Equal(t, string(raster.ReasonOpen), body["reason"])

	rec, _ = do(t, s, http.MethodPost, "/ndvi", jsonBody(t, map[string]any{"red_path": f.red, "nir_path": f.nir, "downsample": -1}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/ndvi", `{"red_path":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/ndvi", `{"red_path":"a.tif"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFloodEndpoint(t *testing.T) {
	f := writeFixture(t)
	s := newServer(properties.Config{}, nil)

	rec, body := do(t, s, http.MethodPost, "/flood", jsonBody(t, map[string]any{"s1_path": f.s1}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 20.0, body["flooded_area_percent"].(float64), 1e-9)
	assert.InDelta(t, 20.8, body["threshold"].(float64), 1e-9)

	rec, body = do(t, s, http.MethodPost, "/flood", jsonBody(t, map[string]any{"s1_path": f.s1, "threshold": 11}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 10.0, body["flooded_area_percent"].(float64), 1e-9)

	rec, body = do(t, s, http.MethodPost, "/flood", jsonBody(t, map[string]any{"s1_path": f.s1, "percentile": 150}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Could not compute flood mask", body["error"])

	rec, _ = do(t, s, http.MethodPost, "/flood", jsonBody(t, map[string]any{"s1_path": "/missing.tiff"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFiresEndpoint(t *testing.T) {
	f := writeFixture(t)
	s := newServer(properties.Config{}, nil)

	rec, body := do(t, s, http.MethodPost, "/fires", jsonBody(t, map[string]any{"csv_path": f.fires}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["count"])
	assert.Len(t, body["example"], 2)

	rec, body = do(t, s, http.MethodPost, "/fires", jsonBody(t, map[string]any{
		"csv_path": f.fires, "min_confidence": 10, "bbox": []float64{45.6, 45.9, 21.1, 21.4},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["count"])

	rec, _ = do(t, s, http.MethodPost, "/fires", jsonBody(t, map[string]any{"csv_path": "/missing.csv"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPipelineEndpoint(t *testing.T) {
	f := writeFixture(t)
	s := newServer(properties.Config{}, nil)

	rec, body := do(t, s, http.MethodPost, "/pipeline", jsonBody(t, pipeline.Inputs{
		Region: "Timisoara", RedPath: f.red, NIRPath: f.nir, S1Path: f.s1, FIRMSPath: f.fires,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Timisoara", body["region"])
	flood := body["flood"].(map[string]any)
	assert.InDelta(t, 20.0, flood["flooded_area_percent"].(float64), 1e-9)
	fires := body["fires"].(map[string]any)
	assert.Equal(t, 2.0, fires["count"])

	rec, _ = do(t, s, http.MethodPost, "/pipeline", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	s := newServer(properties.Config{}, nil)
	rec, _ := do(t, s, http.MethodGet, "/history", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h := &fakeHistory{runs: []history.Run{{ID: "r1", Kind: "pipeline", Inputs: json.RawMessage(`{}`)}}}
	s = newServer(properties.Config{}, h)

	rec, body := do(t, s, http.MethodGet, "/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, h.last)
	assert.Len(t, body["runs"], 1)

	rec, _ = do(t, s, http.MethodGet, "/history?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	f := writeFixture(t)
	s := newServer(properties.Config{APIBearerToken: "s3cret"}, nil)
	body := jsonBody(t, map[string]any{"s1_path": f.s1})

	rec, _ := do(t, s, http.MethodPost, "/flood", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/flood", body, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/flood", body, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
