package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/agrorain/internal/observability"
	"github.com/i474232898/agrorain/internal/rainfall"
	"github.com/i474232898/agrorain/internal/store"
)

type testEnv struct {
	app     *fiber.App
	svc     *rainfall.Service
	kv      *store.MemoryKV
	metrics *observability.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	kv := store.NewMemoryKV()
	local, err := store.NewLocalStore(ctx, kv, nil)
	require.NoError(t, err)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC))
	svc := rainfall.NewService(local, clock, nil, metrics, rainfall.Options{
		Location:      time.UTC,
		OfflineReason: "remote backend not configured",
		Tiles:         rainfall.MapTiles{URL: "https://tiles/{z}/{x}/{y}.png", Attribution: "osm"},
	})
	svc.Start(ctx)
	t.Cleanup(func() {
		cancel()
		svc.Wait()
		local.Close()
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(RequestMetrics(metrics))
	RegisterRoutes(app, svc)

	return &testEnv{app: app, svc: svc, kv: kv, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (e *testEnv) createGauge(t *testing.T, body string) rainfall.Gauge {
	t.Helper()
	resp, raw := e.do(t, http.MethodPost, "/api/v1/gauges", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var g rainfall.Gauge
	require.NoError(t, json.Unmarshal(raw, &g))
	require.Eventually(t, func() bool {
		for _, existing := range e.svc.Gauges() {
			if existing.ID == g.ID {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return g
}

func TestCreateGaugeValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodPost, "/api/v1/gauges", `{"latitude":1,"longitude":2}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, true, body["error"])
	assert.NotEmpty(t, body["message"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/gauges", `{"name":"A","latitude":"north","longitude":2}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Empty(t, env.svc.Gauges())
}

func TestGaugeLifecycle(t *testing.T) {
	env := newTestEnv(t)

	g := env.createGauge(t, `{"name":"Sede","latitude":-15.1,"longitude":-47.2,"description":"casa"}`)
	assert.Equal(t, "Sede", g.Name)

	resp, raw := env.do(t, http.MethodGet, "/api/v1/gauges", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"description":"casa"`)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/gauges/"+g.ID, "")
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)
	assert.Len(t, env.svc.Gauges(), 1)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/gauges/"+g.ID+"?confirm=true", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Eventually(t, func() bool { return len(env.svc.Gauges()) == 0 }, time.Second, 5*time.Millisecond)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/gauges/"+g.ID+"?confirm=true", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecordsAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	g := env.createGauge(t, `{"name":"G1","latitude":1,"longitude":2}`)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/records", `{"gaugeId":"`+g.ID+`","amount":-2}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/records", `{"gaugeId":"`+g.ID+`","amount":10,"date":"13/03/2024"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw := env.do(t, http.MethodPost, "/api/v1/records", `{"gaugeId":"`+g.ID+`","amount":10}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var created rainfall.RainfallRecord
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "2024-03-13", created.Date)

	_, _ = env.do(t, http.MethodPost, "/api/v1/records", `{"gaugeId":"other","amount":4,"date":"2024-03-01"}`)
	require.Eventually(t, func() bool { return len(env.svc.Records()) == 2 }, time.Second, 5*time.Millisecond)

	resp, raw = env.do(t, http.MethodGet, "/api/v1/records?gaugeId="+g.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var filtered []rainfall.RainfallRecord
	require.NoError(t, json.Unmarshal(raw, &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, 10.0, filtered[0].Amount)

	resp, raw = env.do(t, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dash struct {
		Stats  rainfall.DashboardStats `json:"stats"`
		Series []rainfall.DailyPoint   `json:"series"`
	}
	require.NoError(t, json.Unmarshal(raw, &dash))
	assert.Equal(t, 10.0, dash.Stats.WeeklyTotal)
	assert.Equal(t, 14.0, dash.Stats.MonthlyTotal)
	assert.Equal(t, 14.0, dash.Stats.SeasonTotal)
	assert.Equal(t, 10.0, dash.Stats.MaxRainfall)
	assert.Equal(t, 7.0, dash.Stats.DailyAverage)
	require.Len(t, dash.Series, rainfall.SeriesDays)
	assert.Equal(t, "13/03", dash.Series[len(dash.Series)-1].Label)
}

func TestMapAndExport(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodGet, "/api/v1/map", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var empty map[string]any
	require.NoError(t, json.Unmarshal(raw, &empty))
	assert.Equal(t, []any{rainfall.DefaultCenterLat, rainfall.DefaultCenterLon}, empty["center"])
	assert.Equal(t, 13.0, empty["zoom"])

	g := env.createGauge(t, `{"name":"A","latitude":-10,"longitude":-50}`)
	env.createGauge(t, `{"name":"Equador","latitude":0,"longitude":0}`)
	_, _ = env.do(t, http.MethodPost, "/api/v1/records", `{"gaugeId":"`+g.ID+`","amount":12.34,"date":"2024-03-10"}`)
	require.Eventually(t, func() bool { return len(env.svc.Records()) == 1 }, time.Second, 5*time.Millisecond)

	resp, raw = env.do(t, http.MethodGet, "/api/v1/map", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view map[string]any
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.Equal(t, []any{-10.0, -50.0}, view["center"])
	assert.Equal(t, 12.0, view["zoom"])
	assert.Equal(t, "osm", view["tiles"].(map[string]any)["attribution"])
	markers := view["markers"].([]any)
	require.Len(t, markers, 2)
	assert.Equal(t, 1.0, markers[0].(map[string]any)["intensity"])

	resp, raw = env.do(t, http.MethodGet, "/api/v1/map/export.kml", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.google-earth.kml+xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="agrorain_mapa_2024-03-13.kml"`, resp.Header.Get("Content-Disposition"))
	assert.Contains(t, string(raw), "-50,-10,0")
	assert.Contains(t, string(raw), "A: 12.3mm")
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status rainfall.Status
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, rainfall.BackendLocal, status.Backend)
	assert.True(t, status.Offline)
	assert.Equal(t, "remote backend not configured", status.OfflineReason)
}

func TestWriteFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.kv.Close())

	resp, raw := env.do(t, http.MethodPost, "/api/v1/gauges", `{"name":"A","latitude":1,"longitude":2}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(raw), "store closed")
}

func TestRequestMetrics(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/api/v1/status", "")
	env.do(t, http.MethodDelete, "/api/v1/gauges/x", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("/api/v1/status", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("/api/v1/gauges/:id", "428")))
}
