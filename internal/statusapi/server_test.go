package statusapi

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/tramdash/internal/fleet"
	"github.com/danmuck/tramdash/internal/observability"
	"github.com/danmuck/tramdash/internal/protocol/record"
	"github.com/danmuck/tramdash/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *fleet.Registry, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	registry := fleet.NewRegistry()
	for _, msg := range []record.Message{
		record.Location("TRAM1", "Flinders Street"),
		record.PassengerCount("TRAM1", "22"),
		record.PassengerCount("TRAM2", "7"),
	} {
		_, err := registry.Apply(msg)
		require.NoError(t, err)
	}
	srv := New(registry, Options{
		Gatherer:  reg,
		Metrics:   observability.NewMetrics(reg),
		FeedState: func() string { return "receiving" },
	})
	return srv, registry, reg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	testlog.Start(t)
	srv, _, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["trams"])
	assert.Equal(t, "receiving", body["feed"])
}

func TestListTramsKeepsOrderAndOmitsUnsetFields(t *testing.T) {
	testlog.Start(t)
	srv, _, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/trams")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Trams []map[string]any `json:"trams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Trams, 2)
	assert.Equal(t, "TRAM1", body.Trams[0]["id"])
	assert.Equal(t, "Flinders Street", body.Trams[0]["location"])
	assert.Equal(t, "22", body.Trams[0]["passenger_count"])
	assert.Equal(t, "TRAM2", body.Trams[1]["id"])
	assert.NotContains(t, body.Trams[1], "location")
}

func TestGetTram(t *testing.T) {
	testlog.Start(t)
	srv, _, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/trams/TRAM2")
	require.Equal(t, http.StatusOK, rec.Code)
	var view TramView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "TRAM2", view.ID)
	assert.Nil(t, view.Location)
	require.NotNil(t, view.PassengerCount)
	assert.Equal(t, "7", *view.PassengerCount)

	rec = get(t, srv.Handler(), "/trams/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "tram not found")
}

func TestMetricsEndpointUsesRouteTemplate(t *testing.T) {
	testlog.Start(t)
	srv, _, _ := newTestServer(t)

	get(t, srv.Handler(), "/trams/TRAM1")
	get(t, srv.Handler(), "/trams/TRAM2")
	rec := get(t, srv.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.Contains(t, out, `tramdash_http_requests_total{method="GET",path="/trams/:id",status="200"} 2`)
	assert.NotContains(t, out, "TRAM1")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	testlog.Start(t)
	srv, _, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), `"status":"ok"`))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestTokenGuardsDataRoutes(t *testing.T) {
	testlog.Start(t)
	srv := New(fleet.NewRegistry(), Options{Gatherer: prometheus.NewRegistry(), Token: "s3cret"})
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code, "healthz stays open")
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/trams").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/metrics").Code)

	for header, want := range map[string]int{
		"Bearer s3cret": http.StatusOK,
		"Bearer nope":   http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/trams", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, header)
	}
}
