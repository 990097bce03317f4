package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vehiclevault-lookup/pkg/logger"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/metrics"
)

func newTestLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("info"), Output: buf})
}

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(requestIDHeader))
}

func TestRequestIDReusesCallerValue(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, strings.Repeat("x", maxRequestIDLength+1), seen)
}

func TestLoggingRecordsRoutePatternNotPath(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := newTestLogger(buf)

	r := chi.NewRouter()
	r.Use(RequestID(logg))
	r.Use(Logging(logg))
	r.Get("/api/dvla/{vrm}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dvla/AB12CDE", nil))

	out := buf.String()
	assert.Contains(t, out, `"msg":"request.complete"`)
	assert.Contains(t, out, `"route":"/api/dvla/{vrm}"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"request_id":`)
	assert.NotContains(t, out, "AB12CDE")
}

func TestRecovererWritesInternalError(t *testing.T) {
	buf := &bytes.Buffer{}
	h := Recoverer(newTestLogger(buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeErrorCode(t, rec))
	assert.Contains(t, buf.String(), "panic.recovered")
}

func TestMetricsCountsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewLookupMetrics(reg)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/v1/vehicles/lookup/{vrm}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	for _, plate := range []string{"AB12CDE", "XY98ZAB"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/vehicles/lookup/"+plate, nil))
	}

	expected := `
# HELP http_requests_total HTTP requests served by route pattern and status.
# TYPE http_requests_total counter
http_requests_total{route="/api/v1/vehicles/lookup/{vrm}",status="200"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"))
}
