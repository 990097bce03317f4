package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vehiclevault-lookup/api/responses"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	scopes []string
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (s *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, 0, s.err
	}
	s.scopes = append(s.scopes, scope)
	s.counts[scope]++
	count := s.counts[scope]
	return count <= limit, count, nil
}

func lookupRouter(policy RateLimitPolicy, store RateLimitStore) http.Handler {
	r := chi.NewRouter()
	r.With(RateLimit(policy, store, nil)).Get("/lookup/{vrm}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.With(RateLimit(policy, store, nil)).Post("/lookup", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
	return r
}

func doRequest(h http.Handler, method, path, body, ip string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = ip + ":4242"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env responses.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestRateLimitBlocksPerIP(t *testing.T) {
	store := newFakeRateStore()
	h := lookupRouter(NewRateLimitPolicy("lookup", time.Minute, 2, 0), store)

	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/lookup/AB12CDE", "", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/lookup/XY98ZAB", "", "10.0.0.1").Code)

	rec := doRequest(h, http.MethodGet, "/lookup/AB12CDE", "", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeErrorCode(t, rec))

	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/lookup/AB12CDE", "", "10.0.0.2").Code)
}

func TestRateLimitBlocksPerVRMAcrossSpellings(t *testing.T) {
	store := newFakeRateStore()
	h := lookupRouter(NewRateLimitPolicy("lookup", time.Minute, 0, 1), store)

	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/lookup/ab12cde", "", "10.0.0.1").Code)
	rec := doRequest(h, http.MethodGet, "/lookup/AB12%20CDE", "", "10.0.0.2")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	for _, scope := range store.scopes {
		assert.NotContains(t, scope, "AB12CDE")
		assert.True(t, strings.HasPrefix(scope, "vrm:lookup:"))
	}
}

func TestRateLimitReadsVRMFromPostBodyAndRestoresIt(t *testing.T) {
	store := newFakeRateStore()
	h := lookupRouter(NewRateLimitPolicy("lookup", time.Minute, 0, 1), store)

	body := `{"registrationNumber":"xy98 zab"}`
	rec := doRequest(h, http.MethodPost, "/lookup", body, "10.0.0.1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.String())

	rec = doRequest(h, http.MethodPost, "/lookup", `{"registrationNumber":"XY98ZAB"}`, "10.0.0.3")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"vrm:lookup:" + hashValue("XY98ZAB"), "vrm:lookup:" + hashValue("XY98ZAB")}, store.scopes)
}

func TestRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	h := lookupRouter(NewRateLimitPolicy("lookup", time.Minute, 5, 5), store)

	rec := doRequest(h, http.MethodGet, "/lookup/AB12CDE", "", "10.0.0.1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DEPENDENCY_ERROR", decodeErrorCode(t, rec))
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	h := lookupRouter(NewRateLimitPolicy("lookup", 0, 1, 1), store)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/lookup/AB12CDE", "", "10.0.0.1").Code)
	}
	assert.Empty(t, store.scopes)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
