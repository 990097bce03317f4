package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Provider labels for upstream calls.
const (
	ProviderDVLA      = "dvla_ves"
	ProviderDVSA      = "dvsa_mot_history"
	ProviderDVSAToken = "dvsa_token"
)

// Outcome labels for upstream calls and token requests.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeCached  = "cached"
)

// LookupMetrics records upstream latency, expiry resolution sources and HTTP
// traffic for the lookup service.
type LookupMetrics struct {
	upstream    *prometheus.HistogramVec
	resolutions *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	requests    *prometheus.CounterVec
}

// NewLookupMetrics registers the lookup metrics on the provided registerer.
func NewLookupMetrics(reg prometheus.Registerer) *LookupMetrics {
	if reg == nil {
		return &LookupMetrics{}
	}
	upstream := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of calls to the DVLA and DVSA APIs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "outcome"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mot_expiry_resolutions_total",
		Help: "MOT expiry resolutions by source.",
	}, []string{"source"})
	tokens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_token_requests_total",
		Help: "DVSA access token acquisitions by outcome.",
	}, []string{"outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served by route pattern and status.",
	}, []string{"route", "status"})
	reg.MustRegister(upstream, resolutions, tokens, requests)
	return &LookupMetrics{
		upstream:    upstream,
		resolutions: resolutions,
		tokens:      tokens,
		requests:    requests,
	}
}

// ObserveUpstream records the duration of a single upstream call.
func (m *LookupMetrics) ObserveUpstream(provider string, err error, duration time.Duration) {
	if m == nil || m.upstream == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.upstream.WithLabelValues(normalizeLabel(provider), outcome).Observe(duration.Seconds())
}

// IncResolution counts an MOT expiry resolution by its source tag.
func (m *LookupMetrics) IncResolution(source string) {
	if m == nil || m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncTokenRequest counts an access token acquisition.
func (m *LookupMetrics) IncTokenRequest(outcome string) {
	if m == nil || m.tokens == nil {
		return
	}
	m.tokens.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncHTTPRequest counts a served request.
func (m *LookupMetrics) IncHTTPRequest(route string, status int) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(route), strconv.Itoa(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
