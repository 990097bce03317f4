// Package dvsa is a client for the DVSA MOT history API. It owns the OAuth
// client credentials exchange and picks the authoritative MOT expiry from a
// vehicle's test history.
package dvsa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/vehiclevault-lookup/pkg/config"
	pkgerrors "github.com/angelmondragon/vehiclevault-lookup/pkg/errors"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/metrics"
)

const (
	DefaultBaseURL = "https://history.mot.api.gov.uk"

	registrationPath            = "/v1/trade/vehicles/registration/"
	errorExcerptLimit           = 200
	responseBodyReadLimit int64 = 4 << 20
)

// Config carries the credentials and endpoints for the MOT history API.
// Secrets are checked on every call rather than at construction.
type Config struct {
	APIKey       string
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	SafetyMargin time.Duration
	// TokenTimeout bounds the shared token request; zero means DefaultTokenTimeout.
	TokenTimeout time.Duration
}

func (c Config) missing() error {
	required := []struct {
		env   string
		value string
	}{
		{config.EnvDVSAAPIKey, c.APIKey},
		{config.EnvDVSATokenURL, c.TokenURL},
		{config.EnvDVSAClientID, c.ClientID},
		{config.EnvDVSAClientSecret, c.ClientSecret},
		{config.EnvDVSAScope, c.Scope},
	}
	var errs error
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = multierr.Append(errs, errors.New(r.env))
		}
	}
	return errs
}

// Expiry is the outcome of a history lookup. Date is empty when no usable
// record exists; Advisory explains a response that could not be read.
type Expiry struct {
	Date     string
	Advisory string
}

// Client fetches MOT history with a cached bearer token.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *TokenSource
	cache      TokenCache
	metrics    *metrics.LookupMetrics
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for token and history calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenCache replaces the in-memory token cache.
func WithTokenCache(cache TokenCache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithMetrics records token acquisition outcomes.
func WithMetrics(m *metrics.LookupMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.cache == nil {
		client.cache = NewMemoryTokenCache()
	}
	client.tokens = newTokenSource(cfg, client.httpClient, client.cache, client.metrics, client.now)
	return client
}

// ExpiryDate returns the expiry of the most recently completed MOT test that
// carries a valid date.
func (c *Client) ExpiryDate(ctx context.Context, vrm string) (Expiry, error) {
	if c == nil {
		return Expiry{}, pkgerrors.New(pkgerrors.CodeConfiguration, "DVSA client not configured")
	}
	if err := c.cfg.missing(); err != nil {
		names := make([]string, 0, 5)
		for _, e := range multierr.Errors(err) {
			names = append(names, e.Error())
		}
		return Expiry{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err,
			"Missing DVSA config: "+strings.Join(names, ", ")).
			WithDetails(map[string]any{"missing": names})
	}
	if strings.TrimSpace(vrm) == "" {
		return Expiry{}, pkgerrors.New(pkgerrors.CodeValidation, "VRM required")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return Expiry{}, err
	}

	endpoint := c.cfg.BaseURL + registrationPath + url.PathEscape(vrm)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Expiry{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build MOT history request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token.AccessToken)
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Expiry{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "DVSA request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return Expiry{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read DVSA response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Expiry{}, pkgerrors.New(pkgerrors.CodeUpstream,
			fmt.Sprintf("DVSA request failed (%d): %s", resp.StatusCode, excerpt(string(body), errorExcerptLimit))).
			WithHTTPStatus(resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Expiry{Advisory: "DVSA response could not be parsed"}, nil
	}
	if env.vehicle == nil {
		return Expiry{}, nil
	}
	return Expiry{Date: LatestExpiry(env.vehicle.MotTests)}, nil
}

func excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
