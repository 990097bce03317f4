package dvsa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/angelmondragon/vehiclevault-lookup/pkg/errors"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/metrics"
)

// DefaultSafetyMargin is subtracted from a token's expiry before it is reused.
const DefaultSafetyMargin = 30 * time.Second

// DefaultTokenTimeout bounds a shared token request.
const DefaultTokenTimeout = 10 * time.Second

// Token is a bearer credential for the MOT history API.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// ValidAt reports whether the token can still be presented at now.
func (t Token) ValidAt(now time.Time, margin time.Duration) bool {
	if t.AccessToken == "" || t.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}

// TokenCache stores the current bearer token. Implementations must be safe for
// concurrent use.
type TokenCache interface {
	Get() (Token, bool)
	Set(Token)
}

// MemoryTokenCache keeps the token in process memory only.
type MemoryTokenCache struct {
	mu    sync.RWMutex
	token Token
	ok    bool
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{}
}

func (c *MemoryTokenCache) Get() (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.ok
}

func (c *MemoryTokenCache) Set(token Token) {
	c.mu.Lock()
	c.token = token
	c.ok = token.AccessToken != ""
	c.mu.Unlock()
}

// TokenSource performs the client credentials exchange and serves cached
// tokens until they approach expiry.
type TokenSource struct {
	config         clientcredentials.Config
	httpClient     *http.Client
	cache          TokenCache
	margin         time.Duration
	requestTimeout time.Duration
	now            func() time.Time
	metrics        *metrics.LookupMetrics
	group          singleflight.Group
}

func newTokenSource(cfg Config, httpClient *http.Client, cache TokenCache, m *metrics.LookupMetrics, now func() time.Time) *TokenSource {
	var scopes []string
	if cfg.Scope != "" {
		scopes = []string{cfg.Scope}
	}
	margin := cfg.SafetyMargin
	if margin <= 0 {
		margin = DefaultSafetyMargin
	}
	timeout := cfg.TokenTimeout
	if timeout <= 0 {
		timeout = DefaultTokenTimeout
	}
	return &TokenSource{
		config: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient:     httpClient,
		cache:          cache,
		margin:         margin,
		requestTimeout: timeout,
		now:            now,
		metrics:        m,
	}
}

// Token returns a usable bearer token, refreshing it when the cached one is
// missing or inside the safety margin. Concurrent refreshes share one request
// that is detached from any single caller's cancellation; each caller still
// stops waiting when its own ctx is done.
func (s *TokenSource) Token(ctx context.Context) (Token, error) {
	if token, ok := s.cached(); ok {
		s.metrics.IncTokenRequest(metrics.OutcomeCached)
		return token, nil
	}

	ch := s.group.DoChan("token", func() (any, error) {
		if token, ok := s.cached(); ok {
			return refresh{token: token}, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.requestTimeout)
		defer cancel()

		start := time.Now()
		token, err := s.fetch(fetchCtx)
		s.metrics.ObserveUpstream(metrics.ProviderDVSAToken, err, time.Since(start))
		if err != nil {
			s.metrics.IncTokenRequest(metrics.OutcomeFailure)
			return nil, err
		}
		s.metrics.IncTokenRequest(metrics.OutcomeSuccess)
		return refresh{token: token, fetched: true}, nil
	})

	select {
	case <-ctx.Done():
		return Token{}, tokenError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		r := res.Val.(refresh)
		if !r.fetched {
			s.metrics.IncTokenRequest(metrics.OutcomeCached)
		}
		return r.token, nil
	}
}

// refresh is the shared result of one token acquisition.
type refresh struct {
	token   Token
	fetched bool
}

func (s *TokenSource) cached() (Token, bool) {
	token, ok := s.cache.Get()
	if !ok || !token.ValidAt(s.now(), s.margin) {
		return Token{}, false
	}
	return token, true
}

func (s *TokenSource) fetch(ctx context.Context) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	raw, err := s.config.Token(ctx)
	if err != nil {
		return Token{}, tokenError(err)
	}

	token := Token{AccessToken: raw.AccessToken, ExpiresAt: raw.Expiry}
	// Without expires_in the token is used for this request only.
	if !token.ExpiresAt.IsZero() {
		s.cache.Set(token)
	}
	return token, nil
}

func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		status := retrieveErr.Response.StatusCode
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err,
			fmt.Sprintf("DVSA token request failed (%d): %s", status, excerpt(string(retrieveErr.Body), errorExcerptLimit))).
			WithHTTPStatus(http.StatusBadGateway)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "DVSA token request timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "DVSA token request failed")
}
