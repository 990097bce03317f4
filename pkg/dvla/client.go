// Package dvla is a client for the DVLA Vehicle Enquiry Service.
package dvla

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/vehiclevault-lookup/pkg/config"
	pkgerrors "github.com/angelmondragon/vehiclevault-lookup/pkg/errors"
)

const (
	DefaultURL = "https://driver-vehicle-licensing.api.gov.uk/vehicle-enquiry/v1/vehicles"

	responseBodyReadLimit int64 = 1 << 20
	rawExcerptLimit             = 500
)

// Client wraps the single POST endpoint of the Vehicle Enquiry Service.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithURL overrides the enquiry endpoint.
func WithURL(endpoint string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			c.url = trimmed
		}
	}
}

// NewClient builds the enquiry client. A missing API key is reported when a
// lookup runs so the service can start without DVLA credentials.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return client
}

type enquiryRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
}

// Enquire fetches the vehicle record for a canonical VRM.
func (c *Client) Enquire(ctx context.Context, vrm string) (*Record, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "DVLA client not configured")
	}
	if c.apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "Missing "+config.EnvDVLAAPIKey).
			WithDetails(map[string]any{"missing": []string{config.EnvDVLAAPIKey}})
	}
	if strings.TrimSpace(vrm) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "VRM required")
	}

	payload, err := json.Marshal(enquiryRequest{RegistrationNumber: vrm})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal vehicle enquiry request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build vehicle enquiry request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "DVLA request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read DVLA response")
	}
	fields := decodeFields(body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "DVLA request failed").
			WithHTTPStatus(resp.StatusCode).
			WithDetails(map[string]any{
				"status":  resp.StatusCode,
				"details": fields,
			})
	}

	return RecordFromFields(fields), nil
}

// decodeFields parses a JSON object body. Anything else is kept as raw text so
// the caller still sees what the provider said.
func decodeFields(body []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err == nil && fields != nil {
		return fields
	}
	return map[string]any{"raw": excerpt(string(body), rawExcerptLimit)}
}

func excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
