// Package partnerapi fetches a partner's feature statuses from the remote
// partner features service.
//
// The client issues exactly one GET per call. It has no retry or backoff and
// no timeout beyond what the caller's context and the HTTP transport impose.
package partnerapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/matt-riley/moneycoach/internal/core"
)

const (
	maxResponseBytes = 1 << 20
	maxErrorBodySize = 512
)

// ErrEmptyPartnerID is returned without issuing a request when the partner ID
// is blank.
var ErrEmptyPartnerID = errors.New("partner id is required")

// Config holds configuration for the partner features client.
type Config struct {
	// BaseURL is the base address of the partner features service, e.g.
	// "https://partners.example.com".
	BaseURL string
	// HTTPClient is optional; defaults to a client with an otelhttp transport.
	HTTPClient *http.Client
}

// Client retrieves raw partner feature payloads over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the partner features service.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: hc,
	}
}

// FetchError describes a failed fetch: a transport error, a non-2xx status or
// a body that does not match the partner features document.
type FetchError struct {
	PartnerID  string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch features for partner %q: HTTP %d: %s", e.PartnerID, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("fetch features for partner %q: %s: %v", e.PartnerID, e.Message, e.Err)
	default:
		return fmt.Sprintf("fetch features for partner %q: %s", e.PartnerID, e.Message)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FeaturesPath returns the request path for partnerID, path-escaping the ID.
func FeaturesPath(partnerID string) string {
	return "/api/partners/" + url.PathEscape(partnerID) + "/features"
}

// FetchFeatures retrieves the raw feature payload for partnerID. Every
// failure is returned as a *FetchError; no partial payload is ever returned.
func (c *Client) FetchFeatures(ctx context.Context, partnerID string) (core.RawFeaturePayload, error) {
	if strings.TrimSpace(partnerID) == "" {
		return core.RawFeaturePayload{}, ErrEmptyPartnerID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+FeaturesPath(partnerID), nil)
	if err != nil {
		return core.RawFeaturePayload{}, &FetchError{PartnerID: partnerID, Message: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.RawFeaturePayload{}, &FetchError{PartnerID: partnerID, Message: "http", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return core.RawFeaturePayload{}, &FetchError{PartnerID: partnerID, StatusCode: resp.StatusCode, Message: text}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return core.RawFeaturePayload{}, &FetchError{PartnerID: partnerID, Message: "read response", Err: err}
	}
	if len(body) > maxResponseBytes {
		return core.RawFeaturePayload{}, &FetchError{PartnerID: partnerID, Message: "response body too large"}
	}

	payload, err := ParsePayload(body)
	if err != nil {
		return core.RawFeaturePayload{}, &FetchError{PartnerID: partnerID, Message: "decode response", Err: err}
	}

	return payload, nil
}
