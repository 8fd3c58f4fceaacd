// Package http provides an HTTP client for the moneycoach service.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	moneycoach "github.com/matt-riley/moneycoach/clients/go"
)

const maxErrorBody = 4 << 10

// Config holds configuration for the HTTP client.
type Config struct {
	// BaseURL is the base URL of the moneycoach server, e.g. "http://localhost:8080".
	BaseURL string
	// HTTPClient is optional; defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client implements moneycoach.ProductLister and moneycoach.FeatureReader over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ moneycoach.ProductLister = (*Client)(nil)
	_ moneycoach.FeatureReader = (*Client)(nil)
)

// NewHTTPClient returns a new HTTP client for the moneycoach service.
func NewHTTPClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/"), httpClient: hc}
}

// -- wire types --------------------------------------------------------------

type wireProduct struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ScreenName string `json:"screenName"`
}

type wireView struct {
	State    string        `json:"state"`
	Products []wireProduct `json:"products"`
	Message  string        `json:"message"`
	Outcome  string        `json:"outcome"`
}

type wireOutcome struct {
	State     string   `json:"state"`
	PartnerID string   `json:"partnerId"`
	Features  []string `json:"features"`
	Error     string   `json:"error"`
}

type wireSelection struct {
	ProductID  string `json:"productId"`
	ScreenName string `json:"screenName"`
}

// -- helpers -----------------------------------------------------------------

// APIError is returned when the server responds with an HTTP error status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moneycoach: HTTP %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("moneycoach: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("moneycoach: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("moneycoach: decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the "error" field of a JSON error body, falling back
// to the raw body text.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}

func decodeOutcome(w wireOutcome) moneycoach.Outcome {
	return moneycoach.Outcome{
		State:     w.State,
		PartnerID: w.PartnerID,
		Features:  w.Features,
		Error:     w.Error,
	}
}

// -- ProductLister -----------------------------------------------------------

// Products returns the current product view.
func (c *Client) Products(ctx context.Context) (moneycoach.View, error) {
	var w wireView
	if err := c.do(ctx, http.MethodGet, "/v1/products", &w); err != nil {
		return moneycoach.View{}, err
	}

	view := moneycoach.View{
		State:    w.State,
		Products: make([]moneycoach.Product, len(w.Products)),
		Message:  w.Message,
		Outcome:  w.Outcome,
	}
	for i, p := range w.Products {
		view.Products[i] = moneycoach.Product{ID: p.ID, Name: p.Name, ScreenName: p.ScreenName}
	}
	return view, nil
}

// Select selects a visible product. The server answers 404 for an unknown
// product and 409 for one that is not currently visible; both come back as
// *APIError.
func (c *Client) Select(ctx context.Context, productID string) (moneycoach.Selection, error) {
	var w wireSelection
	path := "/v1/products/" + url.PathEscape(productID) + "/select"
	if err := c.do(ctx, http.MethodPost, path, &w); err != nil {
		return moneycoach.Selection{}, err
	}
	return moneycoach.Selection{ProductID: w.ProductID, ScreenName: w.ScreenName}, nil
}

// -- FeatureReader -----------------------------------------------------------

// Features returns the server's current feature resolution outcome.
func (c *Client) Features(ctx context.Context) (moneycoach.Outcome, error) {
	var w wireOutcome
	if err := c.do(ctx, http.MethodGet, "/v1/features", &w); err != nil {
		return moneycoach.Outcome{}, err
	}
	return decodeOutcome(w), nil
}

// Refetch asks the server to resolve its partner's features again and returns
// the resulting outcome.
func (c *Client) Refetch(ctx context.Context) (moneycoach.Outcome, error) {
	var w wireOutcome
	if err := c.do(ctx, http.MethodPost, "/v1/features/refetch", &w); err != nil {
		return moneycoach.Outcome{}, err
	}
	return decodeOutcome(w), nil
}
