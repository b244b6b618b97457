package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TimurManjosov/licadvisor/internal/api"
	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/rules"
)

// Client is an HTTP client for the licadvisor API
type Client struct {
	BaseURL    string
	APIKey     string // only needed for admin endpoints
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Body       api.ErrorResponse
	Raw        string
}

func (e *APIError) Error() string {
	if e.Body.Message != "" {
		msg := fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Body.Code, e.Body.Message)
		for field, reason := range e.Body.Fields {
			msg += fmt.Sprintf("; %s: %s", field, reason)
		}
		return msg
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Raw)
}

// Catalog is the body of GET /v1/requirements.
type Catalog struct {
	Requirements []rules.Rule `json:"requirements"`
	Count        int          `json:"count"`
	ETag         string       `json:"etag"`
}

// ReloadResult is the body of POST /v1/admin/catalog/reload.
type ReloadResult struct {
	ETag     string `json:"etag"`
	Count    int    `json:"count"`
	Source   string `json:"source"`
	Changed  bool   `json:"changed"`
	LoadedAt string `json:"loaded_at"`
}

// Assess submits a profile and returns the ordered matches.
func (c *Client) Assess(ctx context.Context, p profile.BusinessProfile, withReport bool) (*api.AssessResponse, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	path := "/v1/assess"
	if !withReport {
		path += "?report=false"
	}

	var out api.AssessResponse
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRequirements retrieves the active catalog
func (c *Client) ListRequirements(ctx context.Context) (*Catalog, error) {
	var out Catalog
	if err := c.do(ctx, http.MethodGet, "/v1/requirements", nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRequirement retrieves a single rule by id
func (c *Client) GetRequirement(ctx context.Context, id string) (*rules.Rule, error) {
	var out rules.Rule
	if err := c.do(ctx, http.MethodGet, "/v1/requirements/"+url.PathEscape(id), nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReloadCatalog asks the server to reload its catalog source
func (c *Client) ReloadCatalog(ctx context.Context) (*ReloadResult, error) {
	var out ReloadResult
	if err := c.do(ctx, http.MethodPost, "/v1/admin/catalog/reload", nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, admin bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Raw: string(raw)}
		_ = json.Unmarshal(raw, &apiErr.Body)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
