package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnexpectedStatus is returned for any non-2xx API response.
var ErrUnexpectedStatus = errors.New("unexpected notion API status")

// Config holds Notion API connection settings.
type Config struct {
	BaseURL           string // e.g. https://api.notion.com
	Token             string // integration secret
	Version           string // Notion-Version header
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client is a minimal Notion REST client: database query, page retrieve, page update.
// All requests share one rate limiter so a run never bursts past the API's limits.
type Client struct {
	HTTPClient *http.Client
	Config     Config
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.notion.com"
	}
	if cfg.Version == "" {
		cfg.Version = "2022-06-28"
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	return &Client{HTTPClient: hc, Config: cfg, limiter: rate.NewLimiter(limit, 1)}
}

// Page is a database row.
type Page struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
}

// QueryRequest is the body of a database query.
type QueryRequest struct {
	Filter      any    `json:"filter,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// QueryResponse is one page of query results.
type QueryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// QueryDatabase fetches a single page of results.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	path := "/v1/databases/" + url.PathEscape(databaseID) + "/query"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}
	return &resp, nil
}

// QueryAll follows the cursor until the API reports no more results.
func (c *Client) QueryAll(ctx context.Context, databaseID string, filter any) ([]Page, error) {
	var pages []Page
	req := QueryRequest{Filter: filter}
	for {
		resp, err := c.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return pages, nil
		}
		req.StartCursor = *resp.NextCursor
	}
}

func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/v1/pages/"+url.PathEscape(pageID), nil, &page); err != nil {
		return nil, fmt.Errorf("retrieve page %s: %w", pageID, err)
	}
	return &page, nil
}

// UpdatePage patches the given properties; properties not named are left untouched.
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties map[string]PropertyValue) error {
	body := struct {
		Properties map[string]PropertyValue `json:"properties"`
	}{properties}
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(pageID), body, nil); err != nil {
		return fmt.Errorf("update page %s: %w", pageID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Config.Token)
	req.Header.Set("Notion-Version", c.Config.Version)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
