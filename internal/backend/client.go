package backend

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
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 15 * time.Second

	maxErrorBody = 2048
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
	if detail := e.Detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Detail extracts the "detail" field the backend puts in error bodies,
// falling back to the raw body.
func (e *StatusError) Detail() string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		raw, _ := json.Marshal(body.Detail)
		return string(raw)
	}
	return strings.TrimSpace(e.Body)
}

// Client talks to the portfolio/dossier backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-call timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Portfolio(ctx context.Context) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/portfolio", nil)
	if err != nil {
		return nil, fmt.Errorf("backend: get portfolio: %w", err)
	}
	return resp, nil
}

func (c *Client) Dossier(ctx context.Context, projectID string) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/dossier/"+url.PathEscape(projectID), nil)
	if err != nil {
		return nil, fmt.Errorf("backend: get dossier %q: %w", projectID, err)
	}
	return resp, nil
}

func (c *Client) FieldNotes(ctx context.Context, req FieldNotesRequest) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/tools/field-notes", req)
	if err != nil {
		return nil, fmt.Errorf("backend: field notes %q: %w", req.ProjectID, err)
	}
	return resp, nil
}

func (c *Client) LaborDetail(ctx context.Context, req LaborDetailRequest) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/tools/labor-detail", req)
	if err != nil {
		return nil, fmt.Errorf("backend: labor detail %q/%q: %w", req.ProjectID, req.SOVLineID, err)
	}
	return resp, nil
}

func (c *Client) ChangeOrderDetail(ctx context.Context, req ChangeOrderRequest) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/tools/co-detail", req)
	if err != nil {
		return nil, fmt.Errorf("backend: change order %q/%q: %w", req.ProjectID, req.CONumber, err)
	}
	return resp, nil
}

func (c *Client) RFIDetail(ctx context.Context, req RFIRequest) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/tools/rfi-detail", req)
	if err != nil {
		return nil, fmt.Errorf("backend: rfi %q/%q: %w", req.ProjectID, req.RFINumber, err)
	}
	return resp, nil
}

func (c *Client) WhatIfMargin(ctx context.Context, req WhatIfMarginRequest) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/tools/what-if-margin", req)
	if err != nil {
		return nil, fmt.Errorf("backend: what-if margin %q: %w", req.ProjectID, err)
	}
	return resp, nil
}

func (c *Client) SendEmail(ctx context.Context, req EmailRequest) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/email", req)
	if err != nil {
		return nil, fmt.Errorf("backend: send email to %q: %w", req.To, err)
	}
	return resp, nil
}

// do issues one request and decodes the JSON body. Numbers are kept as
// json.Number so the payload reaches the model unchanged. A top-level array
// is wrapped as {"items": [...]}.
func (c *Client) do(ctx context.Context, method, path string, payload any) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return map[string]any{}, nil
	default:
		return map[string]any{"items": v}, nil
	}
}
