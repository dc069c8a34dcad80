// Package remote implements modgraph.Gateway against the modgraph HTTP API.
package remote

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

	"github.com/GoCodeAlone/modgraph"
)

// ErrUnexpectedStatus wraps responses the client cannot map to a modgraph
// error.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Client talks to a modgraph server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// New creates a Client for baseURL, e.g. "http://127.0.0.1:5000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q needs a scheme and host", modgraph.ErrValidation, baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetAll implements modgraph.Gateway.
func (c *Client) GetAll(ctx context.Context) (map[string]modgraph.Module, error) {
	var out map[string]modgraph.Module
	if err := c.do(ctx, http.MethodGet, "/api/modules", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]modgraph.Module{}
	}
	return out, nil
}

// Create implements modgraph.Gateway.
func (c *Client) Create(ctx context.Context, m modgraph.Module) (modgraph.Module, error) {
	var out modgraph.Module
	if err := c.do(ctx, http.MethodPost, "/api/modules", m, &out); err != nil {
		return modgraph.Module{}, err
	}
	return out, nil
}

// Update implements modgraph.Gateway.
func (c *Client) Update(ctx context.Context, name string, patch modgraph.ModulePatch) (modgraph.Module, error) {
	var out modgraph.Module
	if err := c.do(ctx, http.MethodPut, modulePath(name), patch, &out); err != nil {
		return modgraph.Module{}, err
	}
	return out, nil
}

// Delete implements modgraph.Gateway.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, modulePath(name), nil, nil)
}

func modulePath(name string) string {
	return "/api/modules/" + url.PathEscape(name)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
	msg := eb.Error
	if eb.Details != "" {
		msg += ": " + eb.Details
	}
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", modgraph.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", modgraph.ErrConflict, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", modgraph.ErrValidation, msg)
	default:
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, msg)
	}
}
