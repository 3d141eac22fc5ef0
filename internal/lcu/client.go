package lcu

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// ErrNotInChampSelect is returned when no champion select session exists
var ErrNotInChampSelect = errors.New("not in champion select")

// Client talks to the League client REST API
type Client struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithClientTimeout sets the request timeout
func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a client for the given endpoint
func NewClient(ep *Endpoint, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true, // LCU uses self-signed cert
				},
			},
			Timeout: 5 * time.Second,
		},
		baseURL:    ep.BaseURL(),
		authHeader: ep.AuthHeader(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping verifies the API is reachable with the current credentials
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "GET", "/lol-summoner/v1/current-summoner", nil, nil)
}

// ChampSelectSession returns the current champion select session, or
// ErrNotInChampSelect
func (c *Client) ChampSelectSession(ctx context.Context) (*ChampSelectSession, error) {
	var session ChampSelectSession
	if err := c.do(ctx, "GET", "/lol-champ-select/v1/session", nil, &session); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, ErrNotInChampSelect
		}
		return nil, err
	}
	return &session, nil
}

// CurrentRunePage returns the selected rune page
func (c *Client) CurrentRunePage(ctx context.Context) (*RunePage, error) {
	var page RunePage
	if err := c.do(ctx, "GET", "/lol-perks/v1/currentpage", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteRunePage removes a rune page
func (c *Client) DeleteRunePage(ctx context.Context, id int) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/lol-perks/v1/pages/%d", id), nil, nil)
}

// CreateRunePage creates a rune page and selects it
func (c *Client) CreateRunePage(ctx context.Context, page RunePage) (*RunePage, error) {
	page.ID = 0
	page.Current = true
	var created RunePage
	if err := c.do(ctx, "POST", "/lol-perks/v1/pages", page, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
