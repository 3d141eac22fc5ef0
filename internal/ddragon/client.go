package ddragon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultBaseURL  = "https://ddragon.leagueoflegends.com"
	defaultLanguage = "en_US"
	defaultTimeout  = 10 * time.Second
)

// Client fetches version and champion data from Data Dragon
type Client struct {
	httpClient *http.Client
	baseURL    string
	language   string
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithLanguage sets the catalog locale (default en_US)
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithTimeout sets a custom request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Data Dragon client
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		language:   defaultLanguage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchVersions returns the published game versions, newest first
func (c *Client) FetchVersions(ctx context.Context) ([]string, error) {
	var versions []string
	if err := c.getJSON(ctx, c.baseURL+"/api/versions.json", &versions); err != nil {
		return nil, fmt.Errorf("failed to fetch versions: %w", err)
	}
	return versions, nil
}

// FetchChampions returns the champion catalog for a game version
func (c *Client) FetchChampions(ctx context.Context, version string) (*ChampionList, error) {
	url := fmt.Sprintf("%s/cdn/%s/data/%s/champion.json", c.baseURL, version, c.language)

	var list ChampionList
	if err := c.getJSON(ctx, url, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch champions for %s: %w", version, err)
	}
	return &list, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
