package jsdelivr

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultCDNURL      = "https://cdn.jsdelivr.net"
	defaultRegistryURL = "https://registry.npmmirror.com"
	defaultTimeout     = 15 * time.Second

	// PackageScope prefixes every source value to form its npm package name
	PackageScope = "@champ-r/"

	// LatestTag is the dist-tag used when no explicit package version is known
	LatestTag = "latest"
)

// Client fetches the source list and per-champion build documents
type Client struct {
	httpClient  *http.Client
	cdnURL      string
	registryURL string
}

// Option configures a Client
type Option func(*Client)

// WithCDNURL sets a custom jsDelivr base URL (useful for testing)
func WithCDNURL(url string) Option {
	return func(c *Client) {
		c.cdnURL = url
	}
}

// WithRegistryURL sets a custom npm registry base URL
func WithRegistryURL(url string) Option {
	return func(c *Client) {
		c.registryURL = url
	}
}

// WithTimeout sets a custom request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new jsDelivr client
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		cdnURL:      defaultCDNURL,
		registryURL: defaultRegistryURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PackageName returns the npm package publishing a source's builds
func PackageName(source string) string {
	return PackageScope + source
}

// FetchSources returns the published list of content sources
func (c *Client) FetchSources(ctx context.Context) ([]Source, error) {
	url := c.cdnURL + "/gh/champ-r/source-list/index.json"

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source list: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch source list: unexpected status code: %d", status)
	}

	var sources []Source
	if err := json.Unmarshal(body, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse source list: %w", err)
	}
	return sources, nil
}

// FetchPackageInfo returns npm metadata for a source's latest package
func (c *Client) FetchPackageInfo(ctx context.Context, source string) (*PackageInfo, error) {
	url := fmt.Sprintf("%s/%s/latest", c.registryURL, PackageName(source))

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch package info for %s: %w", source, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch package info for %s: unexpected status code: %d", source, status)
	}

	var info PackageInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse package info for %s: %w", source, err)
	}
	return &info, nil
}

// ResolveVersion returns the concrete package version behind the latest tag
func (c *Client) ResolveVersion(ctx context.Context, source string) (string, error) {
	info, err := c.FetchPackageInfo(ctx, source)
	if err != nil {
		return "", err
	}
	if info.DistTags.Latest != "" {
		return info.DistTags.Latest, nil
	}
	if info.Version != "" {
		return info.Version, nil
	}
	return "", fmt.Errorf("package info for %s has no version", source)
}

// FetchBuildDocuments fetches the build documents a source publishes for a
// champion. A payload that does not parse as documents means the source has
// nothing for this champion and yields (nil, nil). Errors are reserved for
// transport failures and non-2xx responses with an unusable body.
func (c *Client) FetchBuildDocuments(ctx context.Context, source, version, champion string) ([]BuildDocument, error) {
	if version == "" {
		version = LatestTag
	}
	url := fmt.Sprintf("%s/npm/%s@%s/%s.json", c.cdnURL, PackageName(source), version, champion)

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var docs []BuildDocument
	if err := json.Unmarshal(body, &docs); err != nil {
		if status < 200 || status > 299 {
			return nil, fmt.Errorf("%s returned status %d", url, status)
		}
		log.Printf("[jsDelivr] %s: unparseable payload: %v", url, err)
		return nil, nil
	}
	return docs, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
