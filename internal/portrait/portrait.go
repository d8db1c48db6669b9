// Package portrait finds a picture of a historical figure on Wikipedia.
package portrait

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/chronos/internal/observe"
)

const (
	defaultBaseURL = "https://en.wikipedia.org/w/api.php"
	defaultTimeout = 10 * time.Second
	thumbSize      = "300"
)

// Portrait is the result of a lookup. URL is nil when no picture was found;
// Name is the matched page title, or the queried name.
type Portrait struct {
	URL  *string `json:"url"`
	Name string  `json:"name"`
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL overrides the MediaWiki API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client looks portraits up. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the English Wikipedia.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Lookup searches for figure's page and returns its thumbnail. It never
// fails: any error yields a portrait without URL.
func (c *Client) Lookup(ctx context.Context, figure string) Portrait {
	title, err := c.search(ctx, figure)
	if err != nil {
		observe.Logger(ctx).Warn("portrait search failed", "figure", figure, "err", err)
		return Portrait{Name: figure}
	}
	if title == "" {
		return Portrait{Name: figure}
	}
	thumb, err := c.thumbnail(ctx, title)
	if err != nil {
		observe.Logger(ctx).Warn("portrait image lookup failed", "figure", figure, "page", title, "err", err)
		return Portrait{Name: title}
	}
	p := Portrait{Name: title}
	if thumb != "" {
		p.URL = &thumb
	}
	return p
}

func (c *Client) search(ctx context.Context, figure string) (string, error) {
	q := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {figure},
		"format":   {"json"},
	}
	var resp struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.get(ctx, q, &resp); err != nil {
		return "", err
	}
	if len(resp.Query.Search) == 0 {
		return "", nil
	}
	return resp.Query.Search[0].Title, nil
}

func (c *Client) thumbnail(ctx context.Context, title string) (string, error) {
	q := url.Values{
		"action":      {"query"},
		"titles":      {title},
		"prop":        {"pageimages"},
		"format":      {"json"},
		"pithumbsize": {thumbSize},
	}
	var resp struct {
		Query struct {
			Pages map[string]struct {
				Thumbnail struct {
					Source string `json:"source"`
				} `json:"thumbnail"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, q, &resp); err != nil {
		return "", err
	}
	// A title query returns a single page keyed by its id.
	for _, p := range resp.Query.Pages {
		return p.Thumbnail.Source, nil
	}
	return "", nil
}

func (c *Client) get(ctx context.Context, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("portrait: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "chronos/1.0 (portrait lookup)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("portrait: HTTP: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("portrait: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("portrait: unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("portrait: decode response: %w", err)
	}
	return nil
}
