package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/swellmap/swellmap/internal/provider/resilience"
)

const (
	// DefaultURL is the category feed endpoint.
	DefaultURL = "https://www.surfline.com/wp-json/sl/v1/taxonomy/posts/category"

	// DefaultGeotarget selects the regional edition.
	DefaultGeotarget = "EU"

	// ProviderName identifies this provider.
	ProviderName = "surfline-news"
)

// Fetcher returns one page of posts.
type Fetcher interface {
	Posts(ctx context.Context, offset, limit int) ([]Post, error)
}

// ClientConfig holds configuration for the news client.
type ClientConfig struct {
	// URL is the feed endpoint (defaults to DefaultURL).
	URL string

	// Geotarget defaults to DefaultGeotarget.
	Geotarget string

	// HTTPClient is the resilient HTTP client. If nil, a default one is created.
	HTTPClient *resilience.Client
}

// Client fetches the live feed.
type Client struct {
	url        string
	geotarget  string
	httpClient *resilience.Client
}

// NewClient creates a new news client.
func NewClient(cfg ClientConfig) *Client {
	u := cfg.URL
	if u == "" {
		u = DefaultURL
	}
	geo := cfg.Geotarget
	if geo == "" {
		geo = DefaultGeotarget
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		hc := resilience.DefaultClientConfig(ProviderName)
		hc.Timeout = 15 * time.Second
		httpClient = resilience.NewClient(hc)
	}

	return &Client{url: u, geotarget: geo, httpClient: httpClient}
}

type postsResponse struct {
	Posts []Post `json:"posts"`
}

// Posts fetches limit posts starting at offset.
func (c *Client) Posts(ctx context.Context, offset, limit int) ([]Post, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("geotarget", c.geotarget)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from news endpoint", resp.StatusCode)
	}

	var result postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode posts response: %w", err)
	}

	return result.Posts, nil
}

// DemoFetcher pages through DemoPosts.
type DemoFetcher struct{}

// Posts returns the requested slice of DemoPosts.
func (DemoFetcher) Posts(_ context.Context, offset, limit int) ([]Post, error) {
	if offset >= len(DemoPosts) {
		return []Post{}, nil
	}
	end := min(offset+limit, len(DemoPosts))
	return append([]Post(nil), DemoPosts[offset:end]...), nil
}
