package downloads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://pypistats.org"

// ErrPackageNotFound is returned when the statistics service has no
// record of a package.
var ErrPackageNotFound = errors.New("package not found")

// Stats holds the download counters for one package.
type Stats struct {
	LastMonth int64
	Total     int64
}

// Client fetches download statistics from a pypistats-compatible API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retries    int
	backoff    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets how many times a failed call is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retries = n
	}
}

// WithBackoff sets the base delay between retries. The delay grows
// linearly with the attempt number.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// NewClient creates a new statistics API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		retries:    3,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns last-month and total download counts for a package.
// The total sums the service's daily history excluding mirror traffic.
func (c *Client) Fetch(ctx context.Context, pkg string) (Stats, error) {
	var recent struct {
		Data struct {
			LastMonth int64 `json:"last_month"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/api/packages/%s/recent", c.baseURL, pkg)
	if err := c.getJSON(ctx, url, &recent); err != nil {
		return Stats{}, fmt.Errorf("fetch recent downloads for %s: %w", pkg, err)
	}

	var overall struct {
		Data []struct {
			Category  string `json:"category"`
			Downloads int64  `json:"downloads"`
		} `json:"data"`
	}
	url = fmt.Sprintf("%s/api/packages/%s/overall", c.baseURL, pkg)
	if err := c.getJSON(ctx, url, &overall); err != nil {
		return Stats{}, fmt.Errorf("fetch overall downloads for %s: %w", pkg, err)
	}

	stats := Stats{LastMonth: recent.Data.LastMonth}
	for _, row := range overall.Data {
		if row.Category == "without_mirrors" {
			stats.Total += row.Downloads
		}
	}
	return stats, nil
}

// getJSON performs a GET with bounded retries. Not-found is terminal;
// other failures retry with linear backoff.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		err := c.doGetJSON(ctx, url, v)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrPackageNotFound) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) doGetJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrPackageNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
