package archive

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/prsense/ghingest/helpers"
)

const (
	// DefaultBaseURL is the public hourly archive of GitHub events
	DefaultBaseURL = "https://data.gharchive.org"

	// DefaultFetchTimeout bounds one hour-unit fetch, including streaming
	// the full body
	DefaultFetchTimeout = 5 * time.Minute

	DefaultMaxRetries   = 3
	defaultRetryInitial = 1 * time.Second
	defaultRetryMax     = 30 * time.Second

	// archive lines hold full PR/comment payloads and can run large
	maxLineSize = 16 * 1024 * 1024
)

// Client fetches hour-aligned archive units as a lazy stream of parsed
// records, decompressing on the fly so the full archive never resides in
// memory at once.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int

	retryInitial time.Duration
	retryMax     time.Duration
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRateLimit caps archive requests to n per second.
func WithRateLimit(n float64) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(n), 1) }
}

func WithMaxRetries(n int) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		maxRetries:   DefaultMaxRetries,
		retryInitial: defaultRetryInitial,
		retryMax:     defaultRetryMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(DefaultFetchTimeout)
	}
	return c
}

// HourURL returns the URL of the archive file for the given unit.
func (c *Client) HourURL(unit HourUnit) string {
	return fmt.Sprintf("%s/%s", c.baseURL, unit.FileName())
}

// FetchHour opens a record cursor over one hour unit. Transport failures
// are retried with bounded backoff; once the budget is exhausted the
// error is returned and the caller decides whether to skip the unit or
// abort. An hour that is absent upstream (not yet published, or a gap in
// the archive) yields an empty cursor, not an error.
func (c *Client) FetchHour(ctx context.Context, unit HourUnit) (*RecordCursor, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url := c.HourURL(unit)
	var body io.ReadCloser
	err := helpers.Retry(ctx, c.maxRetries, c.retryInitial, c.retryMax, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			body = resp.Body
			return nil
		case resp.StatusCode == http.StatusNotFound:
			// absent hour - zero records
			resp.Body.Close()
			return nil
		default:
			resp.Body.Close()
			return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hour %s: %w", unit, err)
	}
	if body == nil {
		slog.Debug("hour not published, treating as empty", "unit", unit.String())
		return emptyCursor(), nil
	}

	gz, err := gzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", url, err)
	}
	return newRecordCursor(body, gz), nil
}
