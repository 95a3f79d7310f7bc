package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"osmandlink/pkg/logging"
	"osmandlink/pkg/tracker"
	"osmandlink/pkg/version"
)

// ErrClosed is returned by requests made after Close.
var ErrClosed = errors.New("request client closed")

var (
	defaultUserAgent = fmt.Sprintf("osmandlink/%s (+https://github.com/spmp/osmand-link-helper)", version.Version)
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Client performs GET requests through one sequential queue per provider
// (host). Each request is attempted once.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	userAgent  string

	// Queues per provider (domain)
	queues map[string]chan job
	mu     sync.Mutex // Protects queues map

	done      chan struct{}
	closeOnce sync.Once
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration // 0 means no client-side timeout
	UserAgent string        // empty means the default agent
}

// job represents a queued request.
type job struct {
	req      *http.Request
	headers  map[string]string
	provider string
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client.
func New(t *tracker.Tracker, opts Options) *Client {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		tracker:    t,
		userAgent:  ua,
		queues:     make(map[string]chan job),
		done:       make(chan struct{}),
	}
}

// Get performs a GET request through the provider queue.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil)
}

// GetWithHeaders performs a GET request with custom headers.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := NormalizeProvider(parsedURL.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respChan := make(chan jobResult, 1)
	if err := c.dispatch(provider, job{req: req, headers: headers, provider: provider, respChan: respChan}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	case res := <-respChan:
		return res.body, res.err
	}
}

// Close stops the provider workers. Pending and later requests fail with
// ErrClosed. Close is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		close(c.done)
		clear(c.queues)
	})
}

// NormalizeProvider groups hosts into tracker provider names.
func NormalizeProvider(host string) string {
	h := strings.ToLower(host)
	if i := strings.LastIndex(h, ":"); i >= 0 && !strings.Contains(h[i:], "]") {
		h = h[:i]
	}
	if strings.HasSuffix(h, ".openstreetmap.org") || strings.HasPrefix(h, "nominatim.") {
		return "nominatim"
	}
	return h
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) error {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return ErrClosed
	default:
	}
	q, ok := c.queues[provider]
	if !ok {
		q = make(chan job, 100)
		c.queues[provider] = q
		go c.worker(q)
	}
	c.mu.Unlock()

	// Block while the queue is full, throttling the caller
	select {
	case q <- j:
		return nil
	case <-j.req.Context().Done():
		return j.req.Context().Err()
	case <-c.done:
		return ErrClosed
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(q <-chan job) {
	for {
		var j job
		select {
		case <-c.done:
			return
		case j = <-q:
		}
		if err := j.req.Context().Err(); err != nil {
			slog.Warn("Job dropped from queue (context expired)", "provider", j.provider, "error", err)
			j.respChan <- jobResult{err: err}
			continue
		}

		uaSet := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaSet = true
			}
		}
		if !uaSet {
			j.req.Header.Set("User-Agent", c.userAgent)
		}

		body, err := c.execute(j.req)
		if err == nil {
			c.tracker.TrackAPISuccess(j.provider)
		} else {
			c.tracker.TrackAPIFailure(j.provider)
		}
		j.respChan <- jobResult{body: body, err: err}
	}
}

// execute performs one attempt and maps non-2xx statuses to *StatusError.
func (c *Client) execute(req *http.Request) ([]byte, error) {
	start := time.Now()
	slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.RequestLogger.Info("Outbound Request Failed", "url", req.URL.String(), "error", err, "duration", time.Since(start))
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	logging.RequestLogger.Info("Outbound Request", "url", req.URL.String(), "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	return body, nil
}
