package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"osmandlink/pkg/request"
	"osmandlink/pkg/tracker"
)

// Fetcher retrieves a JSON document. Implementations share one failure
// contract: transport failures and non-2xx statuses wrap ErrNetwork.
type Fetcher interface {
	Name() string
	FetchJSON(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

// QueuedFetcher goes through the per-provider queue of request.Client, which
// identifies itself with the configured User-Agent.
type QueuedFetcher struct {
	client *request.Client
}

// NewQueuedFetcher wraps a request client.
func NewQueuedFetcher(c *request.Client) *QueuedFetcher {
	return &QueuedFetcher{client: c}
}

func (f *QueuedFetcher) Name() string { return "queued" }

func (f *QueuedFetcher) FetchJSON(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, err := f.client.GetWithHeaders(ctx, url, headers)
	if err != nil {
		return nil, networkError(err)
	}
	return body, nil
}

// DirectFetcher issues plain requests with its own http.Client.
type DirectFetcher struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
}

// NewDirectFetcher creates a fetcher. timeout 0 means none.
func NewDirectFetcher(t *tracker.Tracker, timeout time.Duration) *DirectFetcher {
	return &DirectFetcher{
		httpClient: &http.Client{Timeout: timeout},
		tracker:    t,
	}
}

func (f *DirectFetcher) Name() string { return "direct" }

func (f *DirectFetcher) FetchJSON(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	provider := request.NormalizeProvider(req.URL.Host)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.track(provider, false)
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.track(provider, false)
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, networkError(&request.StatusError{Code: resp.StatusCode, URL: url})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.track(provider, false)
		return nil, networkError(err)
	}
	f.track(provider, true)
	return body, nil
}

func (f *DirectFetcher) track(provider string, ok bool) {
	if f.tracker == nil {
		return
	}
	if ok {
		f.tracker.TrackAPISuccess(provider)
	} else {
		f.tracker.TrackAPIFailure(provider)
	}
}

// networkError wraps err in ErrNetwork. Context errors stay matchable too.
func networkError(err error) error {
	if errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
