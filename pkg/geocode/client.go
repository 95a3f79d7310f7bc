// Package geocode resolves free-form address text to candidate coordinates
// through a Nominatim-compatible search endpoint.
package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/paulmach/orb"

	"osmandlink/pkg/logging"
	"osmandlink/pkg/request"
	"osmandlink/pkg/tracker"
)

// Candidate is one search match.
type Candidate struct {
	DisplayName string `json:"display_name"`
	Lat         Coord  `json:"lat"`
	Lon         Coord  `json:"lon"`
}

// Point returns the candidate position (X longitude, Y latitude).
func (c Candidate) Point() (orb.Point, error) {
	lat, err := strconv.ParseFloat(string(c.Lat), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: bad latitude %q", ErrParse, c.Lat)
	}
	lon, err := strconv.ParseFloat(string(c.Lon), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: bad longitude %q", ErrParse, c.Lon)
	}
	return orb.Point{lon, lat}, nil
}

// Label is the display name, or fallback when the service gave none.
func (c Candidate) Label(fallback string) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return fallback
}

// Coord is a decimal degree value. Nominatim encodes it as a string; plain
// JSON numbers are accepted too.
type Coord string

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coord) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Coord(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Coord(n.String())
	return nil
}

// Client searches the geocoding endpoint.
type Client struct {
	fetcher  Fetcher
	endpoint string
	locale   string
	tracker  *tracker.Tracker
}

// Options configures a Client.
type Options struct {
	Endpoint string
	Locale   string // Accept-Language; see Locale
	Tracker  *tracker.Tracker
}

// NewClient creates a client on top of fetcher.
func NewClient(f Fetcher, opts Options) *Client {
	return &Client{
		fetcher:  f,
		endpoint: opts.Endpoint,
		locale:   Locale(opts.Locale),
		tracker:  opts.Tracker,
	}
}

// Transport names the fetcher in use.
func (c *Client) Transport() string { return c.fetcher.Name() }

// SearchURL builds the request URL for query.
func (c *Client) SearchURL(query string, limit int, countryCodes string) string {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	if countryCodes != "" {
		params.Set("countrycodes", countryCodes)
	}
	return c.endpoint + "?" + params.Encode()
}

// Search issues one request and returns the candidates in service order.
// Candidates without usable coordinates are skipped. Zero candidates is not
// an error. Failures wrap ErrNetwork or ErrParse.
func (c *Client) Search(ctx context.Context, query string, limit int, countryCodes string) ([]Candidate, error) {
	if limit < 1 {
		limit = 5
	}
	u := c.SearchURL(query, limit, countryCodes)
	slog.Debug("Geocode URL", "url", u, "transport", c.fetcher.Name())

	body, err := c.fetcher.FetchJSON(ctx, u, map[string]string{
		"Accept":          "application/json",
		"Accept-Language": c.locale,
	})
	if err != nil {
		return nil, err
	}
	logging.TraceDefault("Geocode response", "body", string(body))

	var raw []Candidate
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	out := make([]Candidate, 0, len(raw))
	for _, cand := range raw {
		if _, err := cand.Point(); err != nil {
			slog.Warn("Skipping geocode candidate", "name", cand.DisplayName, "error", err)
			continue
		}
		out = append(out, cand)
	}

	if len(out) == 0 && c.tracker != nil {
		if pu, err := url.Parse(c.endpoint); err == nil {
			c.tracker.TrackAPIZero(request.NormalizeProvider(pu.Host))
		}
	}
	slog.Debug("Geocode results", "query", query, "count", len(out))
	return out, nil
}
