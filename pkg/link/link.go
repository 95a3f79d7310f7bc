// Package link builds OsmAnd pin links.
package link

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// Style selects the link format.
type Style string

const (
	// StyleMap yields https://<host>/map?pin=LAT,LON#ZOOM/LAT/LON
	StyleMap Style = "map"
	// StyleGo yields https://<host>/go.html?lat=LAT&lon=LON&z=ZOOM
	StyleGo Style = "go"
)

// DefaultHost is the OsmAnd web host.
const DefaultHost = "osmand.net"

// ParseStyle validates a style name.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleMap, StyleGo:
		return Style(s), nil
	}
	return "", fmt.Errorf("unknown link style %q (want map or go)", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Style) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	st, err := ParseStyle(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Builder renders points into links.
type Builder struct {
	Host     string
	Style    Style
	Zoom     int
	Decimals int
}

// Build renders p (X longitude, Y latitude).
func (b Builder) Build(p orb.Point) string {
	return Build(b.Host, p.Lat(), p.Lon(), b.Style, b.Zoom, b.Decimals)
}

// Build renders a link for lat/lon with fixed decimal precision. An empty host
// means DefaultHost; any style other than StyleMap renders as StyleGo.
func Build(host string, lat, lon float64, style Style, zoom, decimals int) string {
	if host == "" {
		host = DefaultHost
	}
	la := fixed(lat, decimals)
	lo := fixed(lon, decimals)
	if style == StyleMap {
		return fmt.Sprintf("https://%s/map?pin=%s,%s#%d/%s/%s", host, la, lo, zoom, la, lo)
	}
	return fmt.Sprintf("https://%s/go.html?lat=%s&lon=%s&z=%d", host, la, lo, zoom)
}

func fixed(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
