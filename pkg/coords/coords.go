// Package coords recognises raw "lat,lon" pairs typed into a field.
package coords

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Kind tells whether a text is a coordinate pair or free-form address text.
type Kind int

const (
	Address Kind = iota
	Coordinates
)

func (k Kind) String() string {
	if k == Coordinates {
		return "coordinates"
	}
	return "address"
}

// Degrees need 1-3 integer digits and a decimal fraction. The pair may sit
// inside other text ("meet at 51.5,-0.12") but digit runs are never cut short.
var pairRe = regexp.MustCompile(`(?:^|[^\d.])(-?\d{1,3}\.\d+)\s*,\s*(-?\d{1,3}\.\d+)(?:$|[^\d.])`)

// Classification is the outcome of Classify.
type Classification struct {
	Kind  Kind
	Point orb.Point // valid only when Kind == Coordinates; X is longitude, Y latitude
	Text  string    // trimmed input
}

// Classify decides whether text is a coordinate pair. No match is a normal
// outcome and yields Kind Address.
func Classify(text string) Classification {
	trimmed := strings.TrimSpace(text)
	if p, ok := Parse(trimmed); ok {
		return Classification{Kind: Coordinates, Point: p, Text: trimmed}
	}
	return Classification{Kind: Address, Text: trimmed}
}

// Parse extracts the first coordinate pair in s. A pair outside the valid
// latitude or longitude range is not a match.
func Parse(s string) (orb.Point, bool) {
	m := pairRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return orb.Point{}, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return orb.Point{}, false
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return orb.Point{}, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}
