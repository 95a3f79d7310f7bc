package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"osmandlink/pkg/action"
	"osmandlink/pkg/config"
	"osmandlink/pkg/coords"
	"osmandlink/pkg/geocode"
	"osmandlink/pkg/link"
)

// LinkHandler exposes the link builder and the geocoder over HTTP.
type LinkHandler struct {
	cfg      *config.Config
	geocoder action.Geocoder
}

// NewLinkHandler creates a LinkHandler.
func NewLinkHandler(cfg *config.Config, g action.Geocoder) *LinkHandler {
	return &LinkHandler{cfg: cfg, geocoder: g}
}

type LinkResponse struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Link string  `json:"link"`
}

// HandleLink builds a link from lat/lon, or from a coordinate pair in text.
// style and zoom override the configured values.
func (h *LinkHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var pt orb.Point
	if text := q.Get("text"); text != "" {
		cls := coords.Classify(text)
		if cls.Kind != coords.Coordinates {
			writeError(w, http.StatusBadRequest, "text does not contain a coordinate pair")
			return
		}
		pt = cls.Point
	} else {
		lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
		lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "lat and lon must be numbers")
			return
		}
		pt = orb.Point{lon, lat}
	}
	if pt.Lat() < -90 || pt.Lat() > 90 || pt.Lon() < -180 || pt.Lon() > 180 {
		writeError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}

	b := h.cfg.Builder()
	if s := q.Get("style"); s != "" {
		style, err := link.ParseStyle(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		b.Style = style
	}
	if z := q.Get("zoom"); z != "" {
		zoom, err := strconv.Atoi(z)
		if err != nil || zoom < 1 || zoom > 22 {
			writeError(w, http.StatusBadRequest, "zoom must be 1-22")
			return
		}
		b.Zoom = zoom
	}

	writeJSON(w, http.StatusOK, LinkResponse{Lat: pt.Lat(), Lon: pt.Lon(), Link: b.Build(pt)})
}

type GeocodeResult struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Link  string  `json:"link"`
}

// HandleGeocode runs one geocoder search for q and returns the candidates
// with their links.
func (h *LinkHandler) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing q")
		return
	}

	cands, err := h.geocoder.Search(r.Context(), query, h.cfg.Geocoder.Limit, h.cfg.Geocoder.CountryCodes)
	if err != nil {
		slog.Warn("Geocode request failed", "query", query, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, geocode.ErrNetwork) || errors.Is(err, geocode.ErrParse) {
			status = http.StatusBadGateway
		}
		writeError(w, status, err.Error())
		return
	}

	b := h.cfg.Builder()
	results := make([]GeocodeResult, 0, len(cands))
	for _, c := range cands {
		pt, err := c.Point()
		if err != nil {
			continue
		}
		results = append(results, GeocodeResult{
			Label: c.Label(query),
			Lat:   pt.Lat(),
			Lon:   pt.Lon(),
			Link:  b.Build(pt),
		})
	}
	writeJSON(w, http.StatusOK, results)
}
