package geocode

import (
	"context"
	"log/slog"

	"osmandlink/pkg/probe"
)

// Transport modes accepted by SelectFetcher.
const (
	TransportAuto   = "auto"
	TransportQueued = "queued"
	TransportDirect = "direct"
)

// SelectFetcher picks the transport backend once at startup. "queued" and
// "direct" are taken as given; "auto" probes statusURL through the queued
// backend first and falls back to direct when that fails. If neither answers
// the queued backend is kept and calls will report ErrNetwork as usual.
func SelectFetcher(ctx context.Context, mode, statusURL string, queued, direct Fetcher) Fetcher {
	switch mode {
	case TransportQueued:
		return queued
	case TransportDirect:
		return direct
	}

	if statusURL == "" {
		return queued
	}

	for _, f := range []Fetcher{queued, direct} {
		results := probe.Run(ctx, []probe.Probe{{
			Name:  "Geocoder (" + f.Name() + ")",
			Check: statusCheck(f, statusURL),
		}})
		_ = probe.AnalyzeResults(results)
		if results[0].Passed() {
			slog.Info("Geocoder transport selected", "transport", f.Name())
			return f
		}
	}

	slog.Warn("No geocoder transport answered the status probe, keeping queued", "status_url", statusURL)
	return queued
}

func statusCheck(f Fetcher, statusURL string) probe.CheckFunc {
	return func(ctx context.Context) error {
		_, err := f.FetchJSON(ctx, statusURL, map[string]string{"Accept": "application/json"})
		return err
	}
}
