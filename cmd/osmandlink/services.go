package main

import (
	"context"
	"time"

	"osmandlink/pkg/config"
	"osmandlink/pkg/geocode"
	"osmandlink/pkg/request"
	"osmandlink/pkg/tracker"
)

// newGeocoder wires the geocode client onto the transport chosen by the
// startup probe. The returned func stops the request queues.
func newGeocoder(ctx context.Context, cfg *config.Config, tr *tracker.Tracker) (*geocode.Client, func()) {
	timeout := time.Duration(cfg.Geocoder.Timeout)

	rc := request.New(tr, request.Options{
		Timeout:   timeout,
		UserAgent: cfg.Geocoder.UserAgent,
	})
	queued := geocode.NewQueuedFetcher(rc)
	direct := geocode.NewDirectFetcher(tr, timeout)

	f := geocode.SelectFetcher(ctx, cfg.Geocoder.Transport, cfg.Geocoder.StatusURL, queued, direct)
	client := geocode.NewClient(f, geocode.Options{
		Endpoint: cfg.Geocoder.Endpoint,
		Locale:   cfg.Geocoder.Locale,
		Tracker:  tr,
	})
	return client, rc.Close
}
