package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"osmandlink/internal/api"
	"osmandlink/pkg/action"
	"osmandlink/pkg/tracker"
	"osmandlink/pkg/version"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket bridge for browser pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("OsmandLink bridge starting", "version", version.Version)

	tr := tracker.New()
	geo, closeGeo := newGeocoder(ctx, appCfg, tr)
	defer closeGeo()
	slog.Info("Geocoder ready", "transport", geo.Transport())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	addr := appCfg.Server.Address
	if serveAddr != "" {
		addr = serveAddr
	}

	bridge := api.NewBridgeHandler(appCfg, &action.Lock{}, geo, tr)
	defer bridge.Close()

	srv := api.NewServer(addr,
		bridge,
		api.NewConfigHandler(appCfg),
		api.NewStatsHandler(tr, bridge),
		api.NewLinkHandler(appCfg, geo),
		shutdownFunc,
	)
	return runServerLifecycle(ctx, srv, quit, bridge, time.Duration(appCfg.Server.ShutdownGrace))
}

// runServerLifecycle serves until a signal, ctx or a server error, then
// closes bridge sessions and shuts the server down within grace.
func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal, bridge *api.BridgeHandler, grace time.Duration) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	if grace <= 0 {
		grace = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	// Shutdown stops new upgrades but does not track hijacked WebSocket
	// connections, so the bridge is closed after it.
	err := srv.Shutdown(shutdownCtx)
	bridge.Close()
	return err
}
