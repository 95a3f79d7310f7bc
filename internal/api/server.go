package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"osmandlink/pkg/logging"
	"osmandlink/pkg/version"
)

// NewServer creates and configures the HTTP server.
// shutdown is called (asynchronously) by POST /api/shutdown.
func NewServer(addr string, bridge *BridgeHandler, cfgH *ConfigHandler, stats *StatsHandler, linkH *LinkHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health & Version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Host page bridge
	mux.Handle("GET /ws", bridge)

	// 3. Read-only views
	mux.HandleFunc("GET /api/config", cfgH.ServeHTTP)
	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("POST /api/stats/reset", stats.HandleReset)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 4. Link & Geocode
	mux.HandleFunc("GET /api/link", linkH.HandleLink)
	mux.HandleFunc("GET /api/geocode", linkH.HandleGeocode)

	// 5. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:        addr,
		Handler:     loggingMiddleware(mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: geocode lookups have none either.
		IdleTimeout: 60 * time.Second,
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
