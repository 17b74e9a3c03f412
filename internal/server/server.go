// Package server hosts the HTTP surfaces: health, metrics and the REST API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nholik/thermal-sentinel/internal/healthcheck"
	"github.com/nholik/thermal-sentinel/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Ports assigns listeners to the three surfaces. A zero port disables the
// surface; surfaces sharing a port share one server.
type Ports struct {
	Health  int
	Metrics int
	API     int
}

// Start launches the configured HTTP servers. Each runs until the context is
// canceled, then shuts down gracefully.
func Start(ctx context.Context, logger zerolog.Logger, sampleInterval time.Duration, tracker *healthcheck.Tracker, metricsCollector *metrics.Metrics, api http.Handler, ports Ports) {
	muxes := make(map[int]*http.ServeMux)
	labels := make(map[int][]string)

	muxFor := func(port int, label string) *http.ServeMux {
		mux, ok := muxes[port]
		if !ok {
			mux = http.NewServeMux()
			muxes[port] = mux
		}
		labels[port] = append(labels[port], label)
		return mux
	}

	if ports.Health > 0 {
		mux := muxFor(ports.Health, "health")
		mux.HandleFunc("/healthz", healthcheck.HealthHandler(tracker, sampleInterval))
		mux.HandleFunc("/readyz", healthcheck.ReadyHandler(tracker))
	}

	if ports.Metrics > 0 && metricsCollector != nil {
		mux := muxFor(ports.Metrics, "metrics")
		mux.Handle("/metrics", metricsCollector.Handler())
	}

	if ports.API > 0 && api != nil {
		mux := muxFor(ports.API, "api")
		mux.Handle("/api/", api)
	}

	sortedPorts := make([]int, 0, len(muxes))
	for port := range muxes {
		sortedPorts = append(sortedPorts, port)
	}
	sort.Ints(sortedPorts)

	for _, port := range sortedPorts {
		startServer(ctx, logger, muxes[port], port, strings.Join(labels[port], "/"))
	}
}

func startServer(ctx context.Context, logger zerolog.Logger, handler http.Handler, port int, label string) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("server", label).Int("port", port).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server shutdown failed")
		}
	}()
}
