package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/raydium-indexer/clmm-indexer/pkg/metrics"
)

// startMetricsServer serves the Prometheus scrape endpoint until ctx is
// cancelled.
func startMetricsServer(ctx context.Context, host string, port int, mc *metrics.Collector) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mc.Handler())

	srv := &http.Server{Addr: fmt.Sprintf("%s:%d", host, port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
