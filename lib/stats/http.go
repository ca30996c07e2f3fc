package stats

import (
	"context"
	"errors"
	vm "github.com/VictoriaMetrics/metrics"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"net/http"
	"time"
)

// Router returns the http handler exposing the collector:
//
//	GET /metrics  prometheus text format
//	GET /stats    json snapshot (see Report)
func (c *Collector) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/metrics", c.handleMetrics()).Methods(http.MethodGet)
	r.HandleFunc("/stats", c.handleStats()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return r
}

func (c *Collector) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		c.WritePrometheus(w)
		vm.WriteProcessMetrics(w)
	}
}

func (c *Collector) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(c.Snapshot()); err != nil {
			Logger.Errorf("Failed to encode stats: %v", err)
		}
	}
}

// ServeMetrics serves the collector's router on endpoint until ctx is done
func (c *Collector) ServeMetrics(ctx context.Context, endpoint string) error {
	srv := &http.Server{
		Addr:              endpoint,
		Handler:           c.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
