package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/codecritic/internal/dispatch"
	"github.com/ppiankov/codecritic/internal/metrics"
	"github.com/ppiankov/codecritic/internal/model"
	"github.com/ppiankov/codecritic/internal/pipeline"
)

// runtime holds what one command invocation shares across analyses
type runtime struct {
	engine   *pipeline.Engine
	recorder *metrics.Recorder
	server   *http.Server
}

// startRuntime wires the engine once per process. Every analysis started from
// it shares one dispatch gate.
func startRuntime(ctx context.Context, cfg *model.Config) (*runtime, error) {
	rt := &runtime{}

	if metricsAddr != "" {
		rt.recorder = metrics.New(prometheus.NewRegistry())
		srv, err := serveMetrics(ctx, metricsAddr, rt.recorder)
		if err != nil {
			return nil, err
		}
		rt.server = srv
	}

	gate := dispatch.NewGate(cfg.Retry.MinSpacing)
	engine, err := pipeline.Build(ctx, cfg, gate, rt.recorder)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.engine = engine
	return rt, nil
}

// Close stops the metrics server and closes the store
func (rt *runtime) Close(ctx context.Context) {
	log := clog.FromContext(ctx)
	if rt.engine != nil {
		if err := rt.engine.Close(); err != nil {
			log.With("error", err.Error()).Warn("Failed to close store")
		}
	}
	if rt.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := rt.server.Shutdown(shutdownCtx); err != nil {
			log.With("error", err.Error()).Warn("Failed to stop metrics server")
		}
	}
}

func serveMetrics(ctx context.Context, addr string, recorder *metrics.Recorder) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := clog.FromContext(ctx).With("addr", ln.Addr().String())
	log.Info("Serving metrics")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.With("error", err.Error()).Error("Metrics server failed")
		}
	}()
	return srv, nil
}
