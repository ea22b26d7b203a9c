package bootstrap

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"securequiz/internal/logging"
	"securequiz/internal/observability"
)

// Telemetry bundles the metrics collector and tracer provider.
type Telemetry struct {
	Metrics *observability.MetricsCollector
	Tracer  *observability.TracerProvider
}

// InitObservability best-effort initializes metrics and tracing and returns a
// cleanup hook. Failures degrade to disabled telemetry.
func InitObservability(ctx context.Context, cfg observability.Config, logger logging.Logger) (Telemetry, func()) {
	logger = logging.OrNop(logger)
	telemetry := Telemetry{Tracer: observability.NewNoopTracerProvider()}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := observability.NewMetricsCollector(cfg.Metrics, registry)
		if err != nil {
			logger.Warn("Metrics disabled: %v", err)
		} else {
			telemetry.Metrics = metrics
		}
	}

	if cfg.Tracing.Enabled {
		tracer, err := observability.NewTracerProvider(ctx, cfg.Tracing)
		if err != nil {
			logger.Warn("Tracing disabled: %v", err)
		} else {
			telemetry.Tracer = tracer
			logger.Info("Tracing enabled (exporter=%s)", cfg.Tracing.Exporter)
		}
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Tracer.Shutdown(ctx); err != nil {
			logger.Warn("Observability shutdown error: %v", err)
		}
	}
	return telemetry, cleanup
}
