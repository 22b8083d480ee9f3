// Package observe provides telemetry for guarded operations: a structured
// JSON logger, OpenTelemetry tracing and metrics, and pluggable exporters.
//
// An Observer bundles the three concerns behind one configuration:
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "api",
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	})
//
// Telemetry is scoped to operations via OpMeta (principal, operation name,
// operation class), so a denial or breaker transition is attributable to
// the request that triggered it. Log fields carrying credentials are
// redacted before serialization.
package observe
