// Package telemetry sets up OpenTelemetry tracing and metrics export for
// the vecfs daemon.
//
// Packages create their tracers with otel.Tracer and their meters with
// otel.Meter; New installs the global providers those calls resolve to, so
// spans from the store, the filesystem service and the HTTP layer reach
// the configured OTLP collector.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry), logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Export failures never stop the daemon. An instance that could not build
// a provider reports itself degraded and the global no-op provider stays
// in place.
package telemetry
