// Package logging provides structured logging with OpenTelemetry integration.
//
// It wraps zap with a Trace level below Debug, output to stdout and/or the
// OpenTelemetry log bridge, and automatic correlation fields taken from the
// context: trace and span IDs, the tenant, and the HTTP request ID.
// Sensitive field names and value patterns are redacted by the encoder,
// and entries below Error are sampled.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//	logger.Info(ctx, "item saved", zap.String("path", p.String()))
//
// Store and service packages take the *zap.Logger returned by Underlying.
package logging
