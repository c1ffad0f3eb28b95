// Package logging builds the slog loggers used by the API and worker
// binaries and attaches request and trace identifiers from a context.
//
//	logger := logging.NewLogger()
//	logging.WithRequestID(ctx, logger).Info("notification finished")
package logging
