// Package logger builds the service's *slog.Logger.
//
// Records are written as JSON (or text) to an io.Writer, enriched with
// attributes pulled from the request context by ContextExtractor funcs, and
// optionally mirrored to Sentry when a DSN is configured.
//
//	log, flush := logger.New(cfg, os.Stdout, httpserver.RequestIDExtractor())
//	defer flush(context.Background())
//
//	log.InfoContext(ctx, "email sent", slog.String("template", "user-login"))
//	// {"level":"INFO","msg":"email sent","template":"user-login","request_id":"01J..."}
//
// Errors become Sentry issues; warnings are attached as breadcrumb logs.
package logger
