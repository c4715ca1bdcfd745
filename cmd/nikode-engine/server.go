package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

type draftFlusher interface {
	Flush(ctx context.Context)
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// shutdown stops accepting connections and waits up to grace for handlers in
// flight. Connections still open after that, such as event streams, are
// closed. Pending drafts are flushed last so edits accepted during the grace
// period are written too.
func shutdown(srv *http.Server, drafts draftFlusher, grace time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown timed out, closing connections", "error", err)
		if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("server close failed", "error", err)
		}
	}

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), grace)
	defer cancelFlush()
	drafts.Flush(flushCtx)
}
