package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Options configures the HTTP server.
type Options struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Run serves handler on opts.Addr until ctx is cancelled, then shuts the
// server down and runs cleanup in order. All errors are combined.
func Run(ctx context.Context, opts Options, handler http.Handler, cleanup ...func() error) error {
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return multierr.Append(fmt.Errorf("failed to listen on %s: %w", opts.Addr, err), runCleanup(cleanup))
	}
	return multierr.Append(serve(ctx, ln, opts, handler), runCleanup(cleanup))
}

func serve(ctx context.Context, ln net.Listener, opts Options, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       opts.RequestTimeout,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		slog.Info("Shutting down server", "timeout", opts.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func runCleanup(fns []func() error) error {
	var err error
	for _, fn := range fns {
		err = multierr.Append(err, fn())
	}
	return err
}
