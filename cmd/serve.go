// Package cmd — serve command.
// Starts the HTTP gateway and shuts it down gracefully on SIGINT/SIGTERM.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dlux-io/dluxgate/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	Long: `Serve answers preview, service worker, manifest and dApp requests for
Hive posts.

Examples:
  dluxgate serve
  dluxgate serve --port 8080 --hapi https://api.hive.blog`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Listen port (default 3000)")
	cobra.CheckErr(v.BindPFlag("port", serveCmd.Flags().Lookup("port")))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, svc, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv := server.New(svc, server.Options{
		Origin:           cfg.Origin,
		EnforceSubdomain: cfg.EnforceSubdomain,
		TrustProxy:       cfg.TrustProxy,
		Logger:           logger.Named("http"),
	})
	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2*cfg.Timeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", httpServer.Addr),
			zap.String("hapi", cfg.HAPI),
			zap.String("ipfs_backend", cfg.IPFSBackend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
