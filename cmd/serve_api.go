package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/smartpay/internal/devapi"
)

var flagServeAddr string

var serveAPICmd = &cobra.Command{
	Use:   "serve-api",
	Short: "Run an in-memory development copy of the remote service",
	Long: "Serve the remote HTTP contract (auth, profile, cards, analysis) from memory, " +
		"so the CLI can be exercised without the real service. Data is lost on exit.",
	RunE: runServeAPI,
}

func init() {
	serveAPICmd.Flags().StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default from config)")
	rootCmd.AddCommand(serveAPICmd)
}

func runServeAPI(_ *cobra.Command, _ []string) error {
	addr := flagServeAddr
	if addr == "" {
		addr = cfg.DevAPI.Addr
	}
	if cfg.DevAPI.JWTSecret == "" {
		log.Warn("no JWT secret configured, tokens will not survive a restart")
	}

	api := devapi.New(devapi.Config{JWTSecret: cfg.DevAPI.JWTSecret, Logger: log})
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.WithField("addr", addr).Info("development API listening")
	fmt.Printf("  Development API on http://%s\n", addr)
	fmt.Printf("  Point the CLI at it with: smartpay --api-url http://%s ...\n", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("development API: %w", err)
	}
}
