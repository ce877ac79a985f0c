package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/2hard2touch/smart-data-sanitizer/internal/config"
	"github.com/2hard2touch/smart-data-sanitizer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sanitizer over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", config.DefaultListenAddr, "listen address")
	serveCmd.Flags().Int("rate-limit", config.DefaultRateLimitRPM, "requests per minute per caller (0 disables)")
	_ = viper.BindPFlag(config.KeyListenAddr, serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag(config.KeyRateLimitRPM, serveCmd.Flags().Lookup("rate-limit"))
	rootCmd.AddCommand(serveCmd)
}

// serverOptions maps configuration onto server options.
func serverOptions(cfg *config.Config) []server.Option {
	opts := []server.Option{
		server.WithMaxBodyBytes(cfg.MaxDocumentBytes()),
		server.WithSeeded(cfg.Seed != nil),
	}
	if cfg.RateLimitRPM > 0 {
		opts = append(opts, server.WithRateLimiter(server.NewRateLimiter(cfg.RateLimitRPM)))
	}
	return opts
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	san, err := buildSanitizer(cfg)
	if err != nil {
		return err
	}

	opts := serverOptions(cfg)
	store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, server.WithLedger(store))
	}

	if len(cfg.APIKeys) == 0 {
		log.Warn().Msg("SANITIZER_API_KEYS not set, the API accepts unauthenticated requests")
	}
	srv := server.NewServer(san, cfg.APIKeys, opts...)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().
		Str("addr", cfg.ListenAddr).
		Strs("detectors", san.Detectors()).
		Bool("ledger", store != nil).
		Int("rate_limit_rpm", cfg.RateLimitRPM).
		Msg("sanitizer_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}
