// Command server starts the record classification API.
//
// Usage:
//
//	go run ./cmd/server [flags]
//
// Flags:
//
//	--config  Path to a YAML/JSON/TOML config file (optional)
//	--port    HTTP port to listen on (overrides config; PORT env wins over both)
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sterlixo/chilli-checker/internal/api"
	"github.com/sterlixo/chilli-checker/internal/batch"
	"github.com/sterlixo/chilli-checker/internal/config"
	"github.com/sterlixo/chilli-checker/internal/generator"
	"github.com/sterlixo/chilli-checker/internal/logger"
	"github.com/sterlixo/chilli-checker/internal/rules"
	"github.com/sterlixo/chilli-checker/internal/scoring"
	"github.com/sterlixo/chilli-checker/internal/webhook"
)

var (
	cfgFile  string
	portFlag int
)

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Record classification and batch API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "HTTP port (default 8080)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	v := viper.New()
	if portFlag != 0 {
		v.Set("port", portFlag)
	}
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return err
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "record-checker",
	})

	// ── Wire dependencies ─────────────────────────────────────────────────────
	rs, err := rules.ByName(cfg.RuleSet)
	if err != nil {
		log.Error().Stack().Err(err).Msg("rule set")
		return err
	}
	engine := scoring.New(rs, scoring.WithConfig(cfg.Scoring))
	runner := batch.New(cfg.Batch, log)
	notifier := webhook.New(cfg.Webhooks, log)

	// No external verifier ships with the service, so Deps.Verifier stays nil
	// and only the local strategy is offered.
	handler := api.NewHandler(api.Deps{
		Engine:      engine,
		Runner:      runner,
		Generator:   generator.New(rand.NewSource(time.Now().UnixNano())),
		Notifier:    notifier,
		Limits:      api.Limits{MaxBatchLines: cfg.MaxBatchLines, MaxGenerate: cfg.MaxGenerate},
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})
	router := api.NewRouter(handler)

	// ── Start HTTP server ─────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Batches run inside the request, so writes are not time-bounded.
		IdleTimeout: 60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("rule_set", rs.Name).
			Int("live_threshold", cfg.Scoring.LiveThreshold).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			return err
		}
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down...")

	// A running batch aborts before its next record.
	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	notifier.Wait()
	log.Info().Msg("server stopped")
	return nil
}
