// Package main runs the parlor simulation as an HTTP service:
// - loads the machine catalog and game tuning
// - serves the session API, digest stream and metrics
// - optionally advances weeks on a cron schedule
// - optionally exports trades to PostgreSQL and weekly history to ClickHouse
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"slot-parlor/internal/catalog"
	"slot-parlor/internal/config"
	"slot-parlor/internal/logger"
	"slot-parlor/internal/scheduler"
	"slot-parlor/internal/server"
	"slot-parlor/internal/session"
	"slot-parlor/internal/storage"
	chstore "slot-parlor/internal/storage/clickhouse"
	"slot-parlor/internal/storage/migrations"
	pgstore "slot-parlor/internal/storage/postgres"
)

func main() {
	catalogPath := flag.String("catalog", "", "Machine list CSV (overrides PARLOR_CATALOG_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("Shutdown complete")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Game tuning
	game, err := config.LoadGameConfig(cfg.GameConfigPath)
	if err != nil {
		return err
	}
	tuning := game.Tuning()

	// Catalog
	mode := catalog.Lenient
	if cfg.StrictCSV {
		mode = catalog.Strict
	}
	rows, report, err := catalog.ReadFile(cfg.CatalogPath, mode)
	if err != nil {
		return err
	}
	for _, line := range report.SkippedAt {
		log.Warn().Int("line", line).Msg("skipped catalog row with wrong field count")
	}

	// Export sinks
	sinks, err := openSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sinks.close()

	// Session
	sess, err := session.New(ctx, session.Options{
		Rows:    rows,
		Skipped: report.Skipped,
		Seed:    cfg.Seed,
		Tuning:  &tuning,
		Journal: sinks.journal,
		Archive: sinks.archive,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		Session:     sess,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     cfg.Metrics,
	})

	// Auto-advance
	sched := scheduler.New(log)
	if cfg.AutoAdvance != "" {
		if err := sched.AddJob(cfg.AutoAdvance, scheduler.NewWeekJob(srv, 0)); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	// Serve
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	go func() {
		select {
		case sig := <-sigCh:
			log.Warn().Str("signal", sig.String()).Msg("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	return srv.Shutdown(shutdownCtx)
}

// sinks holds the optional export stores.
type sinks struct {
	journal storage.TradeJournal
	archive storage.HistoryArchive
	closers []func()
}

func (s *sinks) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSinks connects the configured export databases and applies migrations.
// Unset DSNs leave the session on its in-memory journal and no archive.
func openSinks(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sinks, error) {
	s := &sinks{}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.journal = pgstore.NewTradeJournal(pool)
		log.Info().Msg("trade journal export to postgres enabled")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.closers = append(s.closers, func() { conn.Close() })
		s.archive = chstore.NewHistoryArchive(conn)
		log.Info().Msg("weekly history export to clickhouse enabled")
	}

	return s, nil
}
