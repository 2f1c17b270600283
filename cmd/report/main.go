// Package main runs a headless simulation and writes its reports:
// catalog CSV, trade CSV and a markdown weekly report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slot-parlor/internal/catalog"
	"slot-parlor/internal/config"
	"slot-parlor/internal/logger"
	"slot-parlor/internal/reporting"
	"slot-parlor/internal/session"
)

func main() {
	// Parse flags
	catalogPath := flag.String("catalog", "data/machines.csv", "Machine list CSV")
	gameConfig := flag.String("game-config", "", "Optional TOML game tuning")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	weeks := flag.Int("weeks", 52, "Number of weeks to simulate")
	seed := flag.Uint64("seed", 1, "Random seed")
	strict := flag.Bool("strict", false, "Skip catalog rows whose field count differs from the header")
	start := flag.String("start", "", "Simulated date of week 1 (YYYY-MM-DD, default today)")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})
	ctx := context.Background()

	// Validate flags
	if *weeks < 0 {
		fmt.Fprintln(os.Stderr, "Error: --weeks must be >= 0")
		os.Exit(1)
	}
	now := time.Now().UTC()
	if *start != "" {
		t, err := time.Parse("2006-01-02", *start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --start: %v\n", err)
			os.Exit(1)
		}
		now = t
	}

	game, err := config.LoadGameConfig(*gameConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading game config: %v\n", err)
		os.Exit(1)
	}
	tuning := game.Tuning()

	mode := catalog.Lenient
	if *strict {
		mode = catalog.Strict
	}
	rows, parsed, err := catalog.ReadFile(*catalogPath, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading catalog: %v\n", err)
		os.Exit(1)
	}

	sess, err := session.New(ctx, session.Options{
		Rows:    rows,
		Skipped: parsed.Skipped,
		Now:     now,
		Seed:    *seed,
		Tuning:  &tuning,
		Logger:  log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating session: %v\n", err)
		os.Exit(1)
	}

	// Simulate
	advanced := 0
	for i := 0; i < *weeks; i++ {
		if _, err := sess.AdvanceWeek(ctx); err != nil {
			if errors.Is(err, session.ErrSimulationOver) {
				break
			}
			fmt.Fprintf(os.Stderr, "Error advancing week: %v\n", err)
			os.Exit(1)
		}
		advanced++
	}

	// Fixed clock for deterministic output
	generatedAt := sess.Date(sess.Week())
	report, err := reporting.NewGenerator(sess).
		WithClock(func() time.Time { return generatedAt }).
		Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := writeOutputs(*outputDir, sess, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing reports: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Simulated %d weeks (seed %d), now at week %d:\n", advanced, *seed, sess.Week())
	fmt.Printf("  - %s/WEEKLY_REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/machines.csv\n", *outputDir)
	fmt.Printf("  - %s/trades.csv\n", *outputDir)
}

func writeOutputs(dir string, sess *session.Session, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	machinesCSV, err := reporting.RenderCatalogCSV(sess.Catalog().All())
	if err != nil {
		return err
	}
	tradesCSV, err := reporting.RenderTradesCSV(sess.Trades())
	if err != nil {
		return err
	}

	files := map[string]string{
		"WEEKLY_REPORT.md": reporting.RenderMarkdown(report),
		"machines.csv":     machinesCSV,
		"trades.csv":       tradesCSV,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
