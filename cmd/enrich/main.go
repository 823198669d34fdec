// Command enrich runs citation-metadata enrichment over the indexed
// chunks of a company's 10-K filing.
//
// Usage:
//
//	enrich [flags] [company]
//
// Company names: nvidia, amd, intel, broadcom (default nvidia).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/secrag/filingcite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	count := flag.Int("count", 1, "Number of chunks to process")
	all := flag.Bool("all", false, "Process all unenriched chunks for the company")
	dryRun := flag.Bool("dry-run", false, "Show what would be updated without making changes")
	force := flag.Bool("force", false, "Include already-enriched chunks")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	// Local .env files hold store credentials and paths in dev setups.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	company := "nvidia"
	if flag.NArg() > 0 {
		company = flag.Arg(0)
	}

	enricher, err := filingcite.Open(cfg)
	if err != nil {
		slog.Error("opening enricher", "error", err)
		os.Exit(1)
	}
	defer enricher.Close()

	// Stop between chunks on Ctrl-C.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []filingcite.RunOption{filingcite.WithCount(*count)}
	if *all {
		opts = append(opts, filingcite.WithAll())
	}
	if *dryRun {
		opts = append(opts, filingcite.WithDryRun())
	}
	if *force {
		opts = append(opts, filingcite.WithForce())
	}

	summary, err := enricher.EnrichCompany(ctx, company, opts...)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("enrichment run failed", "company", company, "error", err)
		os.Exit(1)
	}

	printSummary(summary)
	if *dryRun {
		fmt.Println("dry run: no updates were written")
	}
}

func loadConfig(path string) (filingcite.Config, error) {
	cfg := filingcite.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = filingcite.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
	}

	// Environment variables override file values.
	if v := os.Getenv("FILINGCITE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FILINGCITE_DOCUMENTS_DIR"); v != "" {
		cfg.DocumentsDir = v
	}
	if v := os.Getenv("FILINGCITE_SECTIONS_DIR"); v != "" {
		cfg.SectionsDir = v
	}
	return cfg, nil
}

func printSummary(s *filingcite.RunSummary) {
	// A run canceled before any work produces no summary.
	if s == nil {
		return
	}
	for _, r := range s.Reports {
		switch {
		case r.OK && r.Exact:
			fmt.Printf("  %s: exact match, page %d", r.ChunkID, r.PageNumber)
		case r.OK:
			fmt.Printf("  %s: partial match (%d words), page %d", r.ChunkID, r.MatchedWords, r.PageNumber)
		default:
			fmt.Printf("  %s: FAILED (%s)", r.ChunkID, r.Reason)
		}
		if r.Section != "" {
			fmt.Printf(", section %s", r.Section)
		}
		fmt.Println()
	}

	fmt.Printf("\nSource: %s\n", s.SourceFile)
	fmt.Printf("Chunks total / candidates: %d / %d\n", s.Total, s.Candidates)
	fmt.Printf("Processed: %d  Succeeded: %d  Failed: %d\n", s.Processed, s.Succeeded, s.Failed)
	fmt.Printf("Success rate: %.1f%%\n", s.SuccessRate())
}
