// Command status reports per-source enrichment progress for the chunk
// index, optionally exporting the table as an XLSX workbook.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/secrag/filingcite"
	"github.com/secrag/filingcite/report"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	xlsxPath := flag.String("xlsx", "", "Write the status table to this XLSX file")
	flag.Parse()

	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	cfg := filingcite.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = filingcite.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
	}
	if v := os.Getenv("FILINGCITE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	enricher, err := filingcite.Open(cfg)
	if err != nil {
		slog.Error("opening chunk index", "error", err)
		os.Exit(1)
	}
	defer enricher.Close()

	stats, err := enricher.Store().EnrichmentStats(context.Background())
	if err != nil {
		slog.Error("reading enrichment stats", "error", err)
		os.Exit(1)
	}

	if len(stats) == 0 {
		fmt.Println("no chunks indexed")
		return
	}

	fmt.Print(report.Text(stats))

	if *xlsxPath != "" {
		if err := report.WriteWorkbook(*xlsxPath, stats); err != nil {
			slog.Error("writing workbook", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
		fmt.Printf("\nworkbook written to %s\n", *xlsxPath)
	}
}
