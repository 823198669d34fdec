// Command server exposes enrichment runs and chunk-index inspection
// over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/secrag/filingcite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	_ = godotenv.Load()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := filingcite.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = filingcite.LoadConfig(*configPath)
		if err != nil {
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
	}

	// Override from environment variables.
	if v := os.Getenv("FILINGCITE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FILINGCITE_DOCUMENTS_DIR"); v != "" {
		cfg.DocumentsDir = v
	}
	if v := os.Getenv("FILINGCITE_SECTIONS_DIR"); v != "" {
		cfg.SectionsDir = v
	}
	apiKey := os.Getenv("FILINGCITE_API_KEY")

	enricher, err := filingcite.Open(cfg)
	if err != nil {
		slog.Error("opening enricher", "error", err)
		os.Exit(1)
	}
	defer enricher.Close()

	h := newHandler(enricher)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      h.routes(apiKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // enrichment runs can be long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
