// Package app wires the configured pipeline together and drives a scrape
// run end to end: proxy validation, the page download loop and the record
// extraction pass over the saved pages.
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"shrike/internal/config"
	"shrike/internal/logging"
	"shrike/internal/storage"
)

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	configPath := flag.String("config", "settings.json", "Path to the settings file")
	proxyFile := flag.String("proxies", "", "Proxy list file, overrides the settings file")
	maxPages := flag.Int("max-pages", 0, "Stop after this many pages, overrides the settings file")
	processOnly := flag.Bool("process-only", false, "Skip downloading and re-extract records from already saved pages")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if *proxyFile != "" {
		cfg.Proxy.File = *proxyFile
	}
	if *maxPages > 0 {
		cfg.Scraper.MaxPages = *maxPages
	}

	logFile, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Directory, cfg.Logging.Filename)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer logFile.Close()

	runID := uuid.NewString()
	log.Info("starting scrape run", "run", runID, "target", cfg.Scraper.BaseURL)

	var archive *storage.Archive
	if cfg.Database.DSN != "" {
		archive, err = storage.OpenArchive(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer archive.Close()
	}

	ctx := context.Background()

	if !*processOnly {
		pool, client, err := buildPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize proxy pool: %w", err)
		}

		// The report goes to the console and the log file either way, so a
		// run cut short by dead proxies still explains itself.
		reportTo := io.MultiWriter(os.Stdout, logFile)

		if err := download(ctx, cfg, runID, pool, client, archive, reportTo); err != nil {
			log.Error("download phase ended early", "error", err)
		}
	}

	if err := process(cfg, runID, archive); err != nil {
		return err
	}

	log.Info("scrape run finished", "run", runID)
	return nil
}
