package app

import (
	"fmt"

	"github.com/charmbracelet/log"

	"shrike/internal/config"
	"shrike/internal/scrape"
	"shrike/internal/storage"
)

// process runs the second phase: read the saved pages back in page order,
// extract the provider entries of each and write one JSON record per
// entry. Pages without extractable entries are logged and skipped.
func process(cfg config.Settings, runID string, archive *storage.Archive) error {
	pages := storage.NewPageStore(cfg.Scraper.PagesDir)
	records := storage.NewRecordWriter(cfg.Scraper.RecordsDir)

	saved, err := pages.List()
	if err != nil {
		return err
	}
	if len(saved) == 0 {
		log.Error("no saved pages to process", "dir", cfg.Scraper.PagesDir)
		return nil
	}

	log.Info("processing saved pages", "count", len(saved))

	for _, page := range saved {
		html, err := pages.Read(page.Name)
		if err != nil {
			return err
		}

		companies, err := scrape.ExtractCompanies(html)
		if err != nil {
			return fmt.Errorf("extract %s: %w", page.Name, err)
		}
		if len(companies) == 0 {
			log.Error("no companies found", "page", page.Name)
			continue
		}

		for i, company := range companies {
			if _, err := records.WriteCompany(page.Name, i, company); err != nil {
				return err
			}
		}
		log.Info("extracted provider records", "page", page.Name, "companies", len(companies))

		if archive != nil {
			if err := archive.SaveCompanies(runID, page.Number, companies); err != nil {
				log.Error("failed to archive companies", "page", page.Name, "error", err)
			}
		}
	}

	log.Info("processing finished")
	return nil
}
