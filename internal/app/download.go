package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"shrike/internal/config"
	"shrike/internal/fetch"
	"shrike/internal/geo"
	"shrike/internal/heartbeat"
	"shrike/internal/proxy"
	"shrike/internal/scrape"
	"shrike/internal/storage"
	"shrike/internal/support"
)

// buildPool reads the candidate list and validates it into a ready pool.
// Nothing downstream can run without one, so any failure here is fatal to
// the whole run.
func buildPool(ctx context.Context, cfg config.Settings) (*proxy.Pool, *fetch.Client, error) {
	candidates, err := support.ReadLines(cfg.Proxy.File)
	if err != nil {
		return nil, nil, fmt.Errorf("read proxy list: %w", err)
	}

	timeout := time.Duration(cfg.Proxy.RequestTimeoutSeconds) * time.Second
	client := fetch.NewClient(timeout, cfg.Scraper.UserAgent, cfg.Scraper.AcceptLanguage)

	pool, err := proxy.NewPool(ctx, candidates, fetch.NewProber(client, cfg.Proxy.ProbeURL), proxy.Config{
		Scheme:              cfg.Proxy.Scheme,
		MaxFailures:         cfg.Proxy.MaxFailures,
		ProbeTimeout:        timeout,
		MaxConcurrentProbes: cfg.Proxy.ConcurrentValidations,
	})
	if err != nil {
		return nil, nil, err
	}
	return pool, client, nil
}

// download runs the first phase: walk the listing pagination through the
// pool, saving every page to disk. The pool report prints when the phase
// ends, however it ends.
func download(ctx context.Context, cfg config.Settings, runID string, pool *proxy.Pool, client *fetch.Client, archive *storage.Archive, reportTo io.Writer) error {
	defer epilogue(cfg, runID, pool, archive, reportTo)

	var engine fetch.Engine = client
	if cfg.Scraper.BrowserFallback {
		browser := fetch.NewBrowser()
		defer browser.Close()
		engine = browser
	}

	if cfg.Redis.URL != "" {
		// The run must not die with the ops dashboard, so a broken Redis
		// only costs the heartbeat.
		rdb, err := heartbeat.Connect(cfg.Redis.URL)
		if err != nil {
			log.Error("run heartbeat disabled", "error", err)
		} else {
			defer rdb.Close()
			beacon := heartbeat.Start(ctx, rdb, runID)
			defer beacon.Stop()
			return crawl(ctx, cfg, pool, engine, beacon)
		}
	}

	return crawl(ctx, cfg, pool, engine, nil)
}

// crawl drives the page loop. Every attempt acquires a fresh proxy, is
// paced by the switch-delay limiter and reports its outcome back to the
// pool; the retry policy lives here, never in the pool.
func crawl(ctx context.Context, cfg config.Settings, pool *proxy.Pool, engine fetch.Engine, beacon *heartbeat.Beacon) error {
	pages := storage.NewPageStore(cfg.Scraper.PagesDir)
	limiter := rate.NewLimiter(rate.Every(time.Duration(cfg.Proxy.SwitchDelaySeconds)*time.Second), 1)
	timeout := time.Duration(cfg.Proxy.RequestTimeoutSeconds) * time.Second
	retryDelay := time.Duration(cfg.Scraper.RetryDelaySeconds) * time.Second

	// Pagination appends its own query, so the list path must carry none.
	listPath, _, _ := strings.Cut(cfg.Scraper.StartPath, "?")

	currentPath := cfg.Scraper.StartPath
	pageNumber := 1
	attempts := 0

	for {
		if beacon != nil {
			beacon.Update("download", pageNumber, pool.WorkingCount(), pool.DeadCount())
		}

		proxyURL, err := pool.Acquire()
		if err != nil {
			return fmt.Errorf("acquire proxy for page %d: %w", pageNumber, err)
		}

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		pageURL := cfg.Scraper.BaseURL + currentPath
		log.Info("fetching page", "page", pageNumber, "url", pageURL, "proxy", proxyURL)

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		status, body, err := engine.Get(reqCtx, pageURL, proxyURL)
		cancel()

		ok := false
		switch {
		case err != nil:
			log.Error("page fetch failed", "page", pageNumber, "proxy", proxyURL, "error", err)
			pool.ReportFailure(proxyURL, pageURL, err.Error(), 0)
		case status == http.StatusForbidden:
			log.Error("proxy blocked by target", "page", pageNumber, "proxy", proxyURL)
			pool.ReportFailure(proxyURL, pageURL, "403 Forbidden", status)
		case status != http.StatusOK:
			log.Error("page fetch returned error status", "page", pageNumber, "status", status, "proxy", proxyURL)
			pool.ReportFailure(proxyURL, pageURL, fmt.Sprintf("unexpected status %d", status), status)
		default:
			pool.ReportSuccess(proxyURL, pageURL, status)
			ok = true
		}

		if !ok {
			attempts++
			if attempts >= cfg.Scraper.MaxRetries {
				return fmt.Errorf("page %d failed after %d attempts", pageNumber, attempts)
			}
			log.Info("retrying page through another proxy", "page", pageNumber, "delay", retryDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}
		attempts = 0

		if _, err := pages.Save(pageNumber, body); err != nil {
			return err
		}

		info, err := scrape.AnalyzePagination(body)
		if err != nil {
			return fmt.Errorf("analyze page %d: %w", pageNumber, err)
		}
		log.Info("page downloaded", "page", info.Current, "of", info.Total, "bytes", len(body))

		if cfg.Scraper.MaxPages > 0 && pageNumber >= cfg.Scraper.MaxPages {
			log.Info("page budget reached", "pages", pageNumber)
			return nil
		}

		next := info.NextPath(listPath)
		if next == "" {
			log.Info("reached last page", "page", info.Current)
			return nil
		}
		currentPath = next
		pageNumber = info.Current + 1
	}
}

// epilogue prints the pool report and, when configured, annotates every
// proxy with its country and archives the per-proxy outcomes of the run.
func epilogue(cfg config.Settings, runID string, pool *proxy.Pool, archive *storage.Archive, reportTo io.Writer) {
	pool.WriteReport(reportTo)

	snap := pool.Snapshot()

	var resolver *geo.Resolver
	if cfg.GeoIP.DatabasePath != "" {
		r, err := geo.Open(cfg.GeoIP.DatabasePath)
		if err != nil {
			log.Error("geoip annotation disabled", "error", err)
		} else {
			resolver = r
			defer resolver.Close()
		}
	}

	country := func(endpoint string) string {
		if resolver == nil {
			return ""
		}
		return resolver.Country(endpoint)
	}

	if resolver != nil {
		for _, w := range snap.Working {
			log.Info("proxy country", "proxy", w.URL, "country", country(w.URL), "state", "working")
		}
		for _, d := range snap.Dead {
			log.Info("proxy country", "proxy", d.URL, "country", country(d.URL), "state", "dead")
		}
	}

	if archive == nil {
		return
	}

	outcomes := make([]storage.ProxyOutcome, 0, len(snap.Working)+len(snap.Dead))
	for _, w := range snap.Working {
		outcomes = append(outcomes, storage.ProxyOutcome{
			RunID:              runID,
			ProxyURL:           w.URL,
			Alive:              true,
			Failures:           w.Failures,
			TotalRequests:      w.TotalRequests,
			SuccessfulRequests: w.SuccessfulRequests,
			FailedRequests:     w.FailedRequests,
			Country:            country(w.URL),
		})
	}
	for _, d := range snap.Dead {
		outcomes = append(outcomes, storage.ProxyOutcome{
			RunID:              runID,
			ProxyURL:           d.URL,
			TotalRequests:      d.TotalRequests,
			SuccessfulRequests: d.SuccessfulRequests,
			FailedRequests:     d.FailedRequests,
			Country:            country(d.URL),
		})
	}

	if err := archive.SaveProxyOutcomes(outcomes); err != nil {
		log.Error("failed to archive proxy outcomes", "error", err)
		return
	}
	log.Info("archived proxy outcomes", "run", runID, "count", len(outcomes))
}
