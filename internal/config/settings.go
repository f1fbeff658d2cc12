// Package config loads the run configuration. A missing settings file is
// created from the embedded defaults so a fresh checkout runs out of the
// box.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shrike/internal/support"

	"github.com/charmbracelet/log"
)

//go:embed default_settings.json
var defaultSettings []byte

type Settings struct {
	Scraper struct {
		BaseURL           string `json:"base_url"`
		StartPath         string `json:"start_path"`
		MaxPages          int    `json:"max_pages"`
		MaxRetries        int    `json:"max_retries"`
		RetryDelaySeconds int    `json:"retry_delay_seconds"`
		BrowserFallback   bool   `json:"browser_fallback"`
		PagesDir          string `json:"pages_dir"`
		RecordsDir        string `json:"records_dir"`
		UserAgent         string `json:"user_agent"`
		AcceptLanguage    string `json:"accept_language"`
	} `json:"scraper"`

	Proxy struct {
		File                  string `json:"file"`
		Scheme                string `json:"scheme"`
		ProbeURL              string `json:"probe_url"`
		SwitchDelaySeconds    int    `json:"switch_delay_seconds"`
		MaxFailures           int    `json:"max_failures"`
		RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
		ConcurrentValidations int    `json:"concurrent_validations"`
	} `json:"proxy"`

	Logging struct {
		Level     string `json:"level"`
		Directory string `json:"directory"`
		Filename  string `json:"filename"`
	} `json:"logging"`

	Database struct {
		DSN string `json:"dsn"`
	} `json:"database"`

	Redis struct {
		URL string `json:"url"`
	} `json:"redis"`

	GeoIP struct {
		DatabasePath string `json:"database_path"`
	} `json:"geoip"`
}

// Load reads the settings file at path, creating it from the embedded
// defaults when it does not exist. Environment variables override the
// file for deployment-specific values.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Settings{}, fmt.Errorf("read settings file: %w", err)
		}

		log.Warn("settings file not found, creating with default configuration", "path", path)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Settings{}, fmt.Errorf("create settings directory: %w", err)
			}
		}
		if err := os.WriteFile(path, defaultSettings, 0o644); err != nil {
			return Settings{}, fmt.Errorf("write default settings file: %w", err)
		}
		data = defaultSettings
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings file: %w", err)
	}

	applyEnvOverrides(&s)

	if err := s.validate(); err != nil {
		return Settings{}, err
	}

	log.Debug("settings loaded", "path", path)
	return s, nil
}

func applyEnvOverrides(s *Settings) {
	s.Scraper.MaxRetries = support.GetEnvInt("MAX_RETRIES", s.Scraper.MaxRetries)
	s.Proxy.File = support.GetEnv("PROXY_FILE", s.Proxy.File)
	s.Proxy.RequestTimeoutSeconds = support.GetEnvInt("REQUEST_TIMEOUT_SECONDS", s.Proxy.RequestTimeoutSeconds)
	s.Proxy.ConcurrentValidations = support.GetEnvInt("CONCURRENT_VALIDATIONS", s.Proxy.ConcurrentValidations)
	s.Logging.Level = support.GetEnv("LOG_LEVEL", s.Logging.Level)
	s.Database.DSN = support.GetEnv("DATABASE_DSN", s.Database.DSN)
	s.Redis.URL = support.GetEnv("REDIS_URL", s.Redis.URL)
	s.GeoIP.DatabasePath = support.GetEnv("GEOIP_DB_PATH", s.GeoIP.DatabasePath)
}

func (s Settings) validate() error {
	var errs []error

	if s.Scraper.BaseURL == "" {
		errs = append(errs, errors.New("scraper.base_url cannot be empty"))
	} else if !strings.HasPrefix(s.Scraper.BaseURL, "http") {
		errs = append(errs, fmt.Errorf("scraper.base_url must start with http(s): %s", s.Scraper.BaseURL))
	}
	if s.Scraper.StartPath == "" {
		errs = append(errs, errors.New("scraper.start_path cannot be empty"))
	}
	if s.Scraper.MaxRetries <= 0 {
		errs = append(errs, errors.New("scraper.max_retries must be greater than 0"))
	}
	if s.Scraper.RetryDelaySeconds <= 0 {
		errs = append(errs, errors.New("scraper.retry_delay_seconds must be greater than 0"))
	}
	switch s.Proxy.Scheme {
	case "socks5", "http", "https":
	default:
		errs = append(errs, fmt.Errorf("proxy.scheme must be socks5, http or https, got %q", s.Proxy.Scheme))
	}
	if s.Proxy.SwitchDelaySeconds <= 0 {
		errs = append(errs, errors.New("proxy.switch_delay_seconds must be greater than 0"))
	}
	if s.Proxy.MaxFailures <= 0 {
		errs = append(errs, errors.New("proxy.max_failures must be greater than 0"))
	}
	if s.Proxy.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("proxy.request_timeout_seconds must be greater than 0"))
	}
	if s.Proxy.ConcurrentValidations <= 0 {
		errs = append(errs, errors.New("proxy.concurrent_validations must be greater than 0"))
	}
	if s.Proxy.ProbeURL == "" {
		errs = append(errs, errors.New("proxy.probe_url cannot be empty"))
	}

	return errors.Join(errs...)
}
