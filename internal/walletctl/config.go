package walletctl

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL      = "http://localhost:5000"
	defaultRequestTimeout  = 5 * time.Second
	defaultRefreshInterval = 10 * time.Second
	defaultSessionDir      = ".walletctl"
	defaultSessionFile     = "session.db"
)

// Config aggregates runtime settings for the wallet client.
type Config struct {
	APIBaseURL         string
	RequestTimeout     time.Duration
	RefreshInterval    time.Duration
	SessionDatabaseURL string
	Verbose            bool
}

// Validate fills defaults and ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.APIBaseURL = strings.TrimRight(defaultIfEmpty(cfg.APIBaseURL, defaultAPIBaseURL), "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	cfg.SessionDatabaseURL = defaultIfEmpty(cfg.SessionDatabaseURL, DefaultSessionDatabaseURL())
	parsed, err := url.Parse(cfg.APIBaseURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("api base url %q is invalid", cfg.APIBaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api base url must use http or https, got %q", parsed.Scheme)
	}
	if strings.TrimSpace(cfg.SessionDatabaseURL) == "" {
		return fmt.Errorf("session database url is required")
	}
	return nil
}

// DefaultSessionDatabaseURL points at a SQLite file under the user's home directory.
func DefaultSessionDatabaseURL() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "sqlite://" + filepath.Join(defaultSessionDir, defaultSessionFile)
	}
	return "sqlite://" + filepath.Join(home, defaultSessionDir, defaultSessionFile)
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
