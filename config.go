package linkforty

import (
	"math"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/LinkForty/linkforty-go/internal/sdkerr"
)

// DefaultAttributionWindowHours applies when the config leaves the
// window unset.
const DefaultAttributionWindowHours = 24

// Hostnames allowed with a plain http:// base URL (local development and
// the Android emulator host alias).
var plainHTTPHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"10.0.2.2":  true,
}

// Config holds SDK configuration supplied by the embedding application.
type Config struct {
	// BaseURL is the LinkForty API and short-link domain,
	// e.g. https://go.example.com.
	BaseURL string `env:"LINKFORTY_BASE_URL"`

	// APIKey authorizes link creation. Optional for attribution and
	// event reporting.
	APIKey string `env:"LINKFORTY_API_KEY"`

	// AttributionWindowHours bounds install matching. Zero means the
	// default; otherwise it must be finite and within [1, 2160].
	AttributionWindowHours float64 `env:"LINKFORTY_ATTRIBUTION_WINDOW_HOURS"`

	// DeviceID optionally pins a caller-supplied device identifier sent
	// with install fingerprints.
	DeviceID string `env:"LINKFORTY_DEVICE_ID"`

	// AppVersion is reported in fingerprints when the default device
	// info is used.
	AppVersion string `env:"LINKFORTY_APP_VERSION"`
}

// Validate checks the acceptance rules. Violations fail with
// INVALID_CONFIGURATION and are never retried.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return sdkerr.New(sdkerr.CodeInvalidConfiguration, "baseUrl is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" {
		return sdkerr.New(sdkerr.CodeInvalidConfiguration, "baseUrl is not a valid URL")
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !plainHTTPHosts[u.Hostname()] {
			return sdkerr.New(sdkerr.CodeInvalidConfiguration, "http baseUrl is only allowed for local development hosts")
		}
	default:
		return sdkerr.New(sdkerr.CodeInvalidConfiguration, "baseUrl must use http or https")
	}

	w := c.AttributionWindowHours
	if w != 0 && (math.IsNaN(w) || math.IsInf(w, 0) || w < 1 || w > 2160) {
		return sdkerr.New(sdkerr.CodeInvalidConfiguration, "attributionWindowHours must be within [1, 2160]")
	}
	return nil
}

// windowHours returns the effective attribution window.
func (c *Config) windowHours() float64 {
	if c.AttributionWindowHours == 0 {
		return DefaultAttributionWindowHours
	}
	return c.AttributionWindowHours
}

// ConfigFromEnv loads configuration from LINKFORTY_* environment
// variables, reading a .env file first when one is present, and
// validates it.
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, sdkerr.Wrap(sdkerr.CodeInvalidConfiguration, "failed to parse environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
