package linkforty

import (
	"math"
	"testing"

	"github.com/LinkForty/linkforty-go/internal/sdkerr"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"https base url", Config{BaseURL: "https://go.example.com"}, false},
		{"https with path", Config{BaseURL: "https://go.example.com/sdk"}, false},
		{"http localhost", Config{BaseURL: "http://localhost:8090"}, false},
		{"http loopback", Config{BaseURL: "http://127.0.0.1:8090"}, false},
		{"http any-interface", Config{BaseURL: "http://0.0.0.0"}, false},
		{"http android emulator host", Config{BaseURL: "http://10.0.2.2:8090"}, false},
		{"http public host", Config{BaseURL: "http://go.example.com"}, true},
		{"unsupported scheme", Config{BaseURL: "ftp://go.example.com"}, true},
		{"missing base url", Config{}, true},
		{"whitespace base url", Config{BaseURL: "   "}, true},
		{"not a url", Config{BaseURL: "://nope"}, true},
		{"window lower bound", Config{BaseURL: "https://go.example.com", AttributionWindowHours: 1}, false},
		{"window upper bound", Config{BaseURL: "https://go.example.com", AttributionWindowHours: 2160}, false},
		{"window unset uses default", Config{BaseURL: "https://go.example.com"}, false},
		{"window below range", Config{BaseURL: "https://go.example.com", AttributionWindowHours: 0.5}, true},
		{"window above range", Config{BaseURL: "https://go.example.com", AttributionWindowHours: 2161}, true},
		{"window NaN", Config{BaseURL: "https://go.example.com", AttributionWindowHours: math.NaN()}, true},
		{"window Inf", Config{BaseURL: "https://go.example.com", AttributionWindowHours: math.Inf(1)}, true},
		{"window negative Inf", Config{BaseURL: "https://go.example.com", AttributionWindowHours: math.Inf(-1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if !sdkerr.IsCode(err, sdkerr.CodeInvalidConfiguration) {
					t.Errorf("err = %v, want INVALID_CONFIGURATION", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestConfigWindowHoursDefault(t *testing.T) {
	cfg := Config{BaseURL: "https://go.example.com"}
	if got := cfg.windowHours(); got != DefaultAttributionWindowHours {
		t.Errorf("windowHours = %v, want %v", got, DefaultAttributionWindowHours)
	}

	cfg.AttributionWindowHours = 72
	if got := cfg.windowHours(); got != 72 {
		t.Errorf("windowHours = %v, want 72", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LINKFORTY_BASE_URL", "https://go.example.com")
	t.Setenv("LINKFORTY_API_KEY", "key-1")
	t.Setenv("LINKFORTY_ATTRIBUTION_WINDOW_HOURS", "72")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.BaseURL != "https://go.example.com" || cfg.APIKey != "key-1" || cfg.AttributionWindowHours != 72 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("LINKFORTY_BASE_URL", "http://go.example.com")

	if _, err := ConfigFromEnv(); !sdkerr.IsCode(err, sdkerr.CodeInvalidConfiguration) {
		t.Errorf("err = %v, want INVALID_CONFIGURATION", err)
	}
}
