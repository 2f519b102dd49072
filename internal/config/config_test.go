package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

func TestLoad_DefaultValues(t *testing.T) {
	// Arrange - Clear all environment variables
	clearEnvVars(t)

	// Act
	cfg, err := Load()

	// Assert
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.ServerPort != DefaultServerPort {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, DefaultServerPort)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %s, want %s", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", cfg.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if cfg.MetricsEnabled != DefaultMetricsEnabled {
		t.Errorf("MetricsEnabled = %v, want %v", cfg.MetricsEnabled, DefaultMetricsEnabled)
	}
	wantDims := warehouse.Dimensions{Rows: 2, Shelves: 2, Zones: 3}
	if cfg.Dimensions != wantDims {
		t.Errorf("Dimensions = %+v, want %+v", cfg.Dimensions, wantDims)
	}
	if cfg.Strategy != warehouse.StrategyNearest {
		t.Errorf("Strategy = %s, want %s", cfg.Strategy, warehouse.StrategyNearest)
	}
	if cfg.FragileRowLimit != DefaultFragileRowLimit {
		t.Errorf("FragileRowLimit = %d, want %d", cfg.FragileRowLimit, DefaultFragileRowLimit)
	}
	if !cfg.ExpirationFilter {
		t.Error("ExpirationFilter should be enabled by default")
	}
	if cfg.NearExpiryDays != DefaultNearExpiryDays {
		t.Errorf("NearExpiryDays = %d, want %d", cfg.NearExpiryDays, DefaultNearExpiryDays)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(*testing.T, *Config)
	}{
		{
			name:    "custom server port",
			envVars: map[string]string{EnvServerPort: "9090"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ServerPort != 9090 {
					t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
				}
			},
		},
		{
			name:    "custom shutdown timeout",
			envVars: map[string]string{EnvShutdownTimeout: "5s"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ShutdownTimeout != 5*time.Second {
					t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
				}
			},
		},
		{
			name: "warehouse layout",
			envVars: map[string]string{
				EnvRows:     "4",
				EnvShelves:  "3",
				EnvZones:    "10",
				EnvStrategy: "round_robin",
			},
			validate: func(t *testing.T, cfg *Config) {
				want := warehouse.Dimensions{Rows: 4, Shelves: 3, Zones: 10}
				if cfg.Dimensions != want {
					t.Errorf("Dimensions = %+v, want %+v", cfg.Dimensions, want)
				}
				if cfg.Strategy != "round_robin" {
					t.Errorf("Strategy = %s, want round_robin", cfg.Strategy)
				}
			},
		},
		{
			name: "filters disabled",
			envVars: map[string]string{
				EnvFragileRowLimit:  "-1",
				EnvExpirationFilter: "false",
				EnvNearExpiryDays:   "7",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.FragileRowLimit != -1 {
					t.Errorf("FragileRowLimit = %d, want -1", cfg.FragileRowLimit)
				}
				if cfg.ExpirationFilter {
					t.Error("ExpirationFilter should be disabled")
				}
				if cfg.NearExpiryDays != 7 {
					t.Errorf("NearExpiryDays = %d, want 7", cfg.NearExpiryDays)
				}
			},
		},
		{
			name: "api key auth",
			envVars: map[string]string{
				EnvAuthMode: "apikey",
				EnvAPIKeys:  "secret:ops",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.AuthMode != "apikey" || cfg.APIKeys != "secret:ops" {
					t.Errorf("auth = %s/%s, want apikey/secret:ops", cfg.AuthMode, cfg.APIKeys)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			clearEnvVars(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			// Act
			cfg, err := Load()

			// Assert
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr error
	}{
		{name: "port not a number", envVars: map[string]string{EnvServerPort: "abc"}},
		{name: "bad duration", envVars: map[string]string{EnvShutdownTimeout: "soon"}},
		{name: "bad bool", envVars: map[string]string{EnvMetricsEnabled: "maybe"}},
		{name: "rows not a number", envVars: map[string]string{EnvRows: "two"}},
		{name: "port out of range", envVars: map[string]string{EnvServerPort: "70000"}, wantErr: ErrInvalidServerPort},
		{name: "log level", envVars: map[string]string{EnvLogLevel: "trace"}, wantErr: ErrInvalidLogLevel},
		{name: "zero zones", envVars: map[string]string{EnvZones: "0"}, wantErr: ErrInvalidDimensions},
		{name: "grid too large", envVars: map[string]string{EnvZones: "1000000000"}, wantErr: ErrInvalidDimensions},
		{
			name:    "grid size overflows",
			envVars: map[string]string{EnvRows: "2097152", EnvShelves: "2097152", EnvZones: "4194304"},
			wantErr: ErrInvalidDimensions,
		},
		{name: "unknown strategy", envVars: map[string]string{EnvStrategy: "random"}, wantErr: ErrInvalidStrategy},
		{name: "row limit", envVars: map[string]string{EnvFragileRowLimit: "-2"}, wantErr: ErrInvalidFragileRowLimit},
		{name: "expiry days", envVars: map[string]string{EnvNearExpiryDays: "-1"}, wantErr: ErrInvalidNearExpiryDays},
		{name: "auth mode", envVars: map[string]string{EnvAuthMode: "oidc"}, wantErr: ErrInvalidAuthMode},
		{name: "basic without users", envVars: map[string]string{EnvAuthMode: "basic"}, wantErr: ErrInvalidBasicAuthConfig},
		{name: "apikey without keys", envVars: map[string]string{EnvAuthMode: "apikey"}, wantErr: ErrInvalidAPIKeyConfig},
		{name: "multi without config", envVars: map[string]string{EnvAuthMode: "multi"}, wantErr: ErrInvalidMultiAuthConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			clearEnvVars(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			// Act
			cfg, err := Load()

			// Assert
			if err == nil {
				t.Fatalf("Load() expected error, got config %+v", cfg)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_LayoutFile(t *testing.T) {
	// Arrange
	clearEnvVars(t)
	path := writeFile(t, "layout.yaml", `
rows: 3
shelves: 4
zones: 5
strategy: round_robin
filters:
  fragile_row_limit: 1
  expiration: false
near_expiry_days: 10
`)
	t.Setenv(EnvLayoutFile, path)
	t.Setenv(EnvZones, "6")

	// Act
	cfg, err := Load()

	// Assert
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	want := warehouse.Dimensions{Rows: 3, Shelves: 4, Zones: 6}
	if cfg.Dimensions != want {
		t.Errorf("Dimensions = %+v, want %+v (env overrides file)", cfg.Dimensions, want)
	}
	if cfg.Strategy != "round_robin" {
		t.Errorf("Strategy = %s, want round_robin", cfg.Strategy)
	}
	if cfg.FragileRowLimit != 1 {
		t.Errorf("FragileRowLimit = %d, want 1", cfg.FragileRowLimit)
	}
	if cfg.ExpirationFilter {
		t.Error("ExpirationFilter should be disabled by layout")
	}
	if cfg.NearExpiryDays != 10 {
		t.Errorf("NearExpiryDays = %d, want 10", cfg.NearExpiryDays)
	}
	if cfg.LayoutFile != path {
		t.Errorf("LayoutFile = %s, want %s", cfg.LayoutFile, path)
	}
}

func TestLoad_LayoutFileGridTooLarge(t *testing.T) {
	// Arrange
	clearEnvVars(t)
	path := writeFile(t, "layout.yaml", `
rows: 1024
shelves: 1024
zones: 2
`)
	t.Setenv(EnvLayoutFile, path)

	// Act
	_, err := Load()

	// Assert
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Load() error = %v, want %v", err, ErrInvalidDimensions)
	}
}

func TestLoadLayout_Errors(t *testing.T) {
	if _, err := LoadLayout(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadLayout() expected error for missing file")
	}

	path := writeFile(t, "bad.yaml", "rows: 2\naisles: 4\n")
	if _, err := LoadLayout(path); err == nil {
		t.Error("LoadLayout() expected error for unknown key")
	}

	empty := writeFile(t, "empty.yaml", "")
	layout, err := LoadLayout(empty)
	if err != nil {
		t.Fatalf("LoadLayout() unexpected error for empty file: %v", err)
	}
	if layout.Rows != 0 || layout.Strategy != "" {
		t.Errorf("empty layout = %+v, want zero value", layout)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	// Arrange
	clearEnvVars(t)
	path := writeFile(t, "test.env", "APP_WAREHOUSE_ROWS=5\nAPP_LOG_LEVEL=debug\n")
	t.Setenv(EnvEnvFile, path)
	t.Setenv(EnvLogLevel, "warn")
	unsetAfter(t, EnvRows)

	// Act
	cfg, err := Load()

	// Assert
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Dimensions.Rows != 5 {
		t.Errorf("Rows = %d, want 5 from env file", cfg.Dimensions.Rows)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn (environment wins over env file)", cfg.LogLevel)
	}
}

func TestLoad_MissingExplicitDotEnvFile(t *testing.T) {
	clearEnvVars(t)
	t.Setenv(EnvEnvFile, filepath.Join(t.TempDir(), "nope.env"))

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for missing explicit env file")
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := &Config{ServerPort: 8181}

	if got := cfg.Address(); got != ":8181" {
		t.Errorf("Address() = %s, want :8181", got)
	}
}

func TestConfig_NewWarehouse(t *testing.T) {
	tests := []struct {
		name        string
		rowLimit    int
		expiration  bool
		wantFilters []string
	}{
		{name: "both filters", rowLimit: 2, expiration: true, wantFilters: []string{"max_row(2)", "expiration"}},
		{name: "row limit only", rowLimit: 0, wantFilters: []string{"max_row(0)"}},
		{name: "no filters", rowLimit: -1, wantFilters: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Dimensions:       warehouse.Dimensions{Rows: 1, Shelves: 1, Zones: 2},
				Strategy:         "round_robin",
				FragileRowLimit:  tt.rowLimit,
				ExpirationFilter: tt.expiration,
			}

			wh, err := cfg.NewWarehouse(time.Now)
			if err != nil {
				t.Fatalf("NewWarehouse() unexpected error: %v", err)
			}

			if wh.Strategy().Name() != warehouse.StrategyRoundRobin {
				t.Errorf("strategy = %s, want round_robin", wh.Strategy().Name())
			}
			got := wh.Filters()
			if len(got) != len(tt.wantFilters) {
				t.Fatalf("filters = %v, want %v", got, tt.wantFilters)
			}
			for i := range got {
				if got[i] != tt.wantFilters[i] {
					t.Errorf("filters[%d] = %s, want %s", i, got[i], tt.wantFilters[i])
				}
			}
		})
	}
}

func TestConfig_NewWarehouse_Invalid(t *testing.T) {
	cfg := &Config{Dimensions: warehouse.Dimensions{Rows: 1, Shelves: 1, Zones: 1}, Strategy: "random"}
	if _, err := cfg.NewWarehouse(nil); err == nil {
		t.Error("NewWarehouse() expected error for unknown strategy")
	}

	cfg = &Config{Strategy: "nearest"}
	if _, err := cfg.NewWarehouse(nil); err == nil {
		t.Error("NewWarehouse() expected error for empty dimensions")
	}
}

// clearEnvVars unsets every variable Load reads and restores them afterwards.
func clearEnvVars(t *testing.T) {
	t.Helper()
	envVars := []string{
		EnvServerPort,
		EnvLogLevel,
		EnvShutdownTimeout,
		EnvMetricsEnabled,
		EnvAuthMode,
		EnvBasicAuthUsers,
		EnvAPIKeys,
		EnvEnvFile,
		EnvLayoutFile,
		EnvRows,
		EnvShelves,
		EnvZones,
		EnvStrategy,
		EnvFragileRowLimit,
		EnvExpirationFilter,
		EnvNearExpiryDays,
	}
	for _, env := range envVars {
		t.Setenv(env, "")
		if err := os.Unsetenv(env); err != nil {
			t.Fatalf("failed to unset env var %s: %v", env, err)
		}
	}
}

// unsetAfter removes a variable that the env file may set during the test.
func unsetAfter(t *testing.T, name string) {
	t.Helper()
	t.Cleanup(func() {
		_ = os.Unsetenv(name)
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
