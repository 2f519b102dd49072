// Package config provides configuration management for the warehouse server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

// Default configuration values.
const (
	DefaultServerPort       = 8080
	DefaultLogLevel         = "info"
	DefaultShutdownTimeout  = 30 * time.Second
	DefaultMetricsEnabled   = true
	DefaultAuthMode         = "none"
	DefaultEnvFile          = ".env"
	DefaultRows             = 2
	DefaultShelves          = 2
	DefaultZones            = 3
	DefaultStrategy         = warehouse.StrategyNearest
	DefaultFragileRowLimit  = 2
	DefaultExpirationFilter = true
	DefaultNearExpiryDays   = 3
)

// Environment variable names.
const (
	EnvServerPort       = "APP_SERVER_PORT"
	EnvLogLevel         = "APP_LOG_LEVEL"
	EnvShutdownTimeout  = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled   = "APP_METRICS_ENABLED"
	EnvAuthMode         = "APP_AUTH_MODE"
	EnvBasicAuthUsers   = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys          = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvEnvFile          = "APP_ENV_FILE"
	EnvLayoutFile       = "APP_LAYOUT_FILE"
	EnvRows             = "APP_WAREHOUSE_ROWS"
	EnvShelves          = "APP_WAREHOUSE_SHELVES"
	EnvZones            = "APP_WAREHOUSE_ZONES"
	EnvStrategy         = "APP_WAREHOUSE_STRATEGY"
	EnvFragileRowLimit  = "APP_FRAGILE_ROW_LIMIT"
	EnvExpirationFilter = "APP_EXPIRATION_FILTER"
	EnvNearExpiryDays   = "APP_NEAR_EXPIRY_DAYS"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Authentication mode: none, basic, apikey, multi.
	AuthMode string

	// Basic auth settings (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string

	// API key settings (format: "key1:name1,key2:name2").
	APIKeys string

	// Warehouse layout and policy.
	LayoutFile       string
	Dimensions       warehouse.Dimensions
	Strategy         string
	FragileRowLimit  int // -1 disables the fragile row ceiling.
	ExpirationFilter bool
	NearExpiryDays   int
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New(
		"auth mode must be one of: none, basic, apikey, multi",
	)
	ErrInvalidBasicAuthConfig = errors.New(
		"basic auth users must be set when auth mode is basic",
	)
	ErrInvalidAPIKeyConfig = errors.New(
		"API keys must be set when auth mode is apikey",
	)
	ErrInvalidMultiAuthConfig = errors.New(
		"at least one auth config must be provided when auth mode is multi",
	)
	ErrInvalidDimensions = errors.New(
		"warehouse rows, shelves and zones must be positive and within the zone limit",
	)
	ErrInvalidStrategy = errors.New(
		"warehouse strategy must be one of: nearest, round_robin",
	)
	ErrInvalidFragileRowLimit = errors.New(
		"fragile row limit must be -1 (disabled) or a row index",
	)
	ErrInvalidNearExpiryDays = errors.New(
		"near expiry days must not be negative",
	)
)

// Load reads configuration with the following precedence, lowest first:
// defaults, layout file, environment. A .env file only fills variables
// that are not already set in the environment.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       DefaultServerPort,
		LogLevel:         DefaultLogLevel,
		ShutdownTimeout:  DefaultShutdownTimeout,
		MetricsEnabled:   DefaultMetricsEnabled,
		AuthMode:         DefaultAuthMode,
		Dimensions:       warehouse.Dimensions{Rows: DefaultRows, Shelves: DefaultShelves, Zones: DefaultZones},
		Strategy:         DefaultStrategy,
		FragileRowLimit:  DefaultFragileRowLimit,
		ExpirationFilter: DefaultExpirationFilter,
		NearExpiryDays:   DefaultNearExpiryDays,
	}

	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	if path := os.Getenv(EnvLayoutFile); path != "" {
		layout, err := LoadLayout(path)
		if err != nil {
			return nil, fmt.Errorf("loading layout file: %w", err)
		}
		layout.apply(cfg)
		cfg.LayoutFile = path
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads the env file named by APP_ENV_FILE, or .env when unset.
// A missing default file is not an error.
func loadDotEnv() error {
	path, explicit := os.LookupEnv(EnvEnvFile)
	if !explicit || path == "" {
		path = DefaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return err
	}

	return godotenv.Load(path)
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadAuthEnv()

	if err := c.loadWarehouseEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if err := envInt(EnvServerPort, &c.ServerPort); err != nil {
		return err
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	return envBool(EnvMetricsEnabled, &c.MetricsEnabled)
}

// loadAuthEnv loads authentication environment variables.
func (c *Config) loadAuthEnv() {
	if val := os.Getenv(EnvAuthMode); val != "" {
		c.AuthMode = val
	}

	if val := os.Getenv(EnvBasicAuthUsers); val != "" {
		c.BasicAuthUsers = val
	}

	if val := os.Getenv(EnvAPIKeys); val != "" {
		c.APIKeys = val
	}
}

// loadWarehouseEnv loads warehouse layout and policy environment variables.
func (c *Config) loadWarehouseEnv() error {
	for name, dst := range map[string]*int{
		EnvRows:            &c.Dimensions.Rows,
		EnvShelves:         &c.Dimensions.Shelves,
		EnvZones:           &c.Dimensions.Zones,
		EnvFragileRowLimit: &c.FragileRowLimit,
		EnvNearExpiryDays:  &c.NearExpiryDays,
	} {
		if err := envInt(name, dst); err != nil {
			return err
		}
	}

	if val := os.Getenv(EnvStrategy); val != "" {
		c.Strategy = val
	}

	return envBool(EnvExpirationFilter, &c.ExpirationFilter)
}

func envInt(name string, dst *int) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = n

	return nil
}

func envBool(name string, dst *bool) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = b

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if err := c.validateWarehouse(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateAuth validates authentication configuration.
func (c *Config) validateAuth() error {
	switch c.authModeOrDefault() {
	case "none":
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "multi":
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	default:
		return ErrInvalidAuthMode
	}

	return nil
}

// validateWarehouse validates the layout and placement policy.
func (c *Config) validateWarehouse() error {
	if err := c.Dimensions.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDimensions, err)
	}

	if _, err := warehouse.ParseStrategy(c.Strategy); err != nil {
		return ErrInvalidStrategy
	}

	if c.FragileRowLimit < -1 {
		return ErrInvalidFragileRowLimit
	}

	if c.NearExpiryDays < 0 {
		return ErrInvalidNearExpiryDays
	}

	return nil
}

// authModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) authModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// NewWarehouse builds an empty warehouse with the configured layout,
// strategy and filters.
func (c *Config) NewWarehouse(now func() time.Time) (*warehouse.Warehouse, error) {
	strategy, err := warehouse.ParseStrategy(c.Strategy)
	if err != nil {
		return nil, err
	}

	wh, err := warehouse.New(c.Dimensions, strategy)
	if err != nil {
		return nil, err
	}

	if c.FragileRowLimit >= 0 {
		wh.AddFilter(warehouse.NewMaxRowFilter(c.FragileRowLimit))
	}
	if c.ExpirationFilter {
		wh.AddFilter(warehouse.NewExpirationFilter(now))
	}

	return wh, nil
}
