package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout is the YAML description of a warehouse:
//
//	rows: 2
//	shelves: 2
//	zones: 3
//	strategy: round_robin
//	filters:
//	  fragile_row_limit: 2
//	  expiration: true
//	near_expiry_days: 3
//
// Omitted fields keep their defaults.
type Layout struct {
	Rows           int           `yaml:"rows"`
	Shelves        int           `yaml:"shelves"`
	Zones          int           `yaml:"zones"`
	Strategy       string        `yaml:"strategy"`
	Filters        LayoutFilters `yaml:"filters"`
	NearExpiryDays *int          `yaml:"near_expiry_days"`
}

// LayoutFilters configures the admission filters.
type LayoutFilters struct {
	FragileRowLimit *int  `yaml:"fragile_row_limit"`
	Expiration      *bool `yaml:"expiration"`
}

// LoadLayout reads and decodes a layout file. Unknown keys are rejected.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var layout Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&layout); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return &layout, nil
}

// apply copies the fields set in the layout onto cfg.
func (l *Layout) apply(cfg *Config) {
	if l.Rows != 0 {
		cfg.Dimensions.Rows = l.Rows
	}
	if l.Shelves != 0 {
		cfg.Dimensions.Shelves = l.Shelves
	}
	if l.Zones != 0 {
		cfg.Dimensions.Zones = l.Zones
	}
	if l.Strategy != "" {
		cfg.Strategy = l.Strategy
	}
	if l.Filters.FragileRowLimit != nil {
		cfg.FragileRowLimit = *l.Filters.FragileRowLimit
	}
	if l.Filters.Expiration != nil {
		cfg.ExpirationFilter = *l.Filters.Expiration
	}
	if l.NearExpiryDays != nil {
		cfg.NearExpiryDays = *l.NearExpiryDays
	}
}
