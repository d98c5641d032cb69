// Package cmn provides common types and the engine configuration.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package cmn

import (
	"os"
	"strconv"
	"time"

	"github.com/colstore/colstore/ttl"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	// DfltMergeWithTTLTimeout is the default minimum interval, in seconds,
	// between TTL-driven merges of one partition.
	DfltMergeWithTTLTimeout = 14400

	dfltTickInterval = 10 * time.Second
)

type (
	// Duration marshals as a time.Duration string ("1m30s", "4h0m0s") and
	// unmarshals from any string time.ParseDuration accepts ("90s", "4h").
	Duration time.Duration

	// Config is the TTL-merge configuration of one engine instance.
	Config struct {
		// Cooldown between TTL merges of the same partition, seconds.
		MergeWithTTLTimeout int64 `json:"merge_with_ttl_timeout"`
		// When set, a part qualifies for a TTL delete merge only if every
		// row in it has expired.
		OnlyDropParts bool `json:"only_drop_parts"`
		// Byte budget per merge; zero means no limit.
		MaxTotalSizeToMerge uint64 `json:"max_total_size_to_merge"`
		// Background scheduler tick interval.
		TickInterval Duration `json:"tick_interval"`
		// Part catalog location; ":memory:" for ephemeral.
		CatalogPath string `json:"catalog_path"`
		// Schema-declared recompression rules, in declaration order.
		RecompressionTTLs ttl.Rules `json:"recompression_ttls,omitempty"`
	}
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.D().String())), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig mirrors the engine defaults.
func DefaultConfig() *Config {
	return &Config{
		MergeWithTTLTimeout: DfltMergeWithTTLTimeout,
		TickInterval:        Duration(dfltTickInterval),
		CatalogPath:         ":memory:",
	}
}

// LoadConfig reads and validates a JSON configuration file; fields that are
// absent keep their defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %q", path)
	}
	conf := DefaultConfig()
	if err := json.Unmarshal(b, conf); err != nil {
		return nil, errors.Wrapf(err, "parse config %q", path)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %q", path)
	}
	return conf, nil
}

func (conf *Config) Validate() error {
	if conf.MergeWithTTLTimeout < 0 {
		return errors.Errorf("merge_with_ttl_timeout must be nonnegative, got %d", conf.MergeWithTTLTimeout)
	}
	if conf.TickInterval <= 0 {
		return errors.Errorf("tick_interval must be positive, got %s", conf.TickInterval.D())
	}
	if conf.CatalogPath == "" {
		return errors.New("catalog_path must be set")
	}
	return conf.RecompressionTTLs.Validate()
}
