package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (Default())
//  2. file (YAML) if SMD_CONFIG is set
//  3. env (prefix SMD_)
//
// Fee-table overrides nest under "fees" and are most naturally set through
// the YAML file; scalar keys map directly to env vars (SMD_BATCH_WORKERS,
// SMD_OUTLIER_LOW_PCT, ...).
func Load() (*Config, error) {
	base := Default()

	k := koanf.New(".")

	if path := os.Getenv("SMD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: SMD_ADDR, SMD_DB_PATH, SMD_BATCH_WORKERS, ...
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SMD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "smd_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.OutlierLowPct < 0 || cfg.OutlierHighPct > 100 || cfg.OutlierLowPct >= cfg.OutlierHighPct {
		return nil, errors.New("outlier percentile bounds must satisfy 0 <= low < high <= 100")
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = Default().BatchWorkers
	}
	return &cfg, nil
}
