package config

import "time"

// Fee holds the per-marketplace fee rates as fractions (0.129 = 12.9%).
type Fee struct {
	Commission float64 `koanf:"commission" json:"commission"`
	Payment    float64 `koanf:"payment" json:"payment"`
}

// Config holds application settings (in-memory representation).
// Loaded by Load() from defaults, an optional YAML file, and SMD_* env vars.
type Config struct {
	Addr   string `koanf:"addr" json:"addr"`
	DBPath string `koanf:"db_path" json:"db_path"`

	// Fees maps marketplace identifier (lowercase) to its fee rates.
	// Overrides from file/env replace entries wholesale; marketplaces
	// absent from the table are rejected, never defaulted.
	Fees map[string]Fee `koanf:"fees" json:"fees"`

	// PMN estimator parameters.
	OutlierLowPct    float64 `koanf:"outlier_low_pct" json:"outlier_low_pct"`
	OutlierHighPct   float64 `koanf:"outlier_high_pct" json:"outlier_high_pct"`
	PMNHalfLifeDays  float64 `koanf:"pmn_half_life_days" json:"pmn_half_life_days"`
	PMNTimeWeightMin int     `koanf:"pmn_time_weight_min" json:"pmn_time_weight_min"`

	// Liquidity scoring caps and denominators.
	VelocityCap   float64 `koanf:"velocity_cap" json:"velocity_cap"`
	DepthCap      float64 `koanf:"depth_cap" json:"depth_cap"`
	FreshnessCap  float64 `koanf:"freshness_cap" json:"freshness_cap"`
	VelocityNorm  float64 `koanf:"velocity_norm" json:"velocity_norm"`
	DepthNorm     float64 `koanf:"depth_norm" json:"depth_norm"`
	FreshnessNorm float64 `koanf:"freshness_norm" json:"freshness_norm"`

	// Batch computation controls.
	BatchWorkers    int `koanf:"batch_workers" json:"batch_workers"`
	ProductTimeoutS int `koanf:"product_timeout_s" json:"product_timeout_s"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Addr:   ":8880",
		DBPath: "discovery.db",
		Fees: map[string]Fee{
			"ebay":      {Commission: 0.129, Payment: 0.03},
			"leboncoin": {Commission: 0.05, Payment: 0.03},
			"vinted":    {Commission: 0.05, Payment: 0.03},
		},
		OutlierLowPct:    5,
		OutlierHighPct:   95,
		PMNHalfLifeDays:  30,
		PMNTimeWeightMin: 20,
		VelocityCap:      50,
		DepthCap:         25,
		FreshnessCap:     25,
		VelocityNorm:     30,
		DepthNorm:        20,
		FreshnessNorm:    15,
		BatchWorkers:     4,
		ProductTimeoutS:  30,
	}
}

// ProductTimeout returns the per-product computation timeout as a Duration.
func (c *Config) ProductTimeout() time.Duration {
	if c.ProductTimeoutS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ProductTimeoutS) * time.Second
}
