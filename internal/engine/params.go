package engine

import "time"

// Fee holds a marketplace's commission and payment-processing rates
// as fractions of the resale price.
type Fee struct {
	Commission float64
	Payment    float64
}

// LiquidityWeights holds the caps and denominators of the three
// liquidity components. Each component is norm-scaled then capped.
type LiquidityWeights struct {
	VelocityCap   float64
	DepthCap      float64
	FreshnessCap  float64
	VelocityNorm  float64
	DepthNorm     float64
	FreshnessNorm float64
}

// Params carries all tunables of the computation pipeline. Construct with
// DefaultParams and override from configuration at startup.
type Params struct {
	// Outlier percentile band for the PMN estimator.
	OutlierLowPct  float64
	OutlierHighPct float64

	// HalfLifeDays is the exponential-decay half-life for time weighting.
	HalfLifeDays float64

	// TimeWeightMin is the sample size at or above which the orchestrator
	// requests time-weighted estimation.
	TimeWeightMin int

	Liquidity LiquidityWeights

	// Fees maps lowercase marketplace identifiers to their fee rates.
	Fees map[string]Fee

	// BatchWorkers bounds the batch computation worker pool.
	BatchWorkers int

	// ProductTimeout bounds each per-product unit of work.
	ProductTimeout time.Duration
}

// DefaultParams returns pipeline parameters matching the documented defaults.
func DefaultParams() Params {
	return Params{
		OutlierLowPct:  5,
		OutlierHighPct: 95,
		HalfLifeDays:   30,
		TimeWeightMin:  20,
		Liquidity: LiquidityWeights{
			VelocityCap:   50,
			DepthCap:      25,
			FreshnessCap:  25,
			VelocityNorm:  30,
			DepthNorm:     20,
			FreshnessNorm: 15,
		},
		Fees: map[string]Fee{
			"ebay":      {Commission: 0.129, Payment: 0.03},
			"leboncoin": {Commission: 0.05, Payment: 0.03},
			"vinted":    {Commission: 0.05, Payment: 0.03},
		},
		BatchWorkers:   4,
		ProductTimeout: 30 * time.Second,
	}
}
