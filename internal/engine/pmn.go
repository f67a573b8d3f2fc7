package engine

import (
	"fmt"
	"sort"
	"time"
)

// minPMNSample is the minimum number of price points required for an estimate.
const minPMNSample = 3

// ComputePMN derives a robust price normal from the given sample.
//
// The raw sample is clipped to the configured percentile band (default
// [p5, p95]) to discard outliers, then the point estimate is the median of
// the filtered sample and the bounds are median ± population std. With
// timeWeighted set, each price is weighted by exponential decay from its
// observation timestamp and the weighted median/std are used instead.
//
// Bounds are deliberately not floored at zero: a negative pmn_low signals
// dispersion exceeding the estimate, which callers treat as "no meaningful
// lower bound".
//
// Deterministic given identical sample and mode. Returns ErrInsufficientData
// for samples with fewer than 3 prices; nothing is persisted by this function.
func ComputePMN(sample []PricePoint, timeWeighted bool, now time.Time, p Params) (PMNResult, error) {
	if len(sample) < minPMNSample {
		return PMNResult{}, fmt.Errorf("%w: %d price points, need %d", ErrInsufficientData, len(sample), minPMNSample)
	}

	raw := make([]float64, len(sample))
	for i, pt := range sample {
		raw[i] = pt.Price
	}
	sorted := append([]float64(nil), raw...)
	sort.Float64s(sorted)

	low := percentile(sorted, p.OutlierLowPct)
	high := percentile(sorted, p.OutlierHighPct)

	// Filter against the raw-sample band, keeping timestamps aligned.
	var filtered []PricePoint
	for _, pt := range sample {
		if pt.Price >= low && pt.Price <= high {
			filtered = append(filtered, pt)
		}
	}
	if len(filtered) == 0 {
		// Degenerate band (all identical prices round-trip fine; this needs
		// a pathological float edge). Fall back to the raw sample.
		filtered = sample
	}

	prices := make([]float64, len(filtered))
	for i, pt := range filtered {
		prices[i] = pt.Price
	}

	var pmn, std float64
	if timeWeighted {
		weights := decayWeights(filtered, now, p.HalfLifeDays)
		pmn = weightedMedian(prices, weights)
		std = weightedStdDev(prices, weights)
	} else {
		sortedPrices := append([]float64(nil), prices...)
		sort.Float64s(sortedPrices)
		pmn = median(sortedPrices)
		std = stdDev(prices)
	}

	return PMNResult{
		PMN:        pmn,
		PMNLow:     pmn - std,
		PMNHigh:    pmn + std,
		SampleSize: len(filtered),
		Methodology: Methodology{
			OutlierFilter: fmt.Sprintf("p%g_p%g", p.OutlierLowPct, p.OutlierHighPct),
			TimeWeighted:  timeWeighted,
			SampleSize:    len(filtered),
		},
	}, nil
}
