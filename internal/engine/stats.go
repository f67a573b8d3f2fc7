package engine

import (
	"math"
	"sort"
	"time"
)

// percentile returns the p-th percentile from a sorted slice (p in 0..100),
// with linear interpolation between adjacent ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// median returns the middle value of a sorted slice.
func median(sorted []float64) float64 {
	return percentile(sorted, 50)
}

// stdDev calculates population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

// weightedMedian returns the value at which the cumulative weight crosses
// half the total. values and weights must have equal length.
func weightedMedian(values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	type pair struct{ v, w float64 }
	pairs := make([]pair, len(values))
	var total float64
	for i := range values {
		pairs[i] = pair{values[i], weights[i]}
		total += weights[i]
	}
	if total <= 0 {
		s := append([]float64(nil), values...)
		sort.Float64s(s)
		return median(s)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })

	half := total / 2
	var cum float64
	for i, p := range pairs {
		cum += p.w
		if cum >= half {
			// Exactly at the midpoint: average with the next value.
			if cum == half && i+1 < len(pairs) {
				return (p.v + pairs[i+1].v) / 2
			}
			return p.v
		}
	}
	return pairs[len(pairs)-1].v
}

// weightedStdDev calculates the weighted population standard deviation.
func weightedStdDev(values, weights []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var total, mean float64
	for i := range values {
		total += weights[i]
	}
	if total <= 0 {
		return stdDev(values)
	}
	for i := range values {
		mean += values[i] * weights[i]
	}
	mean /= total

	var variance float64
	for i := range values {
		diff := values[i] - mean
		variance += weights[i] * diff * diff
	}
	variance /= total
	return math.Sqrt(variance)
}

// decayWeights returns exponential-decay weights for the given timestamps,
// with the stated half-life: an observation halfLife days old weighs 0.5,
// twice that 0.25, and so on. Observations newer than now weigh 1.
func decayWeights(points []PricePoint, now time.Time, halfLifeDays float64) []float64 {
	weights := make([]float64, len(points))
	for i, p := range points {
		ageDays := now.Sub(p.ObservedAt).Hours() / 24
		if ageDays <= 0 || halfLifeDays <= 0 {
			weights[i] = 1
			continue
		}
		weights[i] = math.Exp(-math.Ln2 * ageDays / halfLifeDays)
	}
	return weights
}

// sanitizeFloat replaces NaN/Inf with 0 to prevent JSON marshal errors.
func sanitizeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
