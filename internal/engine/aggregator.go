package engine

import (
	"fmt"
	"sort"
	"time"
)

// minSoldForStats is the sold-observation count below which price statistics
// fall back to active-listing prices.
const minSoldForStats = 10

// AggregateResult bundles the daily summary with the price sample that
// produced it, so the same source set feeds the PMN estimator within one run.
type AggregateResult struct {
	Metrics        DailyMetrics
	Sample         []PricePoint // chosen source set (sold-first, active-fallback)
	DataSource     string       // "sold_items_90d" or "sold_N_active_M"
	ActiveListings int
}

// Aggregate reduces a product's raw observations into the daily summary as of
// now. Price statistics come from sold-item prices in the trailing 90 days
// when at least 10 sold observations exist, otherwise from sold plus
// active-listing prices over the same window.
//
// Returns ErrInsufficientData when the product has no observations at all;
// the caller writes nothing in that case.
func Aggregate(productID string, obs []Observation, now time.Time, p Params) (AggregateResult, error) {
	if len(obs) == 0 {
		return AggregateResult{}, fmt.Errorf("%w: product %s has no observations", ErrInsufficientData, productID)
	}

	cutoff7 := now.AddDate(0, 0, -7)
	cutoff30 := now.AddDate(0, 0, -30)
	cutoff90 := now.AddDate(0, 0, -90)

	var sold7, sold30, active int
	var soldPoints, activePoints []PricePoint
	for _, o := range obs {
		if o.ObservedAt.Before(cutoff90) {
			continue
		}
		if o.IsSold {
			if !o.ObservedAt.Before(cutoff30) {
				sold30++
			}
			if !o.ObservedAt.Before(cutoff7) {
				sold7++
			}
			if o.Price > 0 {
				soldPoints = append(soldPoints, PricePoint{o.Price, o.ObservedAt})
			}
		} else {
			active++
			if o.Price > 0 {
				activePoints = append(activePoints, PricePoint{o.Price, o.ObservedAt})
			}
		}
	}

	sample := soldPoints
	dataSource := "sold_items_90d"
	if len(soldPoints) < minSoldForStats {
		sample = append(append([]PricePoint(nil), soldPoints...), activePoints...)
		dataSource = fmt.Sprintf("sold_%d_active_%d", len(soldPoints), len(activePoints))
	}

	metrics := DailyMetrics{
		ProductID:    productID,
		Date:         now.UTC().Format("2006-01-02"),
		SoldCount7d:  sold7,
		SoldCount30d: sold30,
	}

	if len(sample) > 0 {
		prices := make([]float64, len(sample))
		for i, pt := range sample {
			prices[i] = pt.Price
		}
		sort.Float64s(prices)
		metrics.PriceMedian = median(prices)
		metrics.PriceStd = stdDev(prices)
		metrics.PriceP25 = percentile(prices, 25)
		metrics.PriceP75 = percentile(prices, 75)
		metrics.TrendScore = trendScore(sample, now)
	}

	liq := ScoreLiquidity(LiquidityInputs{
		SoldCount30d:   sold30,
		SoldCount7d:    sold7,
		ActiveListings: active,
	}, p.Liquidity)
	metrics.LiquidityScore = liq.Score

	return AggregateResult{
		Metrics:        metrics,
		Sample:         sample,
		DataSource:     dataSource,
		ActiveListings: active,
	}, nil
}

// trendScore is the ratio of the short-window (30d) median to the full-window
// median of the source set. >1 means prices are trending up. Display-only;
// no downstream contract beyond being a finite number.
func trendScore(sample []PricePoint, now time.Time) float64 {
	cutoff30 := now.AddDate(0, 0, -30)

	var all, recent []float64
	for _, pt := range sample {
		all = append(all, pt.Price)
		if !pt.ObservedAt.Before(cutoff30) {
			recent = append(recent, pt.Price)
		}
	}
	if len(all) == 0 || len(recent) == 0 {
		return 1
	}
	sort.Float64s(all)
	sort.Float64s(recent)
	long := median(all)
	if long <= 0 {
		return 1
	}
	return sanitizeFloat(median(recent) / long)
}
