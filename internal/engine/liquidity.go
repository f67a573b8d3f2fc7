package engine

// LiquidityInputs are the signals the liquidity score is derived from.
type LiquidityInputs struct {
	SoldCount30d   int
	SoldCount7d    int
	ActiveListings int
}

// ScoreLiquidity computes the 0-100 sale-velocity score from three
// independently capped components:
//
//	velocity:  sold items per day over 30 days, cap 50
//	depth:     active listing count, cap 25
//	freshness: most-recent-window (7d) sold count, cap 25
//
// The freshness denominator is intentionally the same 15 the velocity scale
// uses for a 30-day count; changing it would silently recalibrate every
// stored score. Pure function; the caller persists the result.
func ScoreLiquidity(in LiquidityInputs, w LiquidityWeights) LiquidityResult {
	velocity := capAt(float64(in.SoldCount30d)/w.VelocityNorm*w.VelocityCap, w.VelocityCap)
	depth := capAt(float64(in.ActiveListings)/w.DepthNorm*w.DepthCap, w.DepthCap)

	var freshness float64
	if in.SoldCount7d > 0 {
		freshness = capAt(float64(in.SoldCount7d)/w.FreshnessNorm*w.FreshnessCap, w.FreshnessCap)
	}

	total := velocity + depth + freshness
	if total > 100 {
		total = 100
	}
	return LiquidityResult{
		Score:          total,
		VelocityScore:  velocity,
		DepthScore:     depth,
		FreshnessScore: freshness,
	}
}

func capAt(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
