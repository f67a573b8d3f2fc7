package engine

import "strings"

// ScoreOpportunity ranks a single listing against the product's current
// daily metrics and price normal. Weighting: margin 40, liquidity 30,
// risk 30; the total is clamped to [0, 100].
//
// A missing price normal is a hard ErrNoPMN; callers must compute one
// first rather than receive a degraded score. A missing metrics row only
// degrades the liquidity component to its neutral midpoint.
//
// Stateless; the result is never persisted.
func ScoreOpportunity(obs Observation, metrics *DailyMetrics, pmnRec *PMNRecord, fees map[string]Fee) (OpportunityScore, error) {
	if pmnRec == nil || pmnRec.PMN <= 0 {
		return OpportunityScore{}, ErrNoPMN
	}

	margin, err := EstimateMargin(obs.Price, pmnRec.PMN, obs.ShippingCost, obs.Source, fees)
	if err != nil {
		return OpportunityScore{}, err
	}

	// Margin: 30% net margin maps to the full 40 points, linear below.
	marginScore := margin.NetMarginPct / 30 * 40
	if marginScore < 0 {
		marginScore = 0
	}
	if marginScore > 40 {
		marginScore = 40
	}

	// Liquidity: 0-100 score rescaled to 30 points; neutral when unknown.
	liquidityScore := 15.0
	if metrics != nil {
		liquidityScore = metrics.LiquidityScore / 100 * 30
	}

	riskScore := scoreRisk(obs, pmnRec.PMN)

	total := marginScore + liquidityScore + riskScore
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return OpportunityScore{
		MarginScore:    marginScore,
		LiquidityScore: liquidityScore,
		RiskScore:      riskScore,
		Total:          total,
		Recommendation: recommendation(total),
		Margin:         margin,
	}, nil
}

// scoreRisk builds the 0-30 risk component: a neutral base of 15,
// up to 10 points from the seller rating, up to 5 from the condition tier,
// and a 5-point "too good to be true" penalty when the listing price sits
// implausibly far below the normal.
func scoreRisk(obs Observation, pmn float64) float64 {
	score := 15.0

	switch rating := obs.SellerRating; {
	case rating >= 4.5:
		score += 10
	case rating >= 4.0:
		score += 7
	case rating >= 3.5:
		score += 4
	case rating >= 3.0:
		score += 2
	case rating <= 0:
		// Unrated seller: moderate, not worst-case.
		score += 5
	}

	score += conditionBonus(obs.Condition)

	// Listings priced more than 50% under the normal land below any
	// realistic pmn_low band; treat as a scam signal.
	if pmn > 0 && (pmn-obs.Price)/pmn*100 > 50 {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	if score > 30 {
		score = 30
	}
	return score
}

// conditionBonus maps condition tags (including the French marketplace
// variants) to a 0-5 bonus.
func conditionBonus(condition string) float64 {
	c := strings.ToLower(condition)
	switch {
	case c == "":
		return 0
	case containsAny(c, "like new", "excellent", "très bon", "tres bon"):
		return 4
	case containsAny(c, "new", "neuf", "nouveau"):
		return 5
	case containsAny(c, "good", "bon"):
		return 3
	case containsAny(c, "fair", "correct"):
		return 2
	default:
		return 0
	}
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// recommendation buckets the total score. Thresholds partition [0, 100]:
// [75,100] strong_buy, [60,75) good_buy, [40,60) fair, [0,40) pass.
func recommendation(total float64) string {
	switch {
	case total >= 75:
		return "strong_buy"
	case total >= 60:
		return "good_buy"
	case total >= 40:
		return "fair"
	default:
		return "pass"
	}
}
