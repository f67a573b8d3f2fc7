package engine

import (
	"fmt"
	"strings"
)

// EstimateMargin computes the gross/net margin for acquiring a listing at
// listingPrice and reselling it at the price normal on the given marketplace.
//
// Fees (commission + payment processing) are always charged against the
// expected resale price (the PMN), never against the acquisition price.
// Percentages are likewise expressed relative to the PMN. An unknown
// marketplace identifier is a hard error; there is no default fee fallback.
func EstimateMargin(listingPrice, pmn, shippingCost float64, marketplace string, fees map[string]Fee) (MarginEstimate, error) {
	if pmn <= 0 || listingPrice <= 0 {
		return MarginEstimate{}, fmt.Errorf("%w: listing_price=%.2f pmn=%.2f", ErrInvalidInput, listingPrice, pmn)
	}
	fee, ok := fees[strings.ToLower(marketplace)]
	if !ok {
		return MarginEstimate{}, fmt.Errorf("%w: %q", ErrUnknownMarketplace, marketplace)
	}
	if shippingCost < 0 {
		shippingCost = 0
	}

	grossMargin := pmn - listingPrice
	grossMarginPct := grossMargin / pmn * 100

	platformFee := pmn * fee.Commission
	paymentFee := pmn * fee.Payment
	totalFees := platformFee + paymentFee + shippingCost

	netMargin := grossMargin - totalFees
	netMarginPct := netMargin / pmn * 100

	return MarginEstimate{
		GrossMargin:    grossMargin,
		GrossMarginPct: grossMarginPct,
		NetMargin:      netMargin,
		NetMarginPct:   netMarginPct,
		Fees: FeeBreakdown{
			PlatformFee: platformFee,
			PaymentFee:  paymentFee,
			Shipping:    shippingCost,
			TotalFees:   totalFees,
		},
		RiskLevel: riskLevel(netMarginPct),
	}, nil
}

// riskLevel tiers the net margin percentage.
func riskLevel(netMarginPct float64) string {
	switch {
	case netMarginPct >= 20:
		return "low"
	case netMarginPct >= 10:
		return "medium"
	case netMarginPct >= 0:
		return "high"
	default:
		return "very_high"
	}
}
