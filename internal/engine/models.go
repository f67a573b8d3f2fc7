package engine

import "time"

// Product is a tracked product template.
type Product struct {
	ProductID   string    `json:"product_id"`
	Name        string    `json:"name"`
	SearchQuery string    `json:"search_query"`
	Brand       string    `json:"brand,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Observation is one immutable marketplace snapshot of a listing.
// Observations are append-only; new snapshots are inserted, never merged.
type Observation struct {
	ObsID        int64     `json:"obs_id"`
	ProductID    string    `json:"product_id"`
	Source       string    `json:"source"`
	ListingID    string    `json:"listing_id"`
	Title        string    `json:"title,omitempty"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	Condition    string    `json:"condition,omitempty"`
	IsSold       bool      `json:"is_sold"`
	SellerRating float64   `json:"seller_rating,omitempty"` // 0 = unrated
	ShippingCost float64   `json:"shipping_cost,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
	URL          string    `json:"url,omitempty"`
}

// DailyMetrics is the per-(product, date) statistical summary.
// At most one row exists per key; recomputation overwrites it.
type DailyMetrics struct {
	ProductID      string  `json:"product_id"`
	Date           string  `json:"date"` // YYYY-MM-DD
	SoldCount7d    int     `json:"sold_count_7d"`
	SoldCount30d   int     `json:"sold_count_30d"`
	PriceMedian    float64 `json:"price_median"`
	PriceStd       float64 `json:"price_std"`
	PriceP25       float64 `json:"price_p25"`
	PriceP75       float64 `json:"price_p75"`
	LiquidityScore float64 `json:"liquidity_score"`
	TrendScore     float64 `json:"trend_score"`
}

// PricePoint pairs a price with its observation timestamp, for time weighting.
type PricePoint struct {
	Price      float64
	ObservedAt time.Time
}

// Methodology describes how a price normal was derived.
type Methodology struct {
	DataSource    string `json:"data_source"`    // "sold_items_90d" or "sold_N_active_M"
	OutlierFilter string `json:"outlier_filter"` // e.g. "p5_p95"
	TimeWeighted  bool   `json:"time_weighted"`
	SampleSize    int    `json:"sample_size"` // after outlier filtering
}

// PMNResult is the output of a price-normal estimation.
type PMNResult struct {
	PMN         float64     `json:"pmn"`
	PMNLow      float64     `json:"pmn_low"`
	PMNHigh     float64     `json:"pmn_high"`
	SampleSize  int         `json:"sample_size"`
	Methodology Methodology `json:"methodology"`
}

// PMNRecord is the persisted current price normal for a product.
type PMNRecord struct {
	ProductID      string      `json:"product_id"`
	PMN            float64     `json:"pmn"`
	PMNLow         float64     `json:"pmn_low"`
	PMNHigh        float64     `json:"pmn_high"`
	LastComputedAt time.Time   `json:"last_computed_at"`
	Methodology    Methodology `json:"methodology"`
}

// LiquidityResult is the 0-100 sale-velocity score with its components.
type LiquidityResult struct {
	Score          float64 `json:"liquidity_score"`
	VelocityScore  float64 `json:"velocity_score"`
	DepthScore     float64 `json:"depth_score"`
	FreshnessScore float64 `json:"freshness_score"`
}

// FeeBreakdown itemizes the costs charged against the expected resale price.
type FeeBreakdown struct {
	PlatformFee float64 `json:"platform_fee"`
	PaymentFee  float64 `json:"payment_fee"`
	Shipping    float64 `json:"shipping"`
	TotalFees   float64 `json:"total_fees"`
}

// MarginEstimate is the margin analysis for one listing against a price normal.
type MarginEstimate struct {
	GrossMargin    float64      `json:"gross_margin"`
	GrossMarginPct float64      `json:"gross_margin_pct"`
	NetMargin      float64      `json:"net_margin"`
	NetMarginPct   float64      `json:"net_margin_pct"`
	Fees           FeeBreakdown `json:"fees"`
	RiskLevel      string       `json:"risk_level"` // low | medium | high | very_high
}

// OpportunityScore is the ephemeral composite ranking for a listing.
// It is computed per request and never persisted.
type OpportunityScore struct {
	MarginScore    float64        `json:"margin_score"`    // 0-40
	LiquidityScore float64        `json:"liquidity_score"` // 0-30
	RiskScore      float64        `json:"risk_score"`      // 0-30
	Total          float64        `json:"total"`           // 0-100
	Recommendation string         `json:"recommendation"`  // strong_buy | good_buy | fair | pass
	Margin         MarginEstimate `json:"margin_analysis"`
}

// ProductState is the orchestrator's per-product computation state.
type ProductState string

const (
	StateUncomputed ProductState = "uncomputed"
	StateComputing  ProductState = "computing"
	StateComputed   ProductState = "computed"
	// StateStale means a newer observation arrived after the last
	// computation. Informational only; it never blocks anything.
	StateStale ProductState = "stale"
)

// Outcome statuses for per-product batch entries.
const (
	OutcomeSuccess          = "success"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeError            = "error"
)

// Outcome is one product's result within a batch run.
type Outcome struct {
	ProductID string `json:"product_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// StatusSummary is the orchestration-level health snapshot.
type StatusSummary struct {
	TotalActiveProducts      int        `json:"total_active_products"`
	ProductsWithPMN          int        `json:"products_with_pmn"`
	ProductsWithMetricsToday int        `json:"products_with_metrics_today"`
	CoveragePct              float64    `json:"coverage_pct"`
	LastComputedAt           *time.Time `json:"last_computed_at,omitempty"`
	MeanLiquidityScore       float64    `json:"mean_liquidity_score"`
}
