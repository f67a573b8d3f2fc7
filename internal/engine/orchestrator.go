package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Guillaume6606/sales-market-discovery/internal/logger"
	"github.com/Guillaume6606/sales-market-discovery/internal/metrics"
)

// observationWindowDays bounds how far back observations are loaded for a run.
const observationWindowDays = 90

// StatusCounts are the store-side aggregates behind the status summary.
type StatusCounts struct {
	ActiveProducts     int
	ProductsWithPMN    int
	ProductsWithMetric int // metrics rows for the given date
	MeanLiquidity      float64
	LastComputedAt     *time.Time
}

// Store is the persistence surface the orchestrator depends on.
// *db.DB implements it; tests substitute in-memory fakes.
type Store interface {
	ListActiveProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)
	ObservationsSince(ctx context.Context, productID string, since time.Time) ([]Observation, error)
	LatestObservationAt(ctx context.Context, productID string) (time.Time, bool, error)
	GetObservation(ctx context.Context, obsID int64) (*Observation, error)
	UpsertDailyMetrics(ctx context.Context, m DailyMetrics) error
	LatestDailyMetrics(ctx context.Context, productID string) (*DailyMetrics, error)
	UpsertPMN(ctx context.Context, rec PMNRecord) error
	GetPMN(ctx context.Context, productID string) (*PMNRecord, error)
	StatusCounts(ctx context.Context, date string) (StatusCounts, error)
}

// Orchestrator drives the per-product pipeline (aggregate, then estimate),
// guarantees at-most-one in-flight computation per product, and fans batch
// runs out across a bounded worker pool. Products are independent units of
// work; one product's failure never aborts its siblings.
type Orchestrator struct {
	store  Store
	params Params
	leases *LeaseRegistry

	// now is injectable for deterministic tests.
	now func() time.Time

	mu          sync.Mutex
	lastBatch   []Outcome
	lastBatchAt time.Time
}

// NewOrchestrator creates an Orchestrator over the given store.
func NewOrchestrator(store Store, params Params) *Orchestrator {
	return &Orchestrator{
		store:  store,
		params: params,
		leases: NewLeaseRegistry(),
		now:    time.Now,
	}
}

// ComputeProduct runs the full pipeline for one product: aggregate the daily
// metrics, persist them, then estimate and persist the price normal from the
// same sample. The two steps are sequenced within the product; nothing is
// ordered across products.
//
// Returns ErrAlreadyComputing when a computation for this product is in
// flight, and ErrInsufficientData when there is too little data (the daily
// metrics may still have been written if only the PMN step lacked prices;
// any prior price normal is left untouched).
func (o *Orchestrator) ComputeProduct(ctx context.Context, productID string) error {
	if !o.leases.Acquire(productID) {
		metrics.ComputationsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: product %s", ErrAlreadyComputing, productID)
	}
	defer o.leases.Release(productID)

	start := o.now()
	err := o.computeLocked(ctx, productID)
	metrics.ComputationDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.ComputationsTotal.WithLabelValues(OutcomeSuccess).Inc()
	case errors.Is(err, ErrInsufficientData):
		metrics.ComputationsTotal.WithLabelValues(OutcomeInsufficientData).Inc()
	default:
		metrics.ComputationsTotal.WithLabelValues(OutcomeError).Inc()
		logger.Error("Engine", fmt.Sprintf("Computation failed for product %s: %v", productID, err))
	}
	return err
}

// computeLocked is the pipeline body; the caller holds the product lease.
func (o *Orchestrator) computeLocked(ctx context.Context, productID string) error {
	now := o.now()

	obs, err := o.store.ObservationsSince(ctx, productID, now.AddDate(0, 0, -observationWindowDays))
	if err != nil {
		return fmt.Errorf("load observations: %w", err)
	}

	agg, err := Aggregate(productID, obs, now, o.params)
	if err != nil {
		return err
	}
	if err := o.store.UpsertDailyMetrics(ctx, agg.Metrics); err != nil {
		return fmt.Errorf("upsert daily metrics: %w", err)
	}

	timeWeighted := len(agg.Sample) >= o.params.TimeWeightMin
	res, err := ComputePMN(agg.Sample, timeWeighted, now, o.params)
	if err != nil {
		// Too few prices for a normal: the prior record, if any, stays.
		return err
	}
	res.Methodology.DataSource = agg.DataSource

	rec := PMNRecord{
		ProductID:      productID,
		PMN:            res.PMN,
		PMNLow:         res.PMNLow,
		PMNHigh:        res.PMNHigh,
		LastComputedAt: now.UTC(),
		Methodology:    res.Methodology,
	}
	if err := o.store.UpsertPMN(ctx, rec); err != nil {
		return fmt.Errorf("upsert price normal: %w", err)
	}

	logger.Info("Engine", fmt.Sprintf("Computed product %s: pmn=%.2f [%.2f, %.2f] n=%d source=%s",
		productID, res.PMN, res.PMNLow, res.PMNHigh, res.SampleSize, agg.DataSource))
	return nil
}

// ComputeAll enumerates active products and computes each one independently
// on a bounded worker pool. Per-product failures are downgraded to outcome
// entries; the batch itself only fails if the product list cannot be loaded.
func (o *Orchestrator) ComputeAll(ctx context.Context) ([]Outcome, error) {
	products, err := o.store.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	metrics.BatchRunsTotal.Inc()
	logger.Info("Engine", fmt.Sprintf("Batch computation over %d products", len(products)))

	outcomes := make([]Outcome, len(products))
	g := new(errgroup.Group)
	g.SetLimit(o.params.BatchWorkers)

	for i, p := range products {
		g.Go(func() error {
			// A cancelled batch stops cleanly between units; finished
			// products keep their committed rows.
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{ProductID: p.ProductID, Status: OutcomeError, Error: err.Error()}
				return nil
			}

			unitCtx, cancel := context.WithTimeout(ctx, o.params.ProductTimeout)
			defer cancel()

			err := o.ComputeProduct(unitCtx, p.ProductID)
			switch {
			case err == nil:
				outcomes[i] = Outcome{ProductID: p.ProductID, Status: OutcomeSuccess}
			case errors.Is(err, ErrInsufficientData):
				outcomes[i] = Outcome{ProductID: p.ProductID, Status: OutcomeInsufficientData, Error: err.Error()}
			default:
				outcomes[i] = Outcome{ProductID: p.ProductID, Status: OutcomeError, Error: err.Error()}
			}
			return nil
		})
	}
	g.Wait()

	o.mu.Lock()
	o.lastBatch = outcomes
	o.lastBatchAt = o.now()
	o.mu.Unlock()
	return outcomes, nil
}

// LastBatch returns the most recent batch's outcome list, if any.
func (o *Orchestrator) LastBatch() ([]Outcome, time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastBatch, o.lastBatchAt
}

// ProductState reports the computation state of one product. "computing"
// comes from the lease registry; "stale" means an observation arrived after
// the last computation and is informational only.
func (o *Orchestrator) ProductState(ctx context.Context, productID string) (ProductState, error) {
	if o.leases.Held(productID) {
		return StateComputing, nil
	}
	rec, err := o.store.GetPMN(ctx, productID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return StateUncomputed, nil
	}
	latest, ok, err := o.store.LatestObservationAt(ctx, productID)
	if err != nil {
		return "", err
	}
	if ok && latest.After(rec.LastComputedAt) {
		return StateStale, nil
	}
	return StateComputed, nil
}

// Status returns the orchestration summary: coverage and freshness across
// all active products. Always best-known state: partial failures in the
// most recent run do not hide what was committed.
func (o *Orchestrator) Status(ctx context.Context) (StatusSummary, error) {
	counts, err := o.store.StatusCounts(ctx, o.now().UTC().Format("2006-01-02"))
	if err != nil {
		return StatusSummary{}, fmt.Errorf("status counts: %w", err)
	}

	var coverage float64
	if counts.ActiveProducts > 0 {
		coverage = float64(counts.ProductsWithPMN) / float64(counts.ActiveProducts) * 100
	}
	return StatusSummary{
		TotalActiveProducts:      counts.ActiveProducts,
		ProductsWithPMN:          counts.ProductsWithPMN,
		ProductsWithMetricsToday: counts.ProductsWithMetric,
		CoveragePct:              coverage,
		LastComputedAt:           counts.LastComputedAt,
		MeanLiquidityScore:       counts.MeanLiquidity,
	}, nil
}

// Opportunity scores a single observed listing against the product's current
// metrics and price normal. ErrObservationNotFound and ErrNoPMN are the
// caller-remediable failure modes.
func (o *Orchestrator) Opportunity(ctx context.Context, obsID int64) (OpportunityScore, error) {
	obs, err := o.store.GetObservation(ctx, obsID)
	if err != nil {
		metrics.OpportunityRequests.WithLabelValues("error").Inc()
		return OpportunityScore{}, err
	}
	if obs == nil {
		metrics.OpportunityRequests.WithLabelValues("not_found").Inc()
		return OpportunityScore{}, fmt.Errorf("%w: observation %d", ErrObservationNotFound, obsID)
	}

	rec, err := o.store.GetPMN(ctx, obs.ProductID)
	if err != nil {
		metrics.OpportunityRequests.WithLabelValues("error").Inc()
		return OpportunityScore{}, err
	}
	dm, err := o.store.LatestDailyMetrics(ctx, obs.ProductID)
	if err != nil {
		metrics.OpportunityRequests.WithLabelValues("error").Inc()
		return OpportunityScore{}, err
	}

	score, err := ScoreOpportunity(*obs, dm, rec, o.params.Fees)
	if err != nil {
		if errors.Is(err, ErrNoPMN) {
			metrics.OpportunityRequests.WithLabelValues("no_pmn").Inc()
		} else {
			metrics.OpportunityRequests.WithLabelValues("error").Inc()
		}
		return OpportunityScore{}, err
	}
	metrics.OpportunityRequests.WithLabelValues("ok").Inc()
	return score, nil
}
