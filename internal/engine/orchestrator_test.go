package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory Store for orchestrator tests.
type fakeStore struct {
	mu       sync.Mutex
	products []Product
	obs      map[string][]Observation
	metrics  map[string]DailyMetrics // productID|date
	pmns     map[string]PMNRecord

	// obsGate, when non-nil, blocks ObservationsSince until it is closed.
	obsGate chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		obs:     make(map[string][]Observation),
		metrics: make(map[string]DailyMetrics),
		pmns:    make(map[string]PMNRecord),
	}
}

func (f *fakeStore) addProduct(id string) {
	f.products = append(f.products, Product{ProductID: id, Name: id, IsActive: true})
}

func (f *fakeStore) ListActiveProducts(ctx context.Context) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Product(nil), f.products...), nil
}

func (f *fakeStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ProductID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
}

func (f *fakeStore) ObservationsSince(ctx context.Context, id string, since time.Time) ([]Observation, error) {
	if f.obsGate != nil {
		select {
		case <-f.obsGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Observation
	for _, o := range f.obs[id] {
		if !o.ObservedAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestObservationAt(ctx context.Context, id string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest time.Time
	for _, o := range f.obs[id] {
		if o.ObservedAt.After(latest) {
			latest = o.ObservedAt
		}
	}
	return latest, !latest.IsZero(), nil
}

func (f *fakeStore) GetObservation(ctx context.Context, obsID int64) (*Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range f.obs {
		for _, o := range list {
			if o.ObsID == obsID {
				return &o, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeStore) UpsertDailyMetrics(ctx context.Context, m DailyMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics[m.ProductID+"|"+m.Date] = m
	return nil
}

func (f *fakeStore) LatestDailyMetrics(ctx context.Context, id string) (*DailyMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *DailyMetrics
	for _, m := range f.metrics {
		if m.ProductID != id {
			continue
		}
		if best == nil || m.Date > best.Date {
			mm := m
			best = &mm
		}
	}
	return best, nil
}

func (f *fakeStore) UpsertPMN(ctx context.Context, rec PMNRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pmns[rec.ProductID] = rec
	return nil
}

func (f *fakeStore) GetPMN(ctx context.Context, id string) (*PMNRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.pmns[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (f *fakeStore) StatusCounts(ctx context.Context, date string) (StatusCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := StatusCounts{ActiveProducts: len(f.products), ProductsWithPMN: len(f.pmns)}
	var sum float64
	for _, m := range f.metrics {
		if m.Date == date {
			c.ProductsWithMetric++
			sum += m.LiquidityScore
		}
	}
	if c.ProductsWithMetric > 0 {
		c.MeanLiquidity = sum / float64(c.ProductsWithMetric)
	}
	for _, rec := range f.pmns {
		t := rec.LastComputedAt
		if c.LastComputedAt == nil || t.After(*c.LastComputedAt) {
			c.LastComputedAt = &t
		}
	}
	return c, nil
}

func seedObservations(f *fakeStore, productID string, now time.Time, n int, sold bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.obs[productID] = append(f.obs[productID], Observation{
			ObsID:      int64(len(f.obs[productID]) + 1),
			ProductID:  productID,
			Source:     "ebay",
			Price:      100 + float64(i%7),
			IsSold:     sold,
			ObservedAt: now.AddDate(0, 0, -(i % 20)),
		})
	}
}

func newTestOrchestrator(f *fakeStore, now time.Time) *Orchestrator {
	o := NewOrchestrator(f, DefaultParams())
	o.now = func() time.Time { return now }
	return o
}

func TestOrchestrator_ComputeProduct_HappyPath(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.addProduct("p1")
	seedObservations(f, "p1", now, 15, true)

	o := newTestOrchestrator(f, now)
	if err := o.ComputeProduct(context.Background(), "p1"); err != nil {
		t.Fatalf("ComputeProduct: %v", err)
	}

	m, _ := f.LatestDailyMetrics(context.Background(), "p1")
	if m == nil {
		t.Fatal("daily metrics were not written")
	}
	if m.Date != "2026-08-15" {
		t.Errorf("metrics date = %q, want 2026-08-15", m.Date)
	}

	rec, _ := f.GetPMN(context.Background(), "p1")
	if rec == nil {
		t.Fatal("price normal was not written")
	}
	if rec.Methodology.DataSource != "sold_items_90d" {
		t.Errorf("data source = %q, want sold_items_90d", rec.Methodology.DataSource)
	}
	if !rec.LastComputedAt.Equal(now) {
		t.Errorf("last_computed_at = %v, want %v", rec.LastComputedAt, now)
	}
}

func TestOrchestrator_InsufficientData_NoWrites(t *testing.T) {
	f := newFakeStore()
	f.addProduct("empty")
	o := newTestOrchestrator(f, time.Now())

	err := o.ComputeProduct(context.Background(), "empty")
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
	if len(f.metrics) != 0 || len(f.pmns) != 0 {
		t.Errorf("writes happened for an empty product: %d metrics, %d pmns", len(f.metrics), len(f.pmns))
	}
}

func TestOrchestrator_PMNInsufficiencyPreservesPriorRecord(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.addProduct("p1")
	// Two observations: enough to aggregate, too few for a price normal.
	seedObservations(f, "p1", now, 2, false)

	prior := PMNRecord{ProductID: "p1", PMN: 111, PMNLow: 100, PMNHigh: 122, LastComputedAt: now.AddDate(0, 0, -3)}
	f.UpsertPMN(context.Background(), prior)

	o := newTestOrchestrator(f, now)
	err := o.ComputeProduct(context.Background(), "p1")
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}

	// Metrics for today were still written; the prior normal stayed intact.
	if m, _ := f.LatestDailyMetrics(context.Background(), "p1"); m == nil {
		t.Error("daily metrics missing after a metrics-only run")
	}
	rec, _ := f.GetPMN(context.Background(), "p1")
	if rec == nil || rec.PMN != 111 {
		t.Errorf("prior price normal was touched: %+v", rec)
	}
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	now := time.Now()
	f := newFakeStore()
	f.addProduct("p1")
	seedObservations(f, "p1", now, 10, true)
	f.obsGate = make(chan struct{})

	o := newTestOrchestrator(f, now)

	done := make(chan error, 1)
	go func() { done <- o.ComputeProduct(context.Background(), "p1") }()

	// Wait for the first computation to hold the lease.
	for !o.leases.Held("p1") {
		time.Sleep(time.Millisecond)
	}

	if err := o.ComputeProduct(context.Background(), "p1"); !errors.Is(err, ErrAlreadyComputing) {
		t.Fatalf("duplicate request: err = %v, want ErrAlreadyComputing", err)
	}

	close(f.obsGate)
	if err := <-done; err != nil {
		t.Fatalf("first computation failed: %v", err)
	}

	// Lease is released afterwards; a fresh request goes through.
	f.obsGate = nil
	if err := o.ComputeProduct(context.Background(), "p1"); err != nil {
		t.Fatalf("recompute after release: %v", err)
	}
}

func TestOrchestrator_BatchPartialFailure(t *testing.T) {
	now := time.Now()
	f := newFakeStore()
	for _, id := range []string{"a", "b", "c"} {
		f.addProduct(id)
	}
	seedObservations(f, "a", now, 12, true)
	seedObservations(f, "c", now, 12, true)
	// "b" has zero observations.

	o := newTestOrchestrator(f, now)
	outcomes, err := o.ComputeAll(context.Background())
	if err != nil {
		t.Fatalf("ComputeAll: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}

	byStatus := map[string]int{}
	for _, oc := range outcomes {
		byStatus[oc.Status]++
		if oc.Status == OutcomeInsufficientData && oc.ProductID != "b" {
			t.Errorf("wrong product flagged insufficient: %s", oc.ProductID)
		}
	}
	if byStatus[OutcomeSuccess] != 2 || byStatus[OutcomeInsufficientData] != 1 {
		t.Errorf("status counts = %v, want 2 success / 1 insufficient_data", byStatus)
	}

	last, _ := o.LastBatch()
	if len(last) != 3 {
		t.Errorf("LastBatch len = %d, want 3", len(last))
	}
}

func TestOrchestrator_Idempotent(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	f := newFakeStore()
	f.addProduct("p1")
	seedObservations(f, "p1", now, 14, true)

	o := newTestOrchestrator(f, now)
	if err := o.ComputeProduct(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	firstMetrics, _ := f.LatestDailyMetrics(context.Background(), "p1")
	firstPMN, _ := f.GetPMN(context.Background(), "p1")

	if err := o.ComputeProduct(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	secondMetrics, _ := f.LatestDailyMetrics(context.Background(), "p1")
	secondPMN, _ := f.GetPMN(context.Background(), "p1")

	if *firstMetrics != *secondMetrics {
		t.Errorf("metrics changed across identical runs:\n%+v\n%+v", firstMetrics, secondMetrics)
	}
	if *firstPMN != *secondPMN {
		t.Errorf("price normal changed across identical runs:\n%+v\n%+v", firstPMN, secondPMN)
	}
}

func TestOrchestrator_ProductStateTransitions(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	f := newFakeStore()
	f.addProduct("p1")
	seedObservations(f, "p1", now, 10, true)

	o := newTestOrchestrator(f, now)

	state, err := o.ProductState(ctx, "p1")
	if err != nil || state != StateUncomputed {
		t.Fatalf("initial state = %v (%v), want uncomputed", state, err)
	}

	if err := o.ComputeProduct(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	state, _ = o.ProductState(ctx, "p1")
	if state != StateComputed {
		t.Fatalf("state after compute = %v, want computed", state)
	}

	// A newer observation flips the state to stale (informational only).
	f.mu.Lock()
	f.obs["p1"] = append(f.obs["p1"], Observation{
		ObsID: 999, ProductID: "p1", Source: "ebay", Price: 120,
		ObservedAt: now.Add(time.Hour),
	})
	f.mu.Unlock()

	state, _ = o.ProductState(ctx, "p1")
	if state != StateStale {
		t.Fatalf("state after new observation = %v, want stale", state)
	}
}

func TestOrchestrator_StatusSummary(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	f := newFakeStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		f.addProduct(id)
	}
	seedObservations(f, "a", now, 12, true)
	seedObservations(f, "b", now, 12, true)

	o := newTestOrchestrator(f, now)
	if _, err := o.ComputeAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	s, err := o.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if s.TotalActiveProducts != 4 {
		t.Errorf("total = %d, want 4", s.TotalActiveProducts)
	}
	if s.ProductsWithPMN != 2 {
		t.Errorf("with pmn = %d, want 2", s.ProductsWithPMN)
	}
	if s.ProductsWithMetricsToday != 2 {
		t.Errorf("metrics today = %d, want 2", s.ProductsWithMetricsToday)
	}
	if s.CoveragePct != 50 {
		t.Errorf("coverage = %v, want 50", s.CoveragePct)
	}
	if s.LastComputedAt == nil {
		t.Error("last_computed_at missing")
	}
	if s.MeanLiquidityScore <= 0 {
		t.Errorf("mean liquidity = %v, want > 0", s.MeanLiquidityScore)
	}
}

func TestOrchestrator_Opportunity(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	f := newFakeStore()
	f.addProduct("p1")
	seedObservations(f, "p1", now, 15, true)

	o := newTestOrchestrator(f, now)

	// Before any computation: explicit no-pmn failure, not a degraded score.
	if _, err := o.Opportunity(ctx, 1); !errors.Is(err, ErrNoPMN) {
		t.Fatalf("pre-compute err = %v, want ErrNoPMN", err)
	}

	if err := o.ComputeProduct(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	score, err := o.Opportunity(ctx, 1)
	if err != nil {
		t.Fatalf("Opportunity: %v", err)
	}
	if score.Total < 0 || score.Total > 100 {
		t.Errorf("total = %v, out of range", score.Total)
	}
	if score.Recommendation == "" {
		t.Error("recommendation is empty")
	}

	if _, err := o.Opportunity(ctx, 424242); !errors.Is(err, ErrObservationNotFound) {
		t.Fatalf("unknown obs err = %v, want ErrObservationNotFound", err)
	}
}
