package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func obsAt(now time.Time, daysAgo int, price float64, sold bool) Observation {
	return Observation{
		ProductID:  "p1",
		Source:     "ebay",
		Price:      price,
		IsSold:     sold,
		ObservedAt: now.AddDate(0, 0, -daysAgo),
	}
}

func TestAggregate_NoObservations(t *testing.T) {
	_, err := Aggregate("p1", nil, time.Now(), DefaultParams())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestAggregate_SoldCounts(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	obs := []Observation{
		obsAt(now, 1, 100, true),   // in 7d and 30d
		obsAt(now, 6, 100, true),   // in 7d and 30d
		obsAt(now, 10, 100, true),  // 30d only
		obsAt(now, 29, 100, true),  // 30d only
		obsAt(now, 45, 100, true),  // 90d only
		obsAt(now, 120, 100, true), // outside window, ignored
		obsAt(now, 2, 100, false),  // active, not a sale
	}

	res, err := Aggregate("p1", obs, now, DefaultParams())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Metrics.SoldCount7d != 2 {
		t.Errorf("sold_count_7d = %d, want 2", res.Metrics.SoldCount7d)
	}
	if res.Metrics.SoldCount30d != 4 {
		t.Errorf("sold_count_30d = %d, want 4", res.Metrics.SoldCount30d)
	}
	if res.ActiveListings != 1 {
		t.Errorf("active listings = %d, want 1", res.ActiveListings)
	}
	if res.Metrics.Date != "2026-08-15" {
		t.Errorf("date = %q, want 2026-08-15", res.Metrics.Date)
	}
}

func TestAggregate_SoldFirstSourceSelection(t *testing.T) {
	now := time.Now()

	// 10 sold observations: sold prices alone feed the stats.
	var obs []Observation
	for i := 0; i < 10; i++ {
		obs = append(obs, obsAt(now, i+1, 100+float64(i), true))
	}
	obs = append(obs, obsAt(now, 1, 999, false)) // active price must be excluded

	res, err := Aggregate("p1", obs, now, DefaultParams())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.DataSource != "sold_items_90d" {
		t.Errorf("data source = %q, want sold_items_90d", res.DataSource)
	}
	if len(res.Sample) != 10 {
		t.Errorf("sample size = %d, want 10 (sold only)", len(res.Sample))
	}
	for _, pt := range res.Sample {
		if pt.Price == 999 {
			t.Error("active price leaked into a sold-sourced sample")
		}
	}
}

func TestAggregate_ActiveFallback(t *testing.T) {
	now := time.Now()

	// Only 3 sold observations: below the threshold, actives join the sample.
	obs := []Observation{
		obsAt(now, 1, 100, true),
		obsAt(now, 2, 105, true),
		obsAt(now, 3, 110, true),
		obsAt(now, 1, 120, false),
		obsAt(now, 2, 125, false),
	}

	res, err := Aggregate("p1", obs, now, DefaultParams())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if want := "sold_3_active_2"; res.DataSource != want {
		t.Errorf("data source = %q, want %q", res.DataSource, want)
	}
	if len(res.Sample) != 5 {
		t.Errorf("sample size = %d, want 5 (sold + active)", len(res.Sample))
	}
}

func TestAggregate_PriceStats(t *testing.T) {
	now := time.Now()
	var obs []Observation
	for i, price := range []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100} {
		obs = append(obs, obsAt(now, i+1, price, true))
	}

	res, err := Aggregate("p1", obs, now, DefaultParams())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	m := res.Metrics
	if m.PriceMedian != 55 {
		t.Errorf("median = %v, want 55", m.PriceMedian)
	}
	if m.PriceP25 != 32.5 {
		t.Errorf("p25 = %v, want 32.5", m.PriceP25)
	}
	if m.PriceP75 != 77.5 {
		t.Errorf("p75 = %v, want 77.5", m.PriceP75)
	}
	if m.PriceStd <= 0 {
		t.Errorf("std = %v, want > 0", m.PriceStd)
	}
	if m.LiquidityScore <= 0 || m.LiquidityScore > 100 {
		t.Errorf("liquidity = %v, want within (0, 100]", m.LiquidityScore)
	}
}

func TestAggregate_TrendScore(t *testing.T) {
	now := time.Now()
	var obs []Observation
	// Old sales around 100, recent sales around 150: upward trend.
	for i := 0; i < 6; i++ {
		obs = append(obs, obsAt(now, 60+i, 100, true))
	}
	for i := 0; i < 6; i++ {
		obs = append(obs, obsAt(now, 1+i, 150, true))
	}

	res, err := Aggregate("p1", obs, now, DefaultParams())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Metrics.TrendScore <= 1 {
		t.Errorf("trend = %v, want > 1 for rising prices", res.Metrics.TrendScore)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	now := time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC)
	var obs []Observation
	for i := 0; i < 12; i++ {
		obs = append(obs, obsAt(now, i+1, 100+float64(i%5), i%2 == 0))
	}

	a, err := Aggregate("p1", obs, now, DefaultParams())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := Aggregate("p1", obs, now, DefaultParams())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if fmt.Sprintf("%+v", a.Metrics) != fmt.Sprintf("%+v", b.Metrics) {
		t.Errorf("metrics differ across identical runs:\n%+v\n%+v", a.Metrics, b.Metrics)
	}
}
