package engine

import "errors"

// Sentinel errors for the computation pipeline. Callers match with errors.Is.
var (
	// ErrInsufficientData is returned when a product has too few
	// observations (or price points) to compute anything meaningful.
	// It is recoverable: the run is skipped and reported, nothing is written.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnknownMarketplace is returned when a marketplace identifier has
	// no entry in the fee table. The margin computation is rejected rather
	// than silently falling back to default fees.
	ErrUnknownMarketplace = errors.New("unknown marketplace")

	// ErrNoPMN is returned when an opportunity score is requested for a
	// product that has no computed price normal yet. Callers must trigger
	// a computation first.
	ErrNoPMN = errors.New("no price normal computed")

	// ErrAlreadyComputing is the single-flight rejection: a computation for
	// this product is already in flight.
	ErrAlreadyComputing = errors.New("already computing")

	// ErrProductNotFound is returned for unknown product identifiers.
	ErrProductNotFound = errors.New("product not found")

	// ErrObservationNotFound is returned for unknown observation identifiers.
	ErrObservationNotFound = errors.New("observation not found")

	// ErrInvalidInput is returned for non-positive prices or price normals.
	ErrInvalidInput = errors.New("invalid input")
)
