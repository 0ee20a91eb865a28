package domain

import (
	"fmt"
	"time"
)

// ResolutionStage identifies where in the pipeline a per-asset resolution
// failed.
type ResolutionStage string

const (
	StageNormalize ResolutionStage = "normalize"
	StageFetch     ResolutionStage = "fetch"
	StageStore     ResolutionStage = "store"
)

// PriceResult is the outcome of a successful single-asset resolution.
// Stored is false when the fetched price was discarded because the store
// already held a newer one.
type PriceResult struct {
	AssetID int64
	Symbol  string
	Price   *Price
	Stored  bool
}

// ResolutionFailure records a single asset's resolution failure with a
// typed, renderable reason. It implements error so callers can inspect it
// with errors.As.
type ResolutionFailure struct {
	AssetID int64
	Symbol  string
	Stage   ResolutionStage
	Reason  string // machine-readable kind, e.g. "ambiguous_match", "rate_limited"
	Err     error
}

// Error implements the error interface
func (f *ResolutionFailure) Error() string {
	return fmt.Sprintf("resolve %s: %s failed (%s): %v", f.Symbol, f.Stage, f.Reason, f.Err)
}

// Unwrap exposes the underlying cause
func (f *ResolutionFailure) Unwrap() error {
	return f.Err
}

// ResolutionReport aggregates the outcome of a batch resolution. One
// asset's failure never hides another's success; callers render the
// per-asset reasons to users instead of a generic failure.
type ResolutionReport struct {
	QuoteCurrency string
	StartedAt     time.Time
	Elapsed       time.Duration
	Succeeded     []PriceResult
	Failed        []ResolutionFailure
}
