package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrPriceNotFound is returned by price stores when no price exists for a
// lookup key. Absence of a price is a first-class state, never a crash.
var ErrPriceNotFound = errors.New("price not found")

// Price represents the last successfully resolved price for an
// (asset, currency) pair. Only the most recent price per pair is
// authoritative for valuation; stores must reject writes whose AsOf is not
// strictly newer than the stored row's (monotonicity invariant).
type Price struct {
	ID       uuid.UUID
	AssetID  int64
	Currency string // quote currency, e.g. "GBP"
	Value    decimal.Decimal
	AsOf     time.Time
	Source   string // provenance, e.g. "coingecko(monero->GBP)"
}

// Validate ensures the price adheres to domain rules
// Returns an error if validation fails
func (p *Price) Validate() error {
	if p.AssetID == 0 {
		return errors.New("price must reference an asset")
	}
	if p.Currency == "" {
		return errors.New("price currency cannot be empty")
	}
	if !p.Value.IsPositive() {
		return errors.New("price value must be positive")
	}
	if p.AsOf.IsZero() {
		return errors.New("price timestamp cannot be zero")
	}
	return nil
}
