package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingValuation is the point-in-time value of a single priced holding,
// expressed in the snapshot's base currency.
type HoldingValuation struct {
	Holding *Holding
	Asset   *Asset

	UnitPrice decimal.Decimal // per-unit price in base currency
	Value     decimal.Decimal // Quantity x UnitPrice

	// Provenance of the underlying stored price. PriceCurrency differs from
	// the base currency when the value was converted at read time.
	PriceCurrency string
	PriceAsOf     time.Time

	// UnrealizedPnL = (UnitPrice - average cost in base currency) x Quantity.
	// Only meaningful when HasCostBasis is true.
	UnrealizedPnL decimal.Decimal
	HasCostBasis  bool
}

// UnpricedHolding is a holding excluded from the snapshot total because no
// usable price exists for its asset. Exclusion is explicit and visible,
// never silent.
type UnpricedHolding struct {
	Holding *Holding
	Asset   *Asset
	Reason  string // e.g. "no_price", "rate_unavailable"
}

// ValuationSnapshot is a computed, point-in-time view of portfolio value
// and P&L. It is recomputed on every request from current holdings and
// prices and is never itself a source of truth.
type ValuationSnapshot struct {
	BaseCurrency string
	Timestamp    time.Time
	Holdings     []HoldingValuation
	Unpriced     []UnpricedHolding
	Total        decimal.Decimal // sum of priced holdings' values only
}
