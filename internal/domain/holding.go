package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holding represents a quantity of an asset owned in an account, with an
// optional cost basis. Many holdings may share an asset; a holding is
// deleted independently of its asset.
type Holding struct {
	ID       uuid.UUID
	AssetID  int64
	Account  string
	Quantity decimal.Decimal

	// Cost basis: quantity-weighted average cost per unit, in CostCurrency.
	// An empty CostCurrency means no cost basis was recorded.
	AvgCost      decimal.Decimal
	CostCurrency string
}

// HasCostBasis reports whether the holding carries a usable cost basis
func (h *Holding) HasCostBasis() bool {
	return h.CostCurrency != ""
}

// Validate ensures the holding adheres to domain rules
// Returns an error if validation fails
func (h *Holding) Validate() error {
	if h.AssetID == 0 {
		return errors.New("holding must reference an asset")
	}
	if h.Quantity.IsNegative() {
		return errors.New("holding quantity cannot be negative")
	}
	if h.HasCostBasis() && h.AvgCost.IsNegative() {
		return errors.New("holding average cost cannot be negative")
	}
	return nil
}
