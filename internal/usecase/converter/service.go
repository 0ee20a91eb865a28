// Package converter converts amounts between currencies using resolved
// exchange-rate prices. Rates are ordinary assets priced through the same
// pipeline as everything else (pair symbol "USDGBP" priced in GBP); the
// converter never fabricates a rate.
package converter

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-backend/internal/domain"
)

// Kind classifies conversion failures
type Kind string

const (
	// KindRateUnavailable means no resolved exchange-rate price exists
	// for the requested pair, directly or via the configured fallbacks
	KindRateUnavailable Kind = "rate_unavailable"
)

// Error is a conversion failure
type Error struct {
	Kind Kind
	From string
	To   string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("convert %s->%s: %s", e.From, e.To, e.Kind)
}

var one = decimal.NewFromInt(1)

// Service implements the currency converter
type Service struct {
	assets domain.AssetRepository
	prices domain.PriceStore
}

// NewService creates a currency converter
func NewService(assets domain.AssetRepository, prices domain.PriceStore) *Service {
	return &Service{
		assets: assets,
		prices: prices,
	}
}

// Convert converts an amount between currencies using the latest resolved
// exchange rate. Identity conversions never touch the store. Rate lookup
// order: direct pair, inverted reverse pair, triangulation through USD.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == to {
		return amount, nil
	}

	rate, err := s.rate(ctx, from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(rate), nil
}

// rate returns the latest exchange rate from -> to
func (s *Service) rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if rate, ok := s.pairRate(ctx, from, to); ok {
		return rate, nil
	}

	// reverse pair, inverted
	if rate, ok := s.pairRate(ctx, to, from); ok {
		return one.Div(rate), nil
	}

	// triangulate through USD; each leg resolves as direct-or-inverted
	// only, so this cannot recurse further
	if from != "USD" && to != "USD" {
		toUSD, err := s.rate(ctx, from, "USD")
		if err == nil {
			fromUSD, err := s.rate(ctx, "USD", to)
			if err == nil {
				return toUSD.Mul(fromUSD), nil
			}
		}
	}

	return decimal.Decimal{}, &Error{Kind: KindRateUnavailable, From: from, To: to}
}

// pairRate looks up the latest stored price for the pair asset
// base+quote (e.g. "USDGBP"), which is quoted in the quote currency
func (s *Service) pairRate(ctx context.Context, base, quote string) (decimal.Decimal, bool) {
	asset, err := s.assets.GetBySymbol(ctx, base+quote)
	if err != nil {
		return decimal.Decimal{}, false
	}

	price, err := s.prices.GetLatest(ctx, asset.ID, quote)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if !price.Value.IsPositive() {
		return decimal.Decimal{}, false
	}
	return price.Value, true
}
