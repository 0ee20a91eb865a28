// Package valuation combines holdings, latest prices, and currency
// conversion into point-in-time portfolio valuations and unrealized P&L.
// A holding without a usable price is reported in the snapshot's unpriced
// list, never silently dropped and never an error.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-backend/internal/domain"
	"github.com/simaogato/portfolio-backend/internal/usecase/converter"
)

// Unpriced reasons reported in the snapshot
const (
	ReasonNoPrice         = "no_price"
	ReasonRateUnavailable = "rate_unavailable"
	ReasonAssetNotFound   = "asset_not_found"
)

// Converter converts an amount between currencies using resolved rates
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Service implements the valuation engine
type Service struct {
	assets    domain.AssetRepository
	prices    domain.PriceStore
	converter Converter
}

// NewService creates a valuation engine
func NewService(assets domain.AssetRepository, prices domain.PriceStore, conv Converter) *Service {
	return &Service{
		assets:    assets,
		prices:    prices,
		converter: conv,
	}
}

// Valuate computes a valuation snapshot for the given holdings in the base
// currency. The computation is idempotent: unchanged holdings and prices
// yield identical values, and the aggregate total never depends on
// iteration order. Infrastructure failures (store/repository errors other
// than absence) abort the whole snapshot.
func (s *Service) Valuate(ctx context.Context, holdings []*domain.Holding, baseCurrency string) (*domain.ValuationSnapshot, error) {
	base := strings.ToUpper(strings.TrimSpace(baseCurrency))

	snapshot := &domain.ValuationSnapshot{
		BaseCurrency: base,
		Timestamp:    time.Now().UTC(),
		Total:        decimal.Zero,
	}

	for _, holding := range holdings {
		asset, err := s.assets.GetByID(ctx, holding.AssetID)
		if err != nil {
			// referenced assets are never deleted; a missing row is a data
			// problem worth surfacing per-holding, not a crash
			snapshot.Unpriced = append(snapshot.Unpriced, domain.UnpricedHolding{
				Holding: holding,
				Reason:  ReasonAssetNotFound,
			})
			continue
		}

		unit, priceCurrency, asOf, reason, err := s.unitPrice(ctx, asset, base)
		if err != nil {
			return nil, fmt.Errorf("failed to price holding %s: %w", asset.Symbol, err)
		}
		if reason != "" {
			snapshot.Unpriced = append(snapshot.Unpriced, domain.UnpricedHolding{
				Holding: holding,
				Asset:   asset,
				Reason:  reason,
			})
			continue
		}

		hv := domain.HoldingValuation{
			Holding:       holding,
			Asset:         asset,
			UnitPrice:     unit,
			Value:         holding.Quantity.Mul(unit),
			PriceCurrency: priceCurrency,
			PriceAsOf:     asOf,
		}

		if holding.HasCostBasis() {
			cost, err := s.converter.Convert(ctx, holding.AvgCost, holding.CostCurrency, base)
			switch {
			case err == nil:
				hv.UnrealizedPnL = unit.Sub(cost).Mul(holding.Quantity)
				hv.HasCostBasis = true
			case isRateUnavailable(err):
				// cost basis in an unconvertible currency: value the
				// holding but omit P&L
			default:
				return nil, fmt.Errorf("failed to convert cost basis for %s: %w", asset.Symbol, err)
			}
		}

		snapshot.Holdings = append(snapshot.Holdings, hv)
		snapshot.Total = snapshot.Total.Add(hv.Value)
	}

	// deterministic presentation order: largest positions first
	sort.SliceStable(snapshot.Holdings, func(i, j int) bool {
		if c := snapshot.Holdings[i].Value.Cmp(snapshot.Holdings[j].Value); c != 0 {
			return c > 0
		}
		return snapshot.Holdings[i].Asset.Symbol < snapshot.Holdings[j].Asset.Symbol
	})
	sort.SliceStable(snapshot.Unpriced, func(i, j int) bool {
		return unpricedSymbol(snapshot.Unpriced[i]) < unpricedSymbol(snapshot.Unpriced[j])
	})

	return snapshot, nil
}

// unitPrice returns the per-unit price of an asset in the base currency,
// converting from the stored price's native currency when no base-currency
// price exists. An empty reason means the price is usable; a non-empty
// reason marks the holding unpriced.
func (s *Service) unitPrice(ctx context.Context, asset *domain.Asset, base string) (decimal.Decimal, string, time.Time, string, error) {
	price, err := s.prices.GetLatest(ctx, asset.ID, base)
	if err == nil {
		return price.Value, price.Currency, price.AsOf, "", nil
	}
	if !errors.Is(err, domain.ErrPriceNotFound) {
		return decimal.Decimal{}, "", time.Time{}, "", err
	}

	price, err = s.prices.GetLatestAny(ctx, asset.ID)
	if err != nil {
		if errors.Is(err, domain.ErrPriceNotFound) {
			return decimal.Decimal{}, "", time.Time{}, ReasonNoPrice, nil
		}
		return decimal.Decimal{}, "", time.Time{}, "", err
	}

	converted, err := s.converter.Convert(ctx, price.Value, price.Currency, base)
	if err != nil {
		if isRateUnavailable(err) {
			return decimal.Decimal{}, "", time.Time{}, ReasonRateUnavailable, nil
		}
		return decimal.Decimal{}, "", time.Time{}, "", err
	}
	return converted, price.Currency, price.AsOf, "", nil
}

// unpricedSymbol orders unpriced entries; entries whose asset lookup
// failed sort by holding id rendered as a string
func unpricedSymbol(u domain.UnpricedHolding) string {
	if u.Asset != nil {
		return u.Asset.Symbol
	}
	return u.Holding.ID.String()
}

// isRateUnavailable reports whether an error is a missing-rate conversion
// failure rather than an infrastructure one
func isRateUnavailable(err error) bool {
	var cerr *converter.Error
	return errors.As(err, &cerr) && cerr.Kind == converter.KindRateUnavailable
}
