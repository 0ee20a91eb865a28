// Package seeder populates an empty installation with a small demo
// portfolio so the poller and valuation have something to work on
// out of the box.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-backend/internal/domain"
)

// demoAsset defines an asset to be seeded together with its demo holding
type demoAsset struct {
	Symbol         string
	Type           domain.AssetType
	SourceRef      string
	NativeCurrency string
	Quantity       decimal.Decimal
}

// demoAccount is the account name attached to seeded holdings
const demoAccount = "Demo"

// DemoSeeder seeds demo assets and holdings into an empty installation
type DemoSeeder struct {
	assets   domain.AssetRepository
	holdings domain.HoldingRepository
	logger   *slog.Logger
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(assets domain.AssetRepository, holdings domain.HoldingRepository, logger *slog.Logger) *DemoSeeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DemoSeeder{
		assets:   assets,
		holdings: holdings,
		logger:   logger,
	}
}

// Seed creates the demo portfolio. It is a no-op when any holdings
// already exist, so restarting the daemon never duplicates data.
func (s *DemoSeeder) Seed(ctx context.Context) error {
	existing, err := s.holdings.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing holdings: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	demo := []demoAsset{
		{Symbol: "BTC", Type: domain.AssetTypeCrypto, SourceRef: "bitcoin", Quantity: decimal.RequireFromString("0.05")},
		{Symbol: "XMR", Type: domain.AssetTypeCrypto, SourceRef: "monero", Quantity: decimal.RequireFromString("2.0")},
		{Symbol: "XAG", Type: domain.AssetTypeMetal, SourceRef: "", Quantity: decimal.RequireFromString("10.0")},
		{Symbol: "AAPL", Type: domain.AssetTypeEquity, SourceRef: "AAPL", NativeCurrency: "USD", Quantity: decimal.RequireFromString("3.0")},
	}

	for _, d := range demo {
		asset, err := s.ensureAsset(ctx, d)
		if err != nil {
			return err
		}

		holding := &domain.Holding{
			ID:       uuid.New(),
			AssetID:  asset.ID,
			Account:  demoAccount,
			Quantity: d.Quantity,
		}
		if err := holding.Validate(); err != nil {
			return err
		}
		if err := s.holdings.Create(ctx, holding); err != nil {
			return fmt.Errorf("failed to seed holding for %s: %w", d.Symbol, err)
		}
	}

	// exchange-rate pair for converting USD quotes into a GBP base;
	// priced through the regular poll cycle like any other asset
	if _, err := s.ensureAsset(ctx, demoAsset{
		Symbol:    "USDGBP",
		Type:      domain.AssetTypeEquity,
		SourceRef: "USDGBP=X",
	}); err != nil {
		return err
	}

	s.logger.Info("seeded demo portfolio", slog.Int("holdings", len(demo)))
	return nil
}

// ensureAsset returns the existing asset with the given symbol or
// creates it
func (s *DemoSeeder) ensureAsset(ctx context.Context, d demoAsset) (*domain.Asset, error) {
	if asset, err := s.assets.GetBySymbol(ctx, d.Symbol); err == nil {
		return asset, nil
	}

	asset := &domain.Asset{
		Symbol:         d.Symbol,
		Type:           d.Type,
		SourceRef:      d.SourceRef,
		NativeCurrency: d.NativeCurrency,
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to seed asset %s: %w", d.Symbol, err)
	}
	return asset, nil
}
