package domain

import (
	"context"
)

// AssetRepository defines the interface for asset persistence operations
type AssetRepository interface {
	// GetByID retrieves an asset by its ID
	GetByID(ctx context.Context, id int64) (*Asset, error)

	// GetBySymbol retrieves an asset by its symbol (case-insensitive)
	GetBySymbol(ctx context.Context, symbol string) (*Asset, error)

	// List retrieves all assets
	List(ctx context.Context) ([]*Asset, error)

	// Create creates a new asset and fills in its generated ID
	Create(ctx context.Context, asset *Asset) error

	// UpdateSourceRef persists a normalization fix-up for an asset's
	// source reference. This is the only mutation path for SourceRef.
	UpdateSourceRef(ctx context.Context, id int64, sourceRef string) error
}

// HoldingRepository defines the interface for holding persistence operations
type HoldingRepository interface {
	// List retrieves all holdings
	List(ctx context.Context) ([]*Holding, error)

	// Create creates a new holding
	Create(ctx context.Context, holding *Holding) error
}

// PriceStore defines the interface for latest-price persistence.
// It is the only shared mutable resource in the engine; all writers go
// through the compare-and-write Upsert, making concurrent writers safe
// without a global lock.
type PriceStore interface {
	// Upsert writes the price for its (asset, currency) key only if its
	// AsOf timestamp is strictly newer than the stored row's. Returns
	// false when the stored row was newer or equal and was kept.
	Upsert(ctx context.Context, price *Price) (bool, error)

	// GetLatest retrieves the authoritative price for (assetID, currency).
	// Returns ErrPriceNotFound when none exists.
	GetLatest(ctx context.Context, assetID int64, currency string) (*Price, error)

	// GetLatestAny retrieves the most recent price for the asset in any
	// currency. Returns ErrPriceNotFound when the asset has no price at all.
	GetLatestAny(ctx context.Context, assetID int64) (*Price, error)
}
