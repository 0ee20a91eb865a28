package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/portfolio-backend/internal/domain"
)

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{db: db}
}

// GetByID retrieves an asset by its ID
func (r *assetRepository) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	query := `
		SELECT id, symbol, asset_type, source_ref, native_currency
		FROM assets
		WHERE id = $1
	`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get asset by ID: %w", err)
	}
	return asset, nil
}

// GetBySymbol retrieves an asset by symbol, case-insensitively
func (r *assetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	query := `
		SELECT id, symbol, asset_type, source_ref, native_currency
		FROM assets
		WHERE UPPER(symbol) = UPPER($1)
	`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get asset by symbol: %w", err)
	}
	return asset, nil
}

// List retrieves all assets ordered by symbol
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT id, symbol, asset_type, source_ref, native_currency
		FROM assets
		ORDER BY symbol
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	assets := make([]*domain.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}
	return assets, nil
}

// Create creates a new asset and fills in its generated ID
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (symbol, asset_type, source_ref, native_currency)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		asset.Symbol,
		asset.Type,
		asset.SourceRef,
		asset.NativeCurrency,
	).Scan(&asset.ID)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// UpdateSourceRef persists a resolved provider reference so later
// polls skip the search step
func (r *assetRepository) UpdateSourceRef(ctx context.Context, id int64, sourceRef string) error {
	query := `
		UPDATE assets
		SET source_ref = $2
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, sourceRef)
	if err != nil {
		return fmt.Errorf("failed to update source ref: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("asset not found: %d", id)
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(s scanner) (*domain.Asset, error) {
	var asset domain.Asset
	err := s.Scan(
		&asset.ID,
		&asset.Symbol,
		&asset.Type,
		&asset.SourceRef,
		&asset.NativeCurrency,
	)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}
