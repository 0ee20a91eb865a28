package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-backend/internal/domain"
)

// priceStore implements domain.PriceStore on top of two tables: a
// latest_prices row per (asset, currency) that only ever moves forward
// in time, and an append-only price_history of accepted writes.
type priceStore struct {
	db *DB
}

// NewPriceStore creates a new Postgres price store
func NewPriceStore(db *DB) domain.PriceStore {
	return &priceStore{db: db}
}

// Upsert writes a price if it is strictly newer than the stored one
// for the same (asset, currency). The conflict clause makes the
// compare-and-write atomic; concurrent writers cannot move as_of
// backwards. Returns whether the write was accepted.
func (r *priceStore) Upsert(ctx context.Context, price *domain.Price) (bool, error) {
	query := `
		INSERT INTO latest_prices (asset_id, currency, id, value, as_of, source)
		VALUES ($1, UPPER($2), $3, $4, $5, $6)
		ON CONFLICT (asset_id, currency) DO UPDATE
		SET id = EXCLUDED.id,
		    value = EXCLUDED.value,
		    as_of = EXCLUDED.as_of,
		    source = EXCLUDED.source
		WHERE EXCLUDED.as_of > latest_prices.as_of
	`

	result, err := r.db.ExecContext(ctx, query,
		price.AssetID,
		price.Currency,
		price.ID,
		price.Value.String(),
		price.AsOf,
		price.Source,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert latest price: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check upsert result: %w", err)
	}
	if affected == 0 {
		// stale write, discarded
		return false, nil
	}

	historyQuery := `
		INSERT INTO price_history (id, asset_id, currency, value, as_of, source)
		VALUES ($1, $2, UPPER($3), $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, historyQuery,
		price.ID,
		price.AssetID,
		price.Currency,
		price.Value.String(),
		price.AsOf,
		price.Source,
	)
	if err != nil {
		return false, fmt.Errorf("failed to append price history: %w", err)
	}
	return true, nil
}

// GetLatest retrieves the latest price of an asset in a specific currency
func (r *priceStore) GetLatest(ctx context.Context, assetID int64, currency string) (*domain.Price, error) {
	query := `
		SELECT id, asset_id, currency, value, as_of, source
		FROM latest_prices
		WHERE asset_id = $1 AND currency = UPPER($2)
	`

	price, err := scanPrice(r.db.QueryRowContext(ctx, query, assetID, currency))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPriceNotFound
		}
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	return price, nil
}

// GetLatestAny retrieves the freshest price of an asset in whatever
// currency it was last quoted
func (r *priceStore) GetLatestAny(ctx context.Context, assetID int64) (*domain.Price, error) {
	query := `
		SELECT id, asset_id, currency, value, as_of, source
		FROM latest_prices
		WHERE asset_id = $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	price, err := scanPrice(r.db.QueryRowContext(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPriceNotFound
		}
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	return price, nil
}

func scanPrice(s scanner) (*domain.Price, error) {
	var price domain.Price
	var valueStr string

	err := s.Scan(
		&price.ID,
		&price.AssetID,
		&price.Currency,
		&valueStr,
		&price.AsOf,
		&price.Source,
	)
	if err != nil {
		return nil, err
	}

	price.Value, err = decimal.NewFromString(valueStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price value: %w", err)
	}
	return &price, nil
}
