package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-backend/internal/domain"
)

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

// List retrieves all holdings
func (r *holdingRepository) List(ctx context.Context) ([]*domain.Holding, error) {
	query := `
		SELECT id, asset_id, account, quantity, avg_cost, cost_currency
		FROM holdings
		ORDER BY account, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]*domain.Holding, 0)
	for rows.Next() {
		var holding domain.Holding
		var quantityStr, avgCostStr string

		err := rows.Scan(
			&holding.ID,
			&holding.AssetID,
			&holding.Account,
			&quantityStr,
			&avgCostStr,
			&holding.CostCurrency,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}

		holding.Quantity, err = decimal.NewFromString(quantityStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		holding.AvgCost, err = decimal.NewFromString(avgCostStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse avg_cost: %w", err)
		}

		holdings = append(holdings, &holding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}
	return holdings, nil
}

// Create creates a new holding
func (r *holdingRepository) Create(ctx context.Context, holding *domain.Holding) error {
	query := `
		INSERT INTO holdings (id, asset_id, account, quantity, avg_cost, cost_currency)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		holding.ID,
		holding.AssetID,
		holding.Account,
		holding.Quantity.String(),
		holding.AvgCost.String(),
		holding.CostCurrency,
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}
	return nil
}
