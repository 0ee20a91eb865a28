package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPrice_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		price   Price
		wantErr bool
		errMsg  string
	}{
		{
			name: "Valid price should pass",
			price: Price{
				ID:       uuid.New(),
				AssetID:  1,
				Currency: "USD",
				Value:    decimal.NewFromInt(30000),
				AsOf:     now,
				Source:   "coingecko(bitcoin->USD)",
			},
			wantErr: false,
		},
		{
			name: "Zero value should fail",
			price: Price{
				ID:       uuid.New(),
				AssetID:  1,
				Currency: "USD",
				Value:    decimal.Zero,
				AsOf:     now,
			},
			wantErr: true,
			errMsg:  "price value must be positive",
		},
		{
			name: "Negative value should fail",
			price: Price{
				ID:       uuid.New(),
				AssetID:  1,
				Currency: "USD",
				Value:    decimal.NewFromInt(-1),
				AsOf:     now,
			},
			wantErr: true,
			errMsg:  "price value must be positive",
		},
		{
			name: "Missing currency should fail",
			price: Price{
				ID:      uuid.New(),
				AssetID: 1,
				Value:   decimal.NewFromInt(10),
				AsOf:    now,
			},
			wantErr: true,
			errMsg:  "price currency cannot be empty",
		},
		{
			name: "Missing asset should fail",
			price: Price{
				ID:       uuid.New(),
				Currency: "USD",
				Value:    decimal.NewFromInt(10),
				AsOf:     now,
			},
			wantErr: true,
			errMsg:  "price must reference an asset",
		},
		{
			name: "Zero timestamp should fail",
			price: Price{
				ID:       uuid.New(),
				AssetID:  1,
				Currency: "USD",
				Value:    decimal.NewFromInt(10),
			},
			wantErr: true,
			errMsg:  "price timestamp cannot be zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.price.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
