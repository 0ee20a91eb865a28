package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsset_Validate(t *testing.T) {
	tests := []struct {
		name    string
		asset   Asset
		wantErr bool
		errMsg  string
	}{
		{
			name: "Crypto asset with symbol should pass",
			asset: Asset{
				Symbol:    "BTC",
				Type:      AssetTypeCrypto,
				SourceRef: "bitcoin",
			},
			wantErr: false,
		},
		{
			name: "Asset without source ref is storable",
			asset: Asset{
				Symbol: "XMR",
				Type:   AssetTypeCrypto,
				// SourceRef is empty: valid to store, cannot be priced yet
			},
			wantErr: false,
		},
		{
			name: "Asset with empty symbol should fail",
			asset: Asset{
				Symbol: "   ",
				Type:   AssetTypeEquity,
			},
			wantErr: true,
			errMsg:  "asset symbol cannot be empty",
		},
		{
			name: "Asset with unknown type should fail",
			asset: Asset{
				Symbol: "GLD",
				Type:   AssetType("commodity"),
			},
			wantErr: true,
			errMsg:  "unknown asset type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.asset.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
