package domain

import (
	"errors"
	"fmt"
	"strings"
)

// AssetType represents the class of a trackable asset
type AssetType string

const (
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeMetal  AssetType = "metal"
	AssetTypeEquity AssetType = "equity"
)

// Asset represents a trackable financial instrument in the domain layer
// SourceRef is the exact identifier string the asset's price provider requires
// (CoinGecko id for crypto, ticker for equities, spot code for metals).
// An asset with an empty SourceRef is valid to store but cannot be priced
// until normalization resolves one.
type Asset struct {
	ID             int64
	Symbol         string // e.g. "BTC", "VOD.L", "XAG"
	Type           AssetType
	SourceRef      string
	NativeCurrency string // optional hint for equity/metal quotes, e.g. "USD", "GBX"
}

// NormalizedRef is the canonical provider reference for an asset plus the
// asset type whose adapter must handle it.
type NormalizedRef struct {
	Ref  string
	Type AssetType
}

// Validate ensures the asset adheres to domain rules
// Returns an error if validation fails
func (a *Asset) Validate() error {
	if strings.TrimSpace(a.Symbol) == "" {
		return errors.New("asset symbol cannot be empty")
	}

	switch a.Type {
	case AssetTypeCrypto, AssetTypeMetal, AssetTypeEquity:
		return nil
	default:
		return fmt.Errorf("unknown asset type: %q", a.Type)
	}
}
