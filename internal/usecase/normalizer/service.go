// Package normalizer maps a user-supplied asset (symbol + type) to the
// canonical reference string its price source expects. Normalization is
// deterministic: the same asset always yields the same canonical ref, and
// ambiguity is an error, never a guess.
package normalizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/simaogato/portfolio-backend/internal/adapter/pricesource"
	"github.com/simaogato/portfolio-backend/internal/domain"
)

// Reason classifies normalization failures
type Reason string

const (
	ReasonMissingRef     Reason = "missing_ref"
	ReasonAmbiguousMatch Reason = "ambiguous_match"
	ReasonNoMatch        Reason = "no_match"
)

// Error is a per-asset normalization failure. It never fails a whole
// batch; the resolver records it and continues with the next asset.
type Error struct {
	Reason Reason
	Symbol string
	Err    error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize %s: %s: %v", e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("normalize %s: %s", e.Symbol, e.Reason)
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Deterministic fallback mappings for well-known symbols, used when an
// asset carries no source ref.
var (
	cryptoFallback = map[string]string{
		"BTC": "bitcoin",
		"ETH": "ethereum",
		"XMR": "monero",
	}
	metalFallback = map[string]string{
		"XAG": "XAGUSD=X",
		"XAU": "XAUUSD=X",
	}
)

// Service implements the identifier normalizer
type Service struct {
	searchers map[domain.AssetType]pricesource.Searcher
}

// NewService creates a normalizer. searchers maps asset types to the
// lookup capability of their provider, for types whose provider supports
// search; missing entries simply disable the search fallback.
func NewService(searchers map[domain.AssetType]pricesource.Searcher) *Service {
	if searchers == nil {
		searchers = map[domain.AssetType]pricesource.Searcher{}
	}
	return &Service{searchers: searchers}
}

// Normalize resolves the canonical provider reference for an asset.
// Resolution order: user-supplied ref (canonicalized), fallback table,
// provider search with exact-symbol matching.
func (s *Service) Normalize(ctx context.Context, asset *domain.Asset) (domain.NormalizedRef, error) {
	symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))

	if ref := strings.TrimSpace(asset.SourceRef); ref != "" {
		return domain.NormalizedRef{
			Ref:  canonicalize(asset.Type, ref),
			Type: asset.Type,
		}, nil
	}

	if symbol == "" {
		return domain.NormalizedRef{}, &Error{Reason: ReasonMissingRef, Symbol: asset.Symbol}
	}

	switch asset.Type {
	case domain.AssetTypeCrypto:
		if id, ok := cryptoFallback[symbol]; ok {
			return domain.NormalizedRef{Ref: id, Type: asset.Type}, nil
		}
	case domain.AssetTypeMetal:
		if ticker, ok := metalFallback[symbol]; ok {
			return domain.NormalizedRef{Ref: ticker, Type: asset.Type}, nil
		}
	case domain.AssetTypeEquity:
		// an equity's ticker is its own provider reference
		return domain.NormalizedRef{Ref: symbol, Type: asset.Type}, nil
	}

	return s.search(ctx, asset.Type, symbol)
}

// search resolves an unknown symbol through the provider's lookup
// capability. Only an exact symbol match counts; zero or multiple exact
// matches are an error.
func (s *Service) search(ctx context.Context, assetType domain.AssetType, symbol string) (domain.NormalizedRef, error) {
	searcher, ok := s.searchers[assetType]
	if !ok {
		return domain.NormalizedRef{}, &Error{Reason: ReasonMissingRef, Symbol: symbol}
	}

	results, err := searcher.Search(ctx, symbol)
	if err != nil {
		return domain.NormalizedRef{}, &Error{Reason: ReasonNoMatch, Symbol: symbol, Err: err}
	}

	var exact []pricesource.SearchResult
	for _, r := range results {
		if strings.EqualFold(r.Symbol, symbol) {
			exact = append(exact, r)
		}
	}

	switch len(exact) {
	case 0:
		return domain.NormalizedRef{}, &Error{Reason: ReasonNoMatch, Symbol: symbol}
	case 1:
		return domain.NormalizedRef{
			Ref:  canonicalize(assetType, exact[0].Ref),
			Type: assetType,
		}, nil
	default:
		return domain.NormalizedRef{}, &Error{
			Reason: ReasonAmbiguousMatch,
			Symbol: symbol,
			Err:    fmt.Errorf("%d exact matches", len(exact)),
		}
	}
}

// canonicalize applies per-source-type casing rules: crypto ids are
// lowercase, equity tickers and metal spot codes are uppercase.
func canonicalize(assetType domain.AssetType, ref string) string {
	ref = strings.TrimSpace(ref)
	if assetType == domain.AssetTypeCrypto {
		return strings.ToLower(ref)
	}
	return strings.ToUpper(ref)
}
