// Package pricesource contains one adapter per external price provider.
// Every adapter exposes the same contract so the resolver can treat all
// asset types identically; an adapter is responsible for exactly one
// provider's request/response shape and never writes to the price store.
package pricesource

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the normalized result of a provider fetch. Currency is the
// currency the provider actually quoted in: adapters quote in the
// requested currency when the provider supports it, and fall back to the
// instrument's native currency otherwise (conversion happens downstream).
type Quote struct {
	Value    decimal.Decimal
	Currency string
	AsOf     time.Time
	Source   string // provenance string, e.g. "yfinance(VOD.L)"
}

// ErrorKind classifies adapter failures for the caller's retry policy
type ErrorKind string

const (
	ErrNotFound            ErrorKind = "not_found"
	ErrRateLimited         ErrorKind = "rate_limited"
	ErrTransientNetwork    ErrorKind = "transient_network"
	ErrUnsupportedCurrency ErrorKind = "unsupported_currency"
)

// Error is the uniform adapter failure type
type Error struct {
	Kind ErrorKind
	Ref  string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Ref, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Ref, e.Kind)
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the fetch.
// Rate limits and transient network failures are retryable; a missing
// reference or unsupported currency will not fix itself.
func (e *Error) Retryable() bool {
	return e.Kind == ErrRateLimited || e.Kind == ErrTransientNetwork
}

// Adapter fetches the latest price for a provider-specific reference
type Adapter interface {
	// Name returns the provider name used in price provenance strings
	Name() string

	// FetchPrice fetches the latest price for ref, preferably quoted in
	// quoteCurrency. Returns *Error on failure.
	FetchPrice(ctx context.Context, ref, quoteCurrency string) (Quote, error)
}

// SearchResult is one candidate from a provider's lookup capability
type SearchResult struct {
	Ref    string // provider reference, e.g. CoinGecko id
	Symbol string
	Name   string
}

// Searcher is the optional lookup capability some providers offer; the
// normalizer uses it to resolve unknown symbols deterministically.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}
