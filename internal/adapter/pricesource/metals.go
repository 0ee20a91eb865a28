package pricesource

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Metals fetches precious-metal spot prices through the Yahoo quote API.
// References are either a bare spot code ("XAG", "XAU") or a full pair
// ticker ("XAGUSD=X").
//
// For a bare code the adapter tries the direct pair against the requested
// currency first (XAGGBP=X) and falls back to the USD pair; the fallback
// quote is reported in USD and converted downstream.
type Metals struct {
	quotes *YahooQuote
}

// NewMetals creates a metals adapter over an existing Yahoo quote client
func NewMetals(quotes *YahooQuote) *Metals {
	return &Metals{quotes: quotes}
}

// Name returns the provider name
func (m *Metals) Name() string {
	return "yfinance"
}

// FetchPrice fetches the latest spot price for a metal reference
func (m *Metals) FetchPrice(ctx context.Context, ref, quoteCurrency string) (Quote, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	ccy := strings.ToUpper(quoteCurrency)

	// Explicit pair tickers pass straight through
	if strings.HasSuffix(ref, "=X") {
		return m.quotes.FetchPrice(ctx, ref, ccy)
	}

	direct := fmt.Sprintf("%s%s=X", ref, ccy)
	quote, err := m.quotes.FetchPrice(ctx, direct, ccy)
	if err == nil {
		return quote, nil
	}

	// Only a missing direct pair justifies the USD fallback; rate limits
	// and transport failures surface to the retry policy unchanged
	var aerr *Error
	if !errors.As(err, &aerr) || aerr.Kind != ErrNotFound || ccy == "USD" {
		return Quote{}, err
	}

	fallback := fmt.Sprintf("%sUSD=X", ref)
	quote, err = m.quotes.FetchPrice(ctx, fallback, "USD")
	if err != nil {
		return Quote{}, err
	}
	return quote, nil
}
