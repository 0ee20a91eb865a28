package pricesource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yahooServer(t *testing.T, symbol, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		if symbol != "" {
			assert.Equal(t, symbol, r.URL.Query().Get("symbols"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestYahooQuote_FetchPrice_NativeCurrency(t *testing.T) {
	srv := yahooServer(t, "AAPL", `{"quoteResponse":{"result":[
		{"symbol":"AAPL","currency":"USD","regularMarketPrice":189.95,"regularMarketTime":1712000000}
	]}}`)
	defer srv.Close()

	adapter := NewYahooQuote(srv.URL, srv.Client())
	quote, err := adapter.FetchPrice(context.Background(), "AAPL", "GBP")

	require.NoError(t, err)
	// Yahoo quotes in the instrument's native currency, not the requested one
	assert.Equal(t, "USD", quote.Currency)
	assert.Equal(t, "189.95", quote.Value.String())
	assert.Equal(t, int64(1712000000), quote.AsOf.Unix())
	assert.Equal(t, "yfinance(AAPL)", quote.Source)
}

func TestYahooQuote_FetchPrice_PenceNormalization(t *testing.T) {
	srv := yahooServer(t, "VOD.L", `{"quoteResponse":{"result":[
		{"symbol":"VOD.L","currency":"GBp","regularMarketPrice":72.5,"regularMarketTime":1712000000}
	]}}`)
	defer srv.Close()

	adapter := NewYahooQuote(srv.URL, srv.Client())
	quote, err := adapter.FetchPrice(context.Background(), "VOD.L", "GBP")

	require.NoError(t, err)
	assert.Equal(t, "GBP", quote.Currency)
	assert.True(t, quote.Value.Equal(decimal.RequireFromString("0.725")),
		"want 0.725, got %s", quote.Value)
}

func TestYahooQuote_FetchPrice_EmptyResult(t *testing.T) {
	srv := yahooServer(t, "", `{"quoteResponse":{"result":[]}}`)
	defer srv.Close()

	adapter := NewYahooQuote(srv.URL, srv.Client())
	_, err := adapter.FetchPrice(context.Background(), "NOPE", "USD")

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ErrNotFound, aerr.Kind)
}

func TestYahooQuote_FetchPrice_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := NewYahooQuote(srv.URL, srv.Client())
	_, err := adapter.FetchPrice(context.Background(), "AAPL", "USD")

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ErrRateLimited, aerr.Kind)
	assert.True(t, aerr.Retryable())
}

func TestMetals_FetchPrice_DirectPair(t *testing.T) {
	srv := yahooServer(t, "XAGGBP=X", `{"quoteResponse":{"result":[
		{"symbol":"XAGGBP=X","currency":"GBP","regularMarketPrice":19.42,"regularMarketTime":1712000000}
	]}}`)
	defer srv.Close()

	adapter := NewMetals(NewYahooQuote(srv.URL, srv.Client()))
	quote, err := adapter.FetchPrice(context.Background(), "XAG", "GBP")

	require.NoError(t, err)
	assert.Equal(t, "GBP", quote.Currency)
	assert.Equal(t, "19.42", quote.Value.String())
}

func TestMetals_FetchPrice_USDFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbols") {
		case "XAGEUR=X":
			// direct pair unknown
			w.Write([]byte(`{"quoteResponse":{"result":[]}}`))
		case "XAGUSD=X":
			w.Write([]byte(`{"quoteResponse":{"result":[
				{"symbol":"XAGUSD=X","currency":"USD","regularMarketPrice":24.1,"regularMarketTime":1712000000}
			]}}`))
		default:
			t.Errorf("unexpected symbol %q", r.URL.Query().Get("symbols"))
		}
	}))
	defer srv.Close()

	adapter := NewMetals(NewYahooQuote(srv.URL, srv.Client()))
	quote, err := adapter.FetchPrice(context.Background(), "XAG", "EUR")

	require.NoError(t, err)
	// fallback quote stays in USD; conversion happens downstream
	assert.Equal(t, "USD", quote.Currency)
	assert.Equal(t, "24.1", quote.Value.String())
}

func TestMetals_FetchPrice_ExplicitTicker(t *testing.T) {
	srv := yahooServer(t, "XAUUSD=X", `{"quoteResponse":{"result":[
		{"symbol":"XAUUSD=X","currency":"USD","regularMarketPrice":2300,"regularMarketTime":1712000000}
	]}}`)
	defer srv.Close()

	adapter := NewMetals(NewYahooQuote(srv.URL, srv.Client()))
	quote, err := adapter.FetchPrice(context.Background(), "XAUUSD=X", "USD")

	require.NoError(t, err)
	assert.Equal(t, "2300", quote.Value.String())
}

func TestMetals_FetchPrice_RateLimitSurfacesUnchanged(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := NewMetals(NewYahooQuote(srv.URL, srv.Client()))
	_, err := adapter.FetchPrice(context.Background(), "XAG", "EUR")

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ErrRateLimited, aerr.Kind)
	// no USD fallback on a rate limit; the retry policy owns it
	assert.Equal(t, 1, calls, fmt.Sprintf("expected a single upstream call, got %d", calls))
}
