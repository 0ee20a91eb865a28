package pricesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCoinGeckoBaseURL is the public CoinGecko API host
const DefaultCoinGeckoBaseURL = "https://api.coingecko.com"

// CoinGecko fetches crypto spot prices from the CoinGecko simple-price API.
// References are CoinGecko ids, e.g. "bitcoin", "monero".
type CoinGecko struct {
	baseURL string
	client  *http.Client
}

// NewCoinGecko creates a CoinGecko adapter. An empty baseURL selects the
// public API host; a nil client selects http.DefaultClient.
func NewCoinGecko(baseURL string, client *http.Client) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name returns the provider name
func (c *CoinGecko) Name() string {
	return "coingecko"
}

// FetchPrice fetches the latest price for a CoinGecko id in quoteCurrency.
// CoinGecko quotes directly in the requested currency, so Quote.Currency
// always equals quoteCurrency on success.
func (c *CoinGecko) FetchPrice(ctx context.Context, ref, quoteCurrency string) (Quote, error) {
	vs := strings.ToLower(quoteCurrency)

	q := url.Values{}
	q.Set("ids", ref)
	q.Set("vs_currencies", vs)
	q.Set("include_last_updated_at", "true")
	addr := fmt.Sprintf("%s/api/v3/simple/price?%s", c.baseURL, q.Encode())

	// Response shape: {"monero":{"gbp":123.45,"last_updated_at":1712000000}}
	var body map[string]map[string]decimal.Decimal
	if err := c.getJSON(ctx, addr, ref, &body); err != nil {
		return Quote{}, err
	}

	entry, ok := body[ref]
	if !ok {
		return Quote{}, &Error{Kind: ErrNotFound, Ref: ref, Err: fmt.Errorf("id missing from response")}
	}

	value, ok := entry[vs]
	if !ok {
		return Quote{}, &Error{Kind: ErrUnsupportedCurrency, Ref: ref, Err: fmt.Errorf("no %s quote for %s", quoteCurrency, ref)}
	}
	if !value.IsPositive() {
		return Quote{}, &Error{Kind: ErrNotFound, Ref: ref, Err: fmt.Errorf("non-positive price %s", value)}
	}

	asOf := time.Now().UTC()
	if ts, ok := entry["last_updated_at"]; ok && ts.IsPositive() {
		asOf = time.Unix(ts.IntPart(), 0).UTC()
	}

	return Quote{
		Value:    value,
		Currency: strings.ToUpper(quoteCurrency),
		AsOf:     asOf,
		Source:   fmt.Sprintf("coingecko(%s->%s)", ref, strings.ToUpper(quoteCurrency)),
	}, nil
}

// Search implements the Searcher lookup capability via /api/v3/search.
// The normalizer uses it to map unknown symbols to CoinGecko ids.
func (c *CoinGecko) Search(ctx context.Context, query string) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("query", query)
	addr := fmt.Sprintf("%s/api/v3/search?%s", c.baseURL, q.Encode())

	var body struct {
		Coins []struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"coins"`
	}
	if err := c.getJSON(ctx, addr, query, &body); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(body.Coins))
	for _, coin := range body.Coins {
		results = append(results, SearchResult{
			Ref:    coin.ID,
			Symbol: coin.Symbol,
			Name:   coin.Name,
		})
	}
	return results, nil
}

// getJSON performs a GET request and decodes the JSON response, mapping
// transport and HTTP status failures onto the adapter error taxonomy.
func (c *CoinGecko) getJSON(ctx context.Context, addr, ref string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return &Error{Kind: ErrTransientNetwork, Ref: ref, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: ErrTransientNetwork, Ref: ref, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Kind: ErrNotFound, Ref: ref, Err: fmt.Errorf("http %s", resp.Status)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Kind: ErrRateLimited, Ref: ref, Err: fmt.Errorf("http %s", resp.Status)}
	default:
		return &Error{Kind: ErrTransientNetwork, Ref: ref, Err: fmt.Errorf("http %s", resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: ErrTransientNetwork, Ref: ref, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
