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

// DefaultYahooBaseURL is the public Yahoo Finance quote API host
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// pence per pound, for GBX/GBp quote normalization
var hundred = decimal.NewFromInt(100)

// YahooQuote fetches equity and FX-pair quotes from the Yahoo Finance
// quote API. References are Yahoo tickers, e.g. "AAPL", "VOD.L",
// "XAGUSD=X", "USDGBP=X".
//
// Yahoo quotes in each instrument's native currency; the adapter reports
// the actual currency in Quote.Currency and leaves conversion to the
// caller. London-listed pence quotes (GBX/GBp) are normalized to GBP.
type YahooQuote struct {
	baseURL string
	client  *http.Client
}

// NewYahooQuote creates a Yahoo quote adapter. An empty baseURL selects
// the public API host; a nil client selects http.DefaultClient.
func NewYahooQuote(baseURL string, client *http.Client) *YahooQuote {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &YahooQuote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name returns the provider name
func (y *YahooQuote) Name() string {
	return "yfinance"
}

// FetchPrice fetches the latest quote for a Yahoo ticker. quoteCurrency is
// a preference only: when the instrument trades in another currency the
// native-currency quote is returned and Quote.Currency reports it.
func (y *YahooQuote) FetchPrice(ctx context.Context, ref, quoteCurrency string) (Quote, error) {
	q := url.Values{}
	q.Set("symbols", ref)
	addr := fmt.Sprintf("%s/v7/finance/quote?%s", y.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return Quote{}, &Error{Kind: ErrTransientNetwork, Ref: ref, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return Quote{}, &Error{Kind: ErrTransientNetwork, Ref: ref, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return Quote{}, &Error{Kind: ErrNotFound, Ref: ref, Err: fmt.Errorf("http %s", resp.Status)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Quote{}, &Error{Kind: ErrRateLimited, Ref: ref, Err: fmt.Errorf("http %s", resp.Status)}
	default:
		return Quote{}, &Error{Kind: ErrTransientNetwork, Ref: ref, Err: fmt.Errorf("http %s", resp.Status)}
	}

	var body struct {
		QuoteResponse struct {
			Result []struct {
				Symbol             string          `json:"symbol"`
				Currency           string          `json:"currency"`
				RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
				RegularMarketTime  int64           `json:"regularMarketTime"`
			} `json:"result"`
		} `json:"quoteResponse"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, &Error{Kind: ErrTransientNetwork, Ref: ref, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(body.QuoteResponse.Result) == 0 {
		return Quote{}, &Error{Kind: ErrNotFound, Ref: ref, Err: fmt.Errorf("no quote result")}
	}
	result := body.QuoteResponse.Result[0]

	value := result.RegularMarketPrice
	if !value.IsPositive() {
		return Quote{}, &Error{Kind: ErrNotFound, Ref: ref, Err: fmt.Errorf("non-positive price %s", value)}
	}

	currency := strings.TrimSpace(result.Currency)
	if isPence(currency) {
		// London listings quote in pence
		value = value.Div(hundred)
		currency = "GBP"
	}
	currency = strings.ToUpper(currency)
	if currency == "" {
		// Yahoo occasionally omits the currency field; fall back to the
		// requested one rather than storing a currency-less price
		currency = strings.ToUpper(quoteCurrency)
	}

	asOf := time.Now().UTC()
	if result.RegularMarketTime > 0 {
		asOf = time.Unix(result.RegularMarketTime, 0).UTC()
	}

	return Quote{
		Value:    value,
		Currency: currency,
		AsOf:     asOf,
		Source:   fmt.Sprintf("yfinance(%s)", ref),
	}, nil
}

// isPence reports whether a Yahoo currency code denotes GBP pence.
// Yahoo reports pence as "GBp" (note the case) or occasionally "GBX".
func isPence(currency string) bool {
	return currency == "GBp" || strings.EqualFold(currency, "GBX")
}
