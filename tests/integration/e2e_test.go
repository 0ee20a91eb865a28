//go:build integration

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/portfolio-backend/internal/adapter/pricesource"
	"github.com/simaogato/portfolio-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/portfolio-backend/internal/domain"
	"github.com/simaogato/portfolio-backend/internal/usecase/converter"
	"github.com/simaogato/portfolio-backend/internal/usecase/normalizer"
	"github.com/simaogato/portfolio-backend/internal/usecase/poller"
	"github.com/simaogato/portfolio-backend/internal/usecase/resolver"
	"github.com/simaogato/portfolio-backend/internal/usecase/valuation"
)

var db *postgres.DB

// TestMain sets up the test database
func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	db, err = postgres.NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		panic(fmt.Sprintf("Failed to ensure schema: %v", err))
	}

	os.Exit(m.Run())
}

// getDBConnectionString returns the database connection string from environment or defaults
func getDBConnectionString() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv("DB_USER")
	if user == "" {
		user = "postgres"
	}
	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		password = "postgres"
	}
	dbname := os.Getenv("DB_NAME")
	if dbname == "" {
		dbname = "portfolio_test"
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// fakeProviders serves canned CoinGecko and Yahoo responses
func fakeProviders(t *testing.T) (coingeckoURL, yahooURL string) {
	t.Helper()

	cg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v3/simple/price":
			fmt.Fprint(w, `{
				"bitcoin": {"usd": 30000, "last_updated_at": 1712000000},
				"monero": {"usd": 150, "last_updated_at": 1712000000}
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(cg.Close)

	yh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbols") {
		case "AAPL":
			fmt.Fprint(w, `{"quoteResponse":{"result":[
				{"symbol":"AAPL","currency":"USD","regularMarketPrice":190,"regularMarketTime":1712000000}
			]}}`)
		case "XAGUSD=X":
			fmt.Fprint(w, `{"quoteResponse":{"result":[
				{"symbol":"XAGUSD=X","currency":"USD","regularMarketPrice":24,"regularMarketTime":1712000000}
			]}}`)
		default:
			fmt.Fprint(w, `{"quoteResponse":{"result":[]}}`)
		}
	}))
	t.Cleanup(yh.Close)

	return cg.URL, yh.URL
}

func createAsset(t *testing.T, repo domain.AssetRepository, symbol string, assetType domain.AssetType, sourceRef string) *domain.Asset {
	t.Helper()
	ctx := context.Background()

	if existing, err := repo.GetBySymbol(ctx, symbol); err == nil {
		return existing
	}
	asset := &domain.Asset{Symbol: symbol, Type: assetType, SourceRef: sourceRef}
	require.NoError(t, repo.Create(ctx, asset))
	return asset
}

// TestEndToEndFlow drives the full pipeline against real storage:
// seed assets and holdings, poll prices from fake providers, then
// value the portfolio in USD.
func TestEndToEndFlow(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cgURL, yhURL := fakeProviders(t)

	assetRepo := postgres.NewAssetRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	priceStore := postgres.NewPriceStore(db)

	client := &http.Client{Timeout: 5 * time.Second}
	coingecko := pricesource.NewCoinGecko(cgURL, client)
	yahoo := pricesource.NewYahooQuote(yhURL, client)

	adapters := map[domain.AssetType]pricesource.Adapter{
		domain.AssetTypeCrypto: coingecko,
		domain.AssetTypeEquity: yahoo,
		domain.AssetTypeMetal:  pricesource.NewMetals(yahoo),
	}

	norm := normalizer.NewPersisting(
		normalizer.NewService(map[domain.AssetType]pricesource.Searcher{
			domain.AssetTypeCrypto: coingecko,
		}),
		assetRepo,
		logger,
	)
	resolverService := resolver.NewService(norm, adapters, priceStore, logger, resolver.Config{
		Timeout:     5 * time.Second,
		BackoffBase: 10 * time.Millisecond,
	})

	// Step A: seed a portfolio
	btc := createAsset(t, assetRepo, "BTC", domain.AssetTypeCrypto, "bitcoin")
	xmr := createAsset(t, assetRepo, "XMR", domain.AssetTypeCrypto, "") // resolved via fallback table
	xag := createAsset(t, assetRepo, "XAG", domain.AssetTypeMetal, "")
	aapl := createAsset(t, assetRepo, "AAPL", domain.AssetTypeEquity, "AAPL")

	holding := &domain.Holding{
		ID:           uuid.New(),
		AssetID:      btc.ID,
		Account:      "e2e",
		Quantity:     decimal.RequireFromString("2.5"),
		AvgCost:      decimal.NewFromInt(20000),
		CostCurrency: "USD",
	}
	require.NoError(t, holdingRepo.Create(ctx, holding))

	// Step B: one poll cycle resolves every asset
	p := poller.New(resolverService, assetRepo, "USD", time.Minute, logger)
	report, err := p.PollAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.Failed, "all assets should resolve: %+v", report.Failed)

	for _, asset := range []*domain.Asset{btc, xmr, xag, aapl} {
		price, err := priceStore.GetLatest(ctx, asset.ID, "USD")
		require.NoError(t, err, "expected a USD price for %s", asset.Symbol)
		assert.True(t, price.Value.IsPositive())
	}

	// normalization wrote the resolved ref back
	reloaded, err := assetRepo.GetBySymbol(ctx, "XMR")
	require.NoError(t, err)
	assert.Equal(t, "monero", reloaded.SourceRef)

	// Step C: a second poll with identical timestamps stores nothing new
	report, err = p.PollAll(ctx)
	require.NoError(t, err)
	for _, r := range report.Succeeded {
		assert.False(t, r.Stored, "unchanged quote for %s should be discarded as stale", r.Symbol)
	}

	// Step D: valuation in USD
	converterService := converter.NewService(assetRepo, priceStore)
	valuationService := valuation.NewService(assetRepo, priceStore, converterService)

	holdings, err := holdingRepo.List(ctx)
	require.NoError(t, err)

	snapshot, err := valuationService.Valuate(ctx, holdings, "USD")
	require.NoError(t, err)

	var btcValuation *domain.HoldingValuation
	for i := range snapshot.Holdings {
		if snapshot.Holdings[i].Holding.ID == holding.ID {
			btcValuation = &snapshot.Holdings[i]
		}
	}
	require.NotNil(t, btcValuation, "the seeded holding should be priced")
	assert.True(t, btcValuation.Value.Equal(decimal.NewFromInt(75000)),
		"want 75000, got %s", btcValuation.Value)
	assert.True(t, btcValuation.UnrealizedPnL.Equal(decimal.NewFromInt(25000)),
		"want 25000, got %s", btcValuation.UnrealizedPnL)
}
