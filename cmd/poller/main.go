package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simaogato/portfolio-backend/internal/adapter/cache"
	"github.com/simaogato/portfolio-backend/internal/adapter/pricesource"
	"github.com/simaogato/portfolio-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/portfolio-backend/internal/config"
	"github.com/simaogato/portfolio-backend/internal/domain"
	"github.com/simaogato/portfolio-backend/internal/usecase/converter"
	"github.com/simaogato/portfolio-backend/internal/usecase/normalizer"
	"github.com/simaogato/portfolio-backend/internal/usecase/poller"
	"github.com/simaogato/portfolio-backend/internal/usecase/resolver"
	"github.com/simaogato/portfolio-backend/internal/usecase/seeder"
	"github.com/simaogato/portfolio-backend/internal/usecase/valuation"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 1. Storage
	db, err := postgres.NewDB(cfg.PostgresConnStr())
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

	assetRepo := postgres.NewAssetRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)

	var priceStore domain.PriceStore
	switch cfg.PriceStore {
	case "redis":
		redisStore, err := cache.NewPriceStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisStore.Close()
		priceStore = redisStore
	default:
		priceStore = postgres.NewPriceStore(db)
	}

	// 2. Price source adapters
	httpClient := &http.Client{Timeout: 30 * time.Second}
	coingecko := pricesource.NewCoinGecko(cfg.CoinGeckoBaseURL, httpClient)
	yahoo := pricesource.NewYahooQuote(cfg.YahooBaseURL, httpClient)
	metals := pricesource.NewMetals(yahoo)

	adapters := map[domain.AssetType]pricesource.Adapter{
		domain.AssetTypeCrypto: coingecko,
		domain.AssetTypeEquity: yahoo,
		domain.AssetTypeMetal:  metals,
	}

	// 3. Services
	norm := normalizer.NewPersisting(
		normalizer.NewService(map[domain.AssetType]pricesource.Searcher{
			domain.AssetTypeCrypto: coingecko,
		}),
		assetRepo,
		logger,
	)

	resolverService := resolver.NewService(norm, adapters, priceStore, logger, resolver.Config{
		Timeout:     cfg.ResolveTimeout(),
		MaxRetries:  cfg.ResolveMaxRetries,
		Workers:     cfg.ResolveWorkers,
		BackoffBase: 500 * time.Millisecond,
	})

	converterService := converter.NewService(assetRepo, priceStore)
	valuationService := valuation.NewService(assetRepo, priceStore, converterService)

	if cfg.SeedDemoData {
		demoSeeder := seeder.NewDemoSeeder(assetRepo, holdingRepo, logger)
		if err := demoSeeder.Seed(ctx); err != nil {
			logger.Error("failed to seed demo data", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// 4. Poll loop; each cycle ends with a portfolio valuation log
	p := poller.New(resolverService, assetRepo, cfg.BaseCurrency, cfg.PollInterval(), logger)
	p.SetOnCycle(func(ctx context.Context, _ *domain.ResolutionReport) {
		logValuation(ctx, logger, holdingRepo, valuationService, cfg.BaseCurrency)
	})

	logger.Info("portfolio poller starting",
		slog.String("base_currency", cfg.BaseCurrency),
		slog.String("price_store", cfg.PriceStore),
		slog.Duration("poll_interval", cfg.PollInterval()))

	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("poller exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shut down cleanly")
}

// logValuation values the whole portfolio and logs the snapshot totals
func logValuation(ctx context.Context, logger *slog.Logger, holdings domain.HoldingRepository, svc *valuation.Service, baseCurrency string) {
	all, err := holdings.List(ctx)
	if err != nil {
		logger.Error("failed to list holdings", slog.Any("error", err))
		return
	}

	snapshot, err := svc.Valuate(ctx, all, baseCurrency)
	if err != nil {
		logger.Error("failed to value portfolio", slog.Any("error", err))
		return
	}

	logger.Info("portfolio valuation",
		slog.String("base_currency", snapshot.BaseCurrency),
		slog.String("total", snapshot.Total.StringFixed(2)),
		slog.Int("priced", len(snapshot.Holdings)),
		slog.Int("unpriced", len(snapshot.Unpriced)))

	for _, hv := range snapshot.Holdings {
		attrs := []any{
			slog.String("symbol", hv.Asset.Symbol),
			slog.String("account", hv.Holding.Account),
			slog.String("quantity", hv.Holding.Quantity.String()),
			slog.String("value", hv.Value.StringFixed(2)),
		}
		if hv.HasCostBasis {
			attrs = append(attrs, slog.String("unrealized_pnl", hv.UnrealizedPnL.StringFixed(2)))
		}
		logger.Info("holding", attrs...)
	}
	for _, u := range snapshot.Unpriced {
		symbol := u.Holding.ID.String()
		if u.Asset != nil {
			symbol = u.Asset.Symbol
		}
		logger.Warn("holding not priced",
			slog.String("symbol", symbol),
			slog.String("reason", u.Reason))
	}
}
