// Package poller drives periodic price resolution for every known asset.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/simaogato/portfolio-backend/internal/domain"
)

// Resolver resolves prices for assets in a quote currency
type Resolver interface {
	ResolveAll(ctx context.Context, assets []*domain.Asset, quoteCurrency string) *domain.ResolutionReport
	ResolveOne(ctx context.Context, asset *domain.Asset, quoteCurrency string) (domain.PriceResult, error)
}

// Poller polls prices for all assets on a fixed interval. At most one
// poll cycle runs at a time; a tick that fires while a cycle is still
// in flight is skipped, not queued.
type Poller struct {
	resolver      Resolver
	assets        domain.AssetRepository
	quoteCurrency string
	interval      time.Duration
	logger        *slog.Logger

	// onCycle, when set, runs after every completed poll cycle with
	// that cycle's report
	onCycle func(ctx context.Context, report *domain.ResolutionReport)

	mu sync.Mutex
}

// SetOnCycle registers a callback invoked after each completed poll
// cycle. Must be called before Run.
func (p *Poller) SetOnCycle(fn func(ctx context.Context, report *domain.ResolutionReport)) {
	p.onCycle = fn
}

// New creates a poller. Interval must be positive.
func New(resolver Resolver, assets domain.AssetRepository, quoteCurrency string, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		resolver:      resolver,
		assets:        assets,
		quoteCurrency: quoteCurrency,
		interval:      interval,
		logger:        logger,
	}
}

// Run polls once immediately, then on every interval tick until the
// context is cancelled. It always returns the context's error.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		slog.String("quote_currency", p.quoteCurrency),
		slog.Duration("interval", p.interval))

	p.cycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle runs one poll and the post-cycle callback
func (p *Poller) cycle(ctx context.Context) {
	report, err := p.PollAll(ctx)
	if err != nil {
		p.logger.Error("poll cycle failed", slog.Any("error", err))
		return
	}
	if report != nil && p.onCycle != nil {
		p.onCycle(ctx, report)
	}
}

// PollAll resolves prices for every asset in the repository. Returns a
// nil report without error when another cycle is already running.
func (p *Poller) PollAll(ctx context.Context) (*domain.ResolutionReport, error) {
	if !p.mu.TryLock() {
		p.logger.Warn("poll cycle still running, skipping tick")
		return nil, nil
	}
	defer p.mu.Unlock()

	assets, err := p.assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	if len(assets) == 0 {
		p.logger.Info("no assets to poll")
		return &domain.ResolutionReport{QuoteCurrency: p.quoteCurrency, StartedAt: time.Now().UTC()}, nil
	}

	return p.resolver.ResolveAll(ctx, assets, p.quoteCurrency), nil
}

// PollOne resolves the price of a single asset on demand, outside the
// interval schedule
func (p *Poller) PollOne(ctx context.Context, assetID int64) (domain.PriceResult, error) {
	asset, err := p.assets.GetByID(ctx, assetID)
	if err != nil {
		return domain.PriceResult{}, fmt.Errorf("failed to load asset %d: %w", assetID, err)
	}
	return p.resolver.ResolveOne(ctx, asset, p.quoteCurrency)
}
