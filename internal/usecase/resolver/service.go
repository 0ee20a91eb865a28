// Package resolver orchestrates price resolution: normalize the asset's
// identifier, fetch from the matching provider adapter with timeout and
// bounded retries, and write the result through the monotonic price store.
// Partial-failure isolation is the central correctness property: one bad
// asset never blocks the rest of a batch.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/simaogato/portfolio-backend/internal/adapter/pricesource"
	"github.com/simaogato/portfolio-backend/internal/domain"
	"github.com/simaogato/portfolio-backend/internal/usecase/normalizer"
)

// Config tunes the resolution policy. Zero values select the defaults.
type Config struct {
	// Timeout bounds a single adapter call, including each retry attempt
	Timeout time.Duration

	// MaxRetries caps additional attempts after the first, applied only
	// to retryable adapter failures
	MaxRetries uint64

	// BackoffBase is the initial delay of the exponential backoff
	BackoffBase time.Duration

	// Workers caps concurrent per-asset resolutions in ResolveAll
	Workers int
}

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxRetries  = 2
	defaultBackoffBase = 500 * time.Millisecond
	defaultWorkers     = 4
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	return c
}

// Normalizer resolves an asset's canonical provider reference
type Normalizer interface {
	Normalize(ctx context.Context, asset *domain.Asset) (domain.NormalizedRef, error)
}

// Service implements the price resolver
type Service struct {
	normalizer Normalizer
	adapters   map[domain.AssetType]pricesource.Adapter
	store      domain.PriceStore
	logger     *slog.Logger
	cfg        Config

	// collapses duplicate concurrent resolutions of the same
	// (asset, currency) key into one in-flight call
	inflight singleflight.Group
}

// NewService creates a price resolver
func NewService(
	n Normalizer,
	adapters map[domain.AssetType]pricesource.Adapter,
	store domain.PriceStore,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		normalizer: n,
		adapters:   adapters,
		store:      store,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

// ResolveOne resolves and stores the current price for a single asset.
// On failure the returned error is a *domain.ResolutionFailure with a
// typed per-stage reason. At most one resolution per (asset, currency)
// is in flight at a time; concurrent duplicates share the first result.
func (s *Service) ResolveOne(ctx context.Context, asset *domain.Asset, quoteCurrency string) (domain.PriceResult, error) {
	key := fmt.Sprintf("%d|%s", asset.ID, quoteCurrency)
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		return s.resolve(ctx, asset, quoteCurrency)
	})
	if err != nil {
		return domain.PriceResult{}, err
	}
	return v.(domain.PriceResult), nil
}

// ResolveAll resolves every asset in the set, in parallel across a bounded
// worker pool. All per-asset failures are captured in the report and never
// propagate past the batch boundary.
func (s *Service) ResolveAll(ctx context.Context, assets []*domain.Asset, quoteCurrency string) *domain.ResolutionReport {
	report := &domain.ResolutionReport{
		QuoteCurrency: quoteCurrency,
		StartedAt:     time.Now(),
	}

	workers := s.cfg.Workers
	if workers > len(assets) {
		workers = len(assets)
	}

	jobs := make(chan *domain.Asset)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asset := range jobs {
				result, err := s.ResolveOne(ctx, asset, quoteCurrency)
				mu.Lock()
				if err != nil {
					report.Failed = append(report.Failed, *s.failure(asset, err))
				} else {
					report.Succeeded = append(report.Succeeded, result)
				}
				mu.Unlock()
			}
		}()
	}

	for _, asset := range assets {
		// cancelled mid-batch: remaining assets are reported, not
		// silently dropped
		if err := ctx.Err(); err != nil {
			mu.Lock()
			report.Failed = append(report.Failed, *s.failure(asset, err))
			mu.Unlock()
			continue
		}
		jobs <- asset
	}
	close(jobs)
	wg.Wait()

	report.Elapsed = time.Since(report.StartedAt)

	// deterministic report order regardless of worker scheduling
	sort.Slice(report.Succeeded, func(i, j int) bool {
		return report.Succeeded[i].Symbol < report.Succeeded[j].Symbol
	})
	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].Symbol < report.Failed[j].Symbol
	})

	s.logger.Info("resolution batch finished",
		"quote_currency", quoteCurrency,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"elapsed", report.Elapsed)

	return report
}

// resolve runs the normalize -> fetch -> store pipeline for one asset
func (s *Service) resolve(ctx context.Context, asset *domain.Asset, quoteCurrency string) (domain.PriceResult, error) {
	ref, err := s.normalizer.Normalize(ctx, asset)
	if err != nil {
		return domain.PriceResult{}, s.failure(asset, err)
	}

	adapter, ok := s.adapters[ref.Type]
	if !ok {
		return domain.PriceResult{}, &domain.ResolutionFailure{
			AssetID: asset.ID,
			Symbol:  asset.Symbol,
			Stage:   domain.StageFetch,
			Reason:  "no_adapter",
			Err:     fmt.Errorf("no adapter registered for asset type %q", ref.Type),
		}
	}

	quote, err := s.fetchWithRetry(ctx, adapter, ref.Ref, quoteCurrency)
	if err != nil {
		return domain.PriceResult{}, s.failure(asset, err)
	}

	// a cancelled resolution must not leave a partial write behind
	if err := ctx.Err(); err != nil {
		return domain.PriceResult{}, s.failure(asset, err)
	}

	price := &domain.Price{
		ID:       uuid.New(),
		AssetID:  asset.ID,
		Currency: quote.Currency,
		Value:    quote.Value,
		AsOf:     quote.AsOf,
		Source:   quote.Source,
	}
	if err := price.Validate(); err != nil {
		return domain.PriceResult{}, &domain.ResolutionFailure{
			AssetID: asset.ID,
			Symbol:  asset.Symbol,
			Stage:   domain.StageStore,
			Reason:  "invalid_price",
			Err:     err,
		}
	}

	stored, err := s.store.Upsert(ctx, price)
	if err != nil {
		return domain.PriceResult{}, &domain.ResolutionFailure{
			AssetID: asset.ID,
			Symbol:  asset.Symbol,
			Stage:   domain.StageStore,
			Reason:  "store_error",
			Err:     err,
		}
	}
	if !stored {
		s.logger.Debug("stale quote discarded",
			"symbol", asset.Symbol,
			"currency", price.Currency,
			"as_of", price.AsOf)
	}

	return domain.PriceResult{
		AssetID: asset.ID,
		Symbol:  asset.Symbol,
		Price:   price,
		Stored:  stored,
	}, nil
}

// fetchWithRetry invokes the adapter with a per-call timeout and bounded
// exponential backoff. Non-retryable adapter errors fail immediately.
func (s *Service) fetchWithRetry(ctx context.Context, adapter pricesource.Adapter, ref, quoteCurrency string) (pricesource.Quote, error) {
	var quote pricesource.Quote

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()

		q, err := adapter.FetchPrice(callCtx, ref, quoteCurrency)
		if err != nil {
			var aerr *pricesource.Error
			if errors.As(err, &aerr) && !aerr.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		quote = q
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.BackoffBase

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, s.cfg.MaxRetries), ctx))
	if err != nil {
		return pricesource.Quote{}, err
	}
	return quote, nil
}

// failure converts an error from any pipeline stage into a typed
// ResolutionFailure for the report
func (s *Service) failure(asset *domain.Asset, err error) *domain.ResolutionFailure {
	var rf *domain.ResolutionFailure
	if errors.As(err, &rf) {
		return rf
	}

	f := &domain.ResolutionFailure{
		AssetID: asset.ID,
		Symbol:  asset.Symbol,
		Err:     err,
	}

	var nerr *normalizer.Error
	var aerr *pricesource.Error
	switch {
	case errors.As(err, &nerr):
		f.Stage = domain.StageNormalize
		f.Reason = string(nerr.Reason)
	case errors.As(err, &aerr):
		f.Stage = domain.StageFetch
		f.Reason = string(aerr.Kind)
	case errors.Is(err, context.Canceled):
		f.Stage = domain.StageFetch
		f.Reason = "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		f.Stage = domain.StageFetch
		f.Reason = "timeout"
	default:
		f.Stage = domain.StageFetch
		f.Reason = "error"
	}
	return f
}
