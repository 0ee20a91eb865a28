package normalizer

import (
	"context"
	"log/slog"

	"github.com/simaogato/portfolio-backend/internal/domain"
)

// PersistingNormalizer wraps a normalizer and writes search-resolved
// references back to the asset repository, so symbols are looked up
// against the provider at most once.
type PersistingNormalizer struct {
	inner  *Service
	assets domain.AssetRepository
	logger *slog.Logger
}

// NewPersisting creates a normalizer that persists resolved refs
func NewPersisting(inner *Service, assets domain.AssetRepository, logger *slog.Logger) *PersistingNormalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistingNormalizer{
		inner:  inner,
		assets: assets,
		logger: logger,
	}
}

// Normalize resolves the canonical provider reference and records it on
// the asset when it had none. Persistence is best effort; a failed write
// only costs a repeat lookup on the next poll.
func (n *PersistingNormalizer) Normalize(ctx context.Context, asset *domain.Asset) (domain.NormalizedRef, error) {
	ref, err := n.inner.Normalize(ctx, asset)
	if err != nil {
		return domain.NormalizedRef{}, err
	}

	if asset.SourceRef == "" && ref.Ref != "" {
		if err := n.assets.UpdateSourceRef(ctx, asset.ID, ref.Ref); err != nil {
			n.logger.Warn("failed to persist resolved source ref",
				slog.String("symbol", asset.Symbol),
				slog.String("ref", ref.Ref),
				slog.Any("error", err))
		} else {
			asset.SourceRef = ref.Ref
		}
	}
	return ref, nil
}
