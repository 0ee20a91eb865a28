// Package cache provides a Redis-backed latest-price store. It keeps
// only the latest price per (asset, currency); history stays in
// Postgres installations that want it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-backend/internal/domain"
)

// upsertAttempts bounds optimistic-lock retries when writers race on
// the same key
const upsertAttempts = 5

// errStale aborts a watched transaction when the incoming price is not
// strictly newer than the stored one
var errStale = errors.New("stale price")

type storedPrice struct {
	ID       uuid.UUID       `json:"id"`
	AssetID  int64           `json:"asset_id"`
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
	AsOf     time.Time       `json:"as_of"`
	Source   string          `json:"source"`
}

// PriceStore implements domain.PriceStore on Redis
type PriceStore struct {
	client *redis.Client
}

// NewPriceStore connects to Redis and verifies the connection
func NewPriceStore(addr, password string, db int) (*PriceStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &PriceStore{client: client}, nil
}

func priceKey(assetID int64, currency string) string {
	return fmt.Sprintf("price:%d:%s", assetID, strings.ToUpper(currency))
}

func currenciesKey(assetID int64) string {
	return fmt.Sprintf("price:%d:currencies", assetID)
}

// Upsert writes a price if it is strictly newer than the stored one
// for the same (asset, currency). The check-then-set runs under WATCH
// so concurrent writers cannot move as_of backwards. Returns whether
// the write was accepted.
func (s *PriceStore) Upsert(ctx context.Context, price *domain.Price) (bool, error) {
	key := priceKey(price.AssetID, price.Currency)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to read current price: %w", err)
		}
		if err == nil {
			var current storedPrice
			if err := json.Unmarshal(data, &current); err != nil {
				return fmt.Errorf("failed to unmarshal current price: %w", err)
			}
			if !price.AsOf.After(current.AsOf) {
				return errStale
			}
		}

		payload, err := json.Marshal(storedPrice{
			ID:       price.ID,
			AssetID:  price.AssetID,
			Currency: price.Currency,
			Value:    price.Value,
			AsOf:     price.AsOf,
			Source:   price.Source,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal price: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, currenciesKey(price.AssetID), strings.ToUpper(price.Currency))
			return nil
		})
		return err
	}

	for i := 0; i < upsertAttempts; i++ {
		err := s.client.Watch(ctx, txn, key)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, errStale):
			return false, nil
		case errors.Is(err, redis.TxFailedErr):
			// key changed under us, retry against the new value
			continue
		default:
			return false, fmt.Errorf("failed to upsert price in redis: %w", err)
		}
	}
	return false, fmt.Errorf("failed to upsert price in redis: too many concurrent writers on %s", key)
}

// GetLatest retrieves the latest price of an asset in a specific currency
func (s *PriceStore) GetLatest(ctx context.Context, assetID int64, currency string) (*domain.Price, error) {
	data, err := s.client.Get(ctx, priceKey(assetID, currency)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrPriceNotFound
		}
		return nil, fmt.Errorf("failed to get price from redis: %w", err)
	}
	return decodePrice(data)
}

// GetLatestAny retrieves the freshest price of an asset across every
// currency it has been quoted in
func (s *PriceStore) GetLatestAny(ctx context.Context, assetID int64) (*domain.Price, error) {
	currencies, err := s.client.SMembers(ctx, currenciesKey(assetID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list quoted currencies: %w", err)
	}

	var freshest *domain.Price
	for _, currency := range currencies {
		price, err := s.GetLatest(ctx, assetID, currency)
		if err != nil {
			if errors.Is(err, domain.ErrPriceNotFound) {
				continue
			}
			return nil, err
		}
		if freshest == nil || price.AsOf.After(freshest.AsOf) {
			freshest = price
		}
	}
	if freshest == nil {
		return nil, domain.ErrPriceNotFound
	}
	return freshest, nil
}

// Ping verifies the Redis connection
func (s *PriceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *PriceStore) Close() error {
	return s.client.Close()
}

func decodePrice(data []byte) (*domain.Price, error) {
	var sp storedPrice
	if err := json.Unmarshal(data, &sp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price: %w", err)
	}
	return &domain.Price{
		ID:       sp.ID,
		AssetID:  sp.AssetID,
		Currency: sp.Currency,
		Value:    sp.Value,
		AsOf:     sp.AsOf,
		Source:   sp.Source,
	}, nil
}
