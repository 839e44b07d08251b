// Package rediscache shares match scores across engine instances through Redis.
//
// ScoreCache decorates a durable repository.ScoreCache: reads go to Redis
// first and fall back to the durable store, writes go to both, and stale
// marking evicts the cached copies through per-student and per-listing
// index sets so every instance observes the same staleness.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/matchengine/internal/adapters/repository"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/pkg/logger"
)

// Key prefixes.
const (
	PrefixScore   = "matchengine:score:"
	PrefixStudent = "matchengine:student:"
	PrefixListing = "matchengine:listing:"
)

// DefaultTTL bounds how long a cached score may live.
const DefaultTTL = 24 * time.Hour

// ErrCacheSerialization is returned when a cached value cannot be decoded.
var ErrCacheSerialization = errors.New("cache: serialization failed")

// ScoreCache is a read-through, write-through Redis layer over a durable cache.
type ScoreCache struct {
	client  redis.UniversalClient
	durable repository.ScoreCache
	ttl     time.Duration
	log     logger.Logger
}

var _ repository.ScoreCache = (*ScoreCache)(nil)

// Option applies a configuration option to the ScoreCache.
type Option func(*ScoreCache)

// WithTTL sets the expiry of cached scores.
func WithTTL(ttl time.Duration) Option {
	return func(c *ScoreCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New wraps durable with a Redis layer on client.
func New(client redis.UniversalClient, durable repository.ScoreCache, opts ...Option) *ScoreCache {
	c := &ScoreCache{
		client:  client,
		durable: durable,
		ttl:     DefaultTTL,
		log:     logger.Get().Named("score_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial parses a redis:// URL and pings the server.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: failed to parse URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to ping: %w", err)
	}
	return client, nil
}

// ScoreKey returns the Redis key holding a pair's score.
func ScoreKey(k model.PairKey) string {
	return PrefixScore + k.StudentID + ":" + k.ListingID
}

// StudentIndexKey returns the set of score keys cached for a student.
func StudentIndexKey(studentID string) string { return PrefixStudent + studentID }

// ListingIndexKey returns the set of score keys cached for a listing.
func ListingIndexKey(listingID string) string { return PrefixListing + listingID }

// cachedScore is the JSON document stored under ScoreKey.
type cachedScore struct {
	StudentID  string          `json:"studentId"`
	ListingID  string          `json:"listingId"`
	TenantID   string          `json:"tenantId"`
	Score      float64         `json:"score"`
	Breakdown  model.Breakdown `json:"breakdown"`
	ComputedAt time.Time       `json:"computedAt"`
	IsStale    bool            `json:"isStale"`
}

func (c *ScoreCache) GetScore(ctx context.Context, key model.PairKey) (model.MatchScore, error) {
	raw, err := c.client.Get(ctx, ScoreKey(key)).Bytes()
	switch {
	case err == nil:
		var doc cachedScore
		if err := json.Unmarshal(raw, &doc); err != nil {
			return model.MatchScore{}, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		return model.MatchScore(doc), nil
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn(ctx, "redis read failed, using durable store", logger.Error(err))
	}

	score, err := c.durable.GetScore(ctx, key)
	if err != nil {
		return model.MatchScore{}, err
	}
	if !score.IsStale {
		c.put(ctx, score)
	}
	return score, nil
}

func (c *ScoreCache) UpsertScore(ctx context.Context, score model.MatchScore) error {
	if err := c.durable.UpsertScore(ctx, score); err != nil {
		return err
	}
	c.put(ctx, score)
	return nil
}

// put writes a score and its index entries. Redis failures are logged, the durable store stays authoritative.
func (c *ScoreCache) put(ctx context.Context, score model.MatchScore) {
	doc, err := json.Marshal(cachedScore(score))
	if err != nil {
		c.log.Error(ctx, "failed to encode score", logger.Error(err))
		return
	}
	key := ScoreKey(score.Key())
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, doc, c.ttl)
		pipe.SAdd(ctx, StudentIndexKey(score.StudentID), key)
		pipe.Expire(ctx, StudentIndexKey(score.StudentID), c.ttl)
		pipe.SAdd(ctx, ListingIndexKey(score.ListingID), key)
		pipe.Expire(ctx, ListingIndexKey(score.ListingID), c.ttl)
		return nil
	})
	if err != nil {
		c.log.Warn(ctx, "redis write failed", logger.Error(err), logger.String("key", key))
	}
}

func (c *ScoreCache) DeleteScore(ctx context.Context, key model.PairKey) error {
	if err := c.durable.DeleteScore(ctx, key); err != nil {
		return err
	}
	scoreKey := ScoreKey(key)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, scoreKey)
		pipe.SRem(ctx, StudentIndexKey(key.StudentID), scoreKey)
		pipe.SRem(ctx, ListingIndexKey(key.ListingID), scoreKey)
		return nil
	})
	if err != nil {
		c.log.Warn(ctx, "redis delete failed", logger.Error(err), logger.String("key", scoreKey))
	}
	return nil
}

func (c *ScoreCache) MarkStudentStale(ctx context.Context, studentID string) (int, error) {
	n, err := c.durable.MarkStudentStale(ctx, studentID)
	if err != nil {
		return 0, err
	}
	c.EvictStudent(ctx, studentID)
	return n, nil
}

func (c *ScoreCache) MarkListingStale(ctx context.Context, listingID string) ([]string, error) {
	students, err := c.durable.MarkListingStale(ctx, listingID)
	if err != nil {
		return nil, err
	}
	c.EvictListing(ctx, listingID)
	return students, nil
}

// EvictStudent drops the student's cached scores without touching the durable store.
// It is used after stale marks were committed through another handle.
func (c *ScoreCache) EvictStudent(ctx context.Context, studentID string) {
	c.evict(ctx, StudentIndexKey(studentID))
}

// EvictListing drops the listing's cached scores without touching the durable store.
func (c *ScoreCache) EvictListing(ctx context.Context, listingID string) {
	c.evict(ctx, ListingIndexKey(listingID))
}

// evict drops every score referenced by an index set, then the set itself.
func (c *ScoreCache) evict(ctx context.Context, indexKey string) {
	keys, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		c.log.Warn(ctx, "redis index read failed", logger.Error(err), logger.String("index", indexKey))
		return
	}
	keys = append(keys, indexKey)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn(ctx, "redis eviction failed", logger.Error(err), logger.String("index", indexKey))
	}
}

// StaleForStudent reads the durable store; Redis never holds stale rows.
func (c *ScoreCache) StaleForStudent(ctx context.Context, studentID string, limit int) ([]model.MatchScore, error) {
	return c.durable.StaleForStudent(ctx, studentID, limit)
}
