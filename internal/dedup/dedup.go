package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// VacancyIndex is the storage-side existence check, the source of truth
// behind the Redis seen-cache.
type VacancyIndex interface {
	VacancyExists(ctx context.Context, externalID string, sourceID int64) (bool, error)
}

// Deduplicator answers "has this posting been ingested before" using a
// Redis TTL cache in front of the vacancy table, so duplicate work is
// avoided before any detail fetch or extraction call is spent.
type Deduplicator struct {
	client     *redis.Client
	index      VacancyIndex
	prefix     string
	defaultTTL time.Duration
}

// NewDeduplicator creates a Redis-fronted deduplicator.
func NewDeduplicator(client *redis.Client, index VacancyIndex, prefix string, defaultTTL time.Duration) *Deduplicator {
	if prefix == "" {
		prefix = "vacancy:seen"
	}
	if defaultTTL == 0 {
		defaultTTL = 24 * time.Hour * 30
	}
	return &Deduplicator{
		client:     client,
		index:      index,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

// Exists reports whether the (external id, source id) pair was ingested
// before. A cache hit skips the database; a database hit backfills the
// cache. Cache errors fall through to the database rather than failing.
func (d *Deduplicator) Exists(ctx context.Context, sourceSlug string, sourceID int64, externalID string) (bool, error) {
	key := d.makeKey(sourceSlug, externalID)

	if d.client != nil {
		n, err := d.client.Exists(ctx, key).Result()
		if err == nil && n > 0 {
			return true, nil
		}
	}

	known, err := d.index.VacancyExists(ctx, externalID, sourceID)
	if err != nil {
		return false, fmt.Errorf("vacancy exists check: %w", err)
	}

	if known && d.client != nil {
		// Backfill so the next run short-circuits in Redis.
		d.client.Set(ctx, key, time.Now().Unix(), d.defaultTTL)
	}

	return known, nil
}

// MarkSeen records a freshly inserted posting in the cache.
func (d *Deduplicator) MarkSeen(ctx context.Context, sourceSlug, externalID string) error {
	if d.client == nil {
		return nil
	}
	key := d.makeKey(sourceSlug, externalID)
	if err := d.client.Set(ctx, key, time.Now().Unix(), d.defaultTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (d *Deduplicator) makeKey(sourceSlug, externalID string) string {
	return fmt.Sprintf("%s:%s:%s", d.prefix, sourceSlug, externalID)
}

// ContentHash derives the secondary fingerprint stored with every vacancy:
// title + company + city + url, case/whitespace folded.
func ContentHash(title, company, city, url string) string {
	parts := []string{title, company, city, url}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:16])
}
