package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/werklead/go-ingest/internal/domain"
)

// CursorStore persists the per-source resume pointer between runs, so a
// budget-limited run continues paging instead of restarting at page 1.
type CursorStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCursorStore creates a Redis-backed cursor store.
func NewCursorStore(client *redis.Client) *CursorStore {
	return &CursorStore{client: client, ttl: 7 * 24 * time.Hour}
}

func cursorKey(sourceSlug string) string {
	return "cursor:" + sourceSlug
}

// Load returns the saved cursor, or nil when the source has no pending
// resume point.
func (c *CursorStore) Load(ctx context.Context, sourceSlug string) (*domain.RunCursor, error) {
	raw, err := c.client.Get(ctx, cursorKey(sourceSlug)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cursor: %w", err)
	}

	var cursor domain.RunCursor
	if err := json.Unmarshal([]byte(raw), &cursor); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	return &cursor, nil
}

// Save persists the resume pointer.
func (c *CursorStore) Save(ctx context.Context, sourceSlug string, cursor *domain.RunCursor) error {
	cursor.UpdatedAt = time.Now()
	raw, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("encode cursor: %w", err)
	}
	if err := c.client.Set(ctx, cursorKey(sourceSlug), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

// Clear removes the cursor once a source has been fully paged.
func (c *CursorStore) Clear(ctx context.Context, sourceSlug string) error {
	if err := c.client.Del(ctx, cursorKey(sourceSlug)).Err(); err != nil {
		return fmt.Errorf("clear cursor: %w", err)
	}
	return nil
}
