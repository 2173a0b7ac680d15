// Package livecache mirrors in-memory session state into Redis for
// operational inspection. Snapshots expire on their own; the mirror is never
// authoritative for gameplay.
package livecache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkang-dev/chessio-server/internal/store"
)

const snapshotTTL = 24 * time.Hour

type Cache struct {
	rdb *redis.Client
}

// New dials Redis from a redis:// URL and verifies connectivity.
func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{rdb: rdb}, nil
}

// NewWithClient wraps an existing client. Test hook.
func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

var _ store.LiveMirror = (*Cache)(nil)

// Save writes the snapshot and indexes it under both participants.
func (c *Cache) Save(ctx context.Context, snap *store.LiveSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, sessionKey(snap.ID), raw, snapshotTTL).Err(); err != nil {
		return err
	}
	for _, user := range []string{snap.WhitePlayer, snap.BlackPlayer} {
		key := idxUserKey(user)
		if err := c.rdb.SAdd(ctx, key, snap.ID).Err(); err != nil {
			return err
		}
		_ = c.rdb.Expire(ctx, key, snapshotTTL).Err()
	}
	return nil
}

// Get returns a snapshot by session id, or nil when absent or expired.
func (c *Cache) Get(ctx context.Context, id string) (*store.LiveSnapshot, error) {
	raw, err := c.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap store.LiveSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ActiveByUser returns the most recently updated active snapshot the user
// participates in, or nil.
func (c *Cache) ActiveByUser(ctx context.Context, user string) (*store.LiveSnapshot, error) {
	ids, err := c.rdb.SMembers(ctx, idxUserKey(user)).Result()
	if err != nil {
		return nil, err
	}
	var active []*store.LiveSnapshot
	for _, id := range ids {
		snap, err := c.Get(ctx, id)
		if err != nil || snap == nil {
			continue
		}
		if snap.Status == "ACTIVE" {
			active = append(active, snap)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	sort.Slice(active, func(i, j int) bool { return active[i].UpdatedAt.After(active[j].UpdatedAt) })
	return active[0], nil
}

func sessionKey(id string) string   { return "session:live:" + id }
func idxUserKey(user string) string { return "session:index:user:" + user }
