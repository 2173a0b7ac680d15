package livecache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mkang-dev/chessio-server/internal/store"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewWithClient(rdb)
}

func snap(id, white, black, status string, updated time.Time) *store.LiveSnapshot {
	return &store.LiveSnapshot{
		ID:          id,
		WhitePlayer: white,
		BlackPlayer: black,
		MovesUCI:    []string{"e2e4"},
		Turn:        "black",
		Status:      status,
		CreatedAt:   updated.Add(-time.Minute),
		UpdatedAt:   updated,
	}
}

func TestSaveGetRoundtrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	in := snap("s1", "alice", "bob", "ACTIVE", time.Now().UTC().Truncate(time.Second))
	if err := c.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := c.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out == nil {
		t.Fatalf("snapshot missing")
	}
	if out.WhitePlayer != "alice" || out.BlackPlayer != "bob" || out.Turn != "black" {
		t.Fatalf("unexpected snapshot: %+v", out)
	}
	if len(out.MovesUCI) != 1 || out.MovesUCI[0] != "e2e4" {
		t.Fatalf("moves not preserved: %v", out.MovesUCI)
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	c := newTestCache(t)
	out, err := c.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil for absent snapshot, got %+v", out)
	}
}

func TestActiveByUserPicksNewestActive(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := c.Save(ctx, snap("old", "alice", "bob", "ACTIVE", now.Add(-time.Hour))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := c.Save(ctx, snap("done", "alice", "carol", "FINISHED", now)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := c.Save(ctx, snap("new", "dave", "alice", "ACTIVE", now)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := c.ActiveByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ActiveByUser: %v", err)
	}
	if got == nil || got.ID != "new" {
		t.Fatalf("expected newest active snapshot, got %+v", got)
	}

	none, err := c.ActiveByUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("ActiveByUser: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for unknown user")
	}
}

func TestFinishedOnlyUserHasNoActive(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Save(ctx, snap("done", "alice", "bob", "FINISHED", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := c.ActiveByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("ActiveByUser: %v", err)
	}
	if got != nil {
		t.Fatalf("finished snapshots must not be reported active")
	}
}
