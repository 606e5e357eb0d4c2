package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := Open(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestAcquireIsExclusive(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	release, err := s.Acquire(ctx, "games", "run-1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := s.Acquire(ctx, "games", "run-2", time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	// other jobs are independent
	if _, err := s.Acquire(ctx, "players", "run-2", time.Minute); err != nil {
		t.Fatalf("Acquire players: %v", err)
	}
	if ttl := mr.TTL("etl:lock:games"); ttl <= 0 {
		t.Fatalf("expected lock ttl, got %v", ttl)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("etl:lock:games") {
		t.Fatalf("lock still present after release")
	}
	if _, err := s.Acquire(ctx, "games", "run-3", time.Minute); err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	release, err := s.Acquire(ctx, "games", "run-1", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := s.Acquire(ctx, "games", "run-2", time.Minute); err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	got, err := mr.Get("etl:lock:games")
	if err != nil || got != "run-2" {
		t.Fatalf("lock = %q (%v), want run-2", got, err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		sum := RunSummary{
			ID: fmt.Sprintf("run-%d", i), Job: "games",
			StartedAt: base.Add(time.Duration(i) * time.Minute), FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Records: i * 10, Results: i,
		}
		if i == 2 {
			sum.Err = "sink failure"
		}
		if err := s.Record(ctx, sum); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].ID != "run-3" || got[1].ID != "run-2" {
		t.Fatalf("unexpected recent: %+v", got)
	}
	if got[1].OK() || !got[0].OK() {
		t.Fatalf("OK flags wrong: %+v", got)
	}
	if !got[0].StartedAt.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("started_at = %v", got[0].StartedAt)
	}

	missing, err := s.Load(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("Load missing = %v, %v", missing, err)
	}
}

func TestDisabledStoreIsNoop(t *testing.T) {
	s, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Enabled() {
		t.Fatalf("expected disabled store")
	}
	ctx := context.Background()
	release, err := s.Acquire(ctx, "games", "run-1", time.Minute)
	if err != nil || release(ctx) != nil {
		t.Fatalf("noop acquire failed: %v", err)
	}
	if err := s.Record(ctx, RunSummary{ID: "x"}); err != nil {
		t.Fatalf("noop record: %v", err)
	}
	var nilStore *Store
	if got, err := nilStore.Recent(ctx, 5); err != nil || got != nil {
		t.Fatalf("nil Recent = %v, %v", got, err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@cache:6380/2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if _, err := parseRedisURL("http://cache:6379"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := parseRedisURL("redis://cache:6379/x"); err == nil {
		t.Fatalf("expected db error")
	}
}
