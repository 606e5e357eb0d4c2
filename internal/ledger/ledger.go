// Package ledger keeps ETL run bookkeeping in Redis: a per-job lock so two
// loaders never write the same tables at once, and a short history of run summaries.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ttlRun      = 7 * 24 * time.Hour
	recentLimit = 50
)

var ErrLocked = errors.New("job is already running")

// RunSummary is what a finished run leaves behind.
type RunSummary struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Source     string    `json:"source,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Records    int `json:"records,omitempty"`
	Repaired   int `json:"repaired,omitempty"`
	Moves      int `json:"moves,omitempty"`
	Results    int `json:"results,omitempty"`
	Overwrites int `json:"overwrites,omitempty"`
	Filled     int `json:"filled,omitempty"`
	Unresolved int `json:"unresolved,omitempty"`
	Players    int `json:"players,omitempty"`

	Err string `json:"error,omitempty"`
}

func (s RunSummary) OK() bool { return s.Err == "" }

// Store is a Redis-backed ledger. The zero value and a nil *Store are no-ops,
// which is what runs get when REDIS_URL is unset.
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// Open connects to redisURL; an empty URL yields a no-op ledger.
func Open(ctx context.Context, redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return &Store{}, nil
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Enabled() bool { return s != nil && s.rdb != nil }

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) keyLock(job string) string { return "etl:lock:" + strings.TrimSpace(job) }
func (s *Store) keyRun(id string) string   { return "etl:run:" + strings.TrimSpace(id) }
func (s *Store) keyRecent() string         { return "etl:runs:recent" }

// only the holder may release
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire takes the job lock for runID. The returned release func is safe to
// call more than once and never removes a lock another run has since taken.
func (s *Store) Acquire(ctx context.Context, job, runID string, ttl time.Duration) (func(context.Context) error, error) {
	if !s.Enabled() {
		return func(context.Context) error { return nil }, nil
	}
	ok, err := s.rdb.SetNX(ctx, s.keyLock(job), runID, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", job, err)
	}
	if !ok {
		holder, _ := s.rdb.Get(ctx, s.keyLock(job)).Result()
		return nil, fmt.Errorf("%w: %s held by run %s", ErrLocked, job, holder)
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, s.rdb, []string{s.keyLock(job)}, runID).Err()
	}, nil
}

// Record stores the summary and pushes it onto the recent-runs index.
func (s *Store) Record(ctx context.Context, sum RunSummary) error {
	if !s.Enabled() {
		return nil
	}
	if strings.TrimSpace(sum.ID) == "" {
		return fmt.Errorf("run summary without id")
	}
	raw, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyRun(sum.ID), raw, ttlRun)
	pipe.LPush(ctx, s.keyRecent(), sum.ID)
	pipe.LTrim(ctx, s.keyRecent(), 0, recentLimit-1)
	pipe.Expire(ctx, s.keyRecent(), ttlRun)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Load(ctx context.Context, id string) (*RunSummary, error) {
	if !s.Enabled() {
		return nil, nil
	}
	raw, err := s.rdb.Get(ctx, s.keyRun(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sum RunSummary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// Recent returns up to n summaries, newest first. Expired entries are skipped.
func (s *Store) Recent(ctx context.Context, n int) ([]RunSummary, error) {
	if !s.Enabled() || n <= 0 {
		return nil, nil
	}
	ids, err := s.rdb.LRange(ctx, s.keyRecent(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(ids))
	for _, id := range ids {
		sum, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			continue
		}
		out = append(out, *sum)
	}
	return out, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
