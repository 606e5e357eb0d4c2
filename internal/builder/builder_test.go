package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/ninedt-etl/internal/config"
	"github.com/park285/ninedt-etl/internal/store"
)

func TestOpenSinkSchemes(t *testing.T) {
	ctx := context.Background()
	for _, dsn := range []string{"", "memory", "MEMORY"} {
		s, err := OpenSink(ctx, dsn, nil)
		if err != nil {
			t.Fatalf("OpenSink(%q): %v", dsn, err)
		}
		if _, ok := s.(*store.Memory); !ok {
			t.Fatalf("OpenSink(%q) = %T, want *store.Memory", dsn, s)
		}
	}

	path := filepath.Join(t.TempDir(), "out", "9dt.db")
	s, err := OpenSink(ctx, "sqlite://"+path, nil)
	if err != nil {
		t.Fatalf("OpenSink sqlite: %v", err)
	}
	defer s.Close()
	lite, ok := s.(*store.SQLite)
	if !ok {
		t.Fatalf("got %T, want *store.SQLite", s)
	}
	if err := lite.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	if _, err := OpenSink(ctx, "mysql://root@localhost/db", nil); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}

func TestNewWiresLedger(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	cfg := &config.AppConfig{DatabaseURL: "memory", RedisURL: fmt.Sprintf("redis://%s/0", mr.Addr())}
	deps, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer deps.Close()
	if deps.Service == nil || deps.Fetch == nil || !deps.Ledger.Enabled() {
		t.Fatalf("incomplete deps: %+v", deps)
	}

	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
