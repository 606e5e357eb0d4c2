package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitWritesJSONFile(t *testing.T) {
	restore := Replace(nil)
	t.Cleanup(restore)

	path := filepath.Join(t.TempDir(), "nested", "etl.log")
	if err := Init(Options{Level: "debug", ToFile: true, File: path, Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Info("run_start", zap.String("run_id", "r-1"))
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(raw)
	if !strings.Contains(line, `"msg":"run_start"`) || !strings.Contains(line, `"run_id":"r-1"`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
