package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if err := Setup(cfg); err == nil {
		t.Fatalf("expected error for level %q", cfg.Level)
	}
}

func TestSetupWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.Output = path
	if err := Setup(cfg); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level got %s", zerolog.GlobalLevel())
	}
	l := WithComponent("test")
	l.Info().Msg("hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 || data[0] != '{' {
		t.Fatalf("expected json line got %q", string(data))
	}
}

func TestUseConsole(t *testing.T) {
	if useConsole("json", 0, false) {
		t.Fatalf("json format must not use console writer")
	}
	if !useConsole("console", 0, true) {
		t.Fatalf("console format must use console writer")
	}
	if useConsole("auto", 0, true) {
		t.Fatalf("auto on a file must be json")
	}
}
