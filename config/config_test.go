package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gapcoin-go/gapwork/internal/arith"
)

func TestLoadFileMissingIsEmpty(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty map for missing file, got %v", values)
	}
}

func TestLoadFileParsesKeyValuePairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gapsieved.conf")
	content := "# comment\nshift = 24\ntarget-difficulty = \"12345\"\nlog.level = debug\n\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if values["shift"] != "24" {
		t.Fatalf("shift = %q, want 24", values["shift"])
	}
	if values["target-difficulty"] != "12345" {
		t.Fatalf("target-difficulty = %q, want 12345 (quotes stripped)", values["target-difficulty"])
	}
	if values["log.level"] != "debug" {
		t.Fatalf("log.level = %q, want debug", values["log.level"])
	}
}

func TestLoadFileRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("not-a-kv-pair\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected an error for a malformed line")
	}
}

func TestApplyFileConfigOverridesDefaults(t *testing.T) {
	cfg := Defaults()
	values := map[string]string{
		"shift":     "28",
		"threads":   "4",
		"testnet":   "true",
		"log.level": "warn",
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Shift != 28 {
		t.Fatalf("Shift = %d, want 28", cfg.Shift)
	}
	if cfg.Threads != 4 {
		t.Fatalf("Threads = %d, want 4", cfg.Threads)
	}
	if !cfg.Testnet {
		t.Fatal("Testnet should be true")
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestApplyFlagsTakesPrecedenceOverFileValues(t *testing.T) {
	cfg := Defaults()
	cfg.Shift = 28 // simulate a file value already applied

	flags := &Flags{Shift: 30}
	ApplyFlags(cfg, flags)

	if cfg.Shift != 30 {
		t.Fatalf("Shift = %d, want 30 (flags must win over file)", cfg.Shift)
	}
}

func TestDefaultsMeetMinimumDifficultyFloor(t *testing.T) {
	cfg := Defaults()
	if cfg.TargetDifficulty < arith.MinDifficulty {
		t.Fatalf("default target difficulty %d is below the mainnet floor %d", cfg.TargetDifficulty, uint64(arith.MinDifficulty))
	}
	if cfg.Threads < 1 {
		t.Fatal("default thread count should be at least 1")
	}
}
