package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("PANETERM_DIR", t.TempDir())
	cfg, err := Reload()
	if err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if cfg.Shell.Program != "" {
		t.Errorf("expected empty shell override, got %q", cfg.Shell.Program)
	}
	if got := cfg.History.GetOutputFlushSecs(); got != 5 {
		t.Errorf("default output flush = %d, want 5", got)
	}
	if got := cfg.History.GetHistoryFlushSecs(); got != 30 {
		t.Errorf("default history flush = %d, want 30", got)
	}
	if got := cfg.History.GetSessionGapMins(); got != 30 {
		t.Errorf("default session gap = %d, want 30", got)
	}
	if got := cfg.History.GetSearchLimit(); got != 50 {
		t.Errorf("default search limit = %d, want 50", got)
	}
}

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANETERM_DIR", dir)

	content := `
[shell]
program = "/bin/zsh"

[history]
output_flush_secs = 2
session_gap_mins = 10

[log]
level = "debug"
debug = true
`
	if err := os.WriteFile(filepath.Join(dir, UserConfigFileName), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Reload()
	if err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if cfg.Shell.Program != "/bin/zsh" {
		t.Errorf("shell program = %q, want /bin/zsh", cfg.Shell.Program)
	}
	if got := cfg.History.GetOutputFlushSecs(); got != 2 {
		t.Errorf("output flush = %d, want 2", got)
	}
	if got := cfg.History.GetSessionGapMins(); got != 10 {
		t.Errorf("session gap = %d, want 10", got)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Debug {
		t.Errorf("log settings not parsed: %+v", cfg.Log)
	}
	// Unset values still default.
	if got := cfg.History.GetHistoryFlushSecs(); got != 30 {
		t.Errorf("history flush = %d, want default 30", got)
	}
}

func TestLoadMalformedReturnsDefaultsAndError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANETERM_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, UserConfigFileName), []byte("[shell\nbroken"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Reload()
	if err == nil {
		t.Error("expected parse error for malformed config")
	}
	if cfg == nil {
		t.Fatal("expected default config despite parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("PANETERM_DIR", t.TempDir())

	want := &UserConfig{}
	want.Shell.Program = "/usr/bin/fish"
	want.History.SearchLimit = 25

	if err := Save(want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := Reload()
	if err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if got.Shell.Program != "/usr/bin/fish" {
		t.Errorf("shell program = %q, want /usr/bin/fish", got.Shell.Program)
	}
	if got.History.GetSearchLimit() != 25 {
		t.Errorf("search limit = %d, want 25", got.History.GetSearchLimit())
	}
}

func TestHistoryDirUnderPanetermDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANETERM_DIR", dir)

	got, err := HistoryDir()
	if err != nil {
		t.Fatalf("HistoryDir() error: %v", err)
	}
	if got != filepath.Join(dir, "history") {
		t.Errorf("HistoryDir() = %q, want %q", got, filepath.Join(dir, "history"))
	}
}
