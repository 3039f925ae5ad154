package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitAndComponentLogger(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "debug", Format: "json", Debug: true})
	defer Shutdown()

	log := ForComponent(CompPane)
	log.Info("pane_spawned", slog.Int("pane", 2))

	data, err := os.ReadFile(filepath.Join(dir, "paneterm.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"component":"pane"`) {
		t.Errorf("log record missing component field: %s", content)
	}
	if !strings.Contains(content, "pane_spawned") {
		t.Errorf("log record missing message: %s", content)
	}
}

func TestComponentLoggerCreatedBeforeInit(t *testing.T) {
	// Package-level loggers are created before Init runs; they must pick
	// up the real handler once Init configures one.
	Shutdown()
	log := ForComponent(CompHistory)

	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "info", Debug: true})
	defer Shutdown()

	log.Warn("flush_failed", slog.String("project", "abc"))

	data, err := os.ReadFile(filepath.Join(dir, "paneterm.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "flush_failed") {
		t.Errorf("expected record written after late Init, got: %s", data)
	}
}

func TestLoggerBeforeInitDiscards(t *testing.T) {
	Shutdown()
	// Must not panic.
	Logger().Info("dropped")
	ForComponent(CompVCS).Debug("dropped too")
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "warn", Debug: true})
	defer Shutdown()

	ForComponent(CompPipeline).Info("below_threshold")
	ForComponent(CompPipeline).Error("above_threshold")

	data, _ := os.ReadFile(filepath.Join(dir, "paneterm.log"))
	content := string(data)
	if strings.Contains(content, "below_threshold") {
		t.Error("info record should have been filtered at warn level")
	}
	if !strings.Contains(content, "above_threshold") {
		t.Error("error record should have been written")
	}
}
