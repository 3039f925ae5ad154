// Package vcs probes git state for pane working directories. Every probe
// is bounded and best-effort: a broken or slow git must never block pane
// I/O, so failures degrade individual fields instead of erroring.
package vcs

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/twistedxcom/paneterm/internal/logging"
)

var log = logging.ForComponent(logging.CompVCS)

// stepTimeout bounds each individual git invocation.
const stepTimeout = time.Second

// Status is the result of one probe.
type Status struct {
	IsGitRepo bool   `json:"is_git_repo"`
	Branch    string `json:"branch,omitempty"`
	Ahead     int    `json:"ahead,omitempty"`
	Behind    int    `json:"behind,omitempty"`
	Dirty     int    `json:"dirty,omitempty"`
}

// Probe reports git state for dir. Only the work-tree check can fail the
// whole call (returning IsGitRepo:false); branch, ahead/behind, and dirty
// each degrade independently so a partial result is always available.
// Never returns an error and never panics, even if dir disappears
// mid-probe.
func Probe(ctx context.Context, dir string) *Status {
	if !insideWorkTree(ctx, dir) {
		return &Status{IsGitRepo: false}
	}

	st := &Status{IsGitRepo: true}
	st.Branch = branchLabel(ctx, dir)
	st.Ahead, st.Behind = aheadBehind(ctx, dir)
	st.Dirty = dirtyCount(ctx, dir)
	return st
}

// insideWorkTree checks whether dir is inside a git working tree.
func insideWorkTree(ctx context.Context, dir string) bool {
	out, err := gitOutput(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// branchLabel resolves a human label for HEAD through an ordered fallback
// chain: branch name, exact tag, short hash, literal "HEAD".
func branchLabel(ctx context.Context, dir string) string {
	if out, err := gitOutput(ctx, dir, "symbolic-ref", "--short", "-q", "HEAD"); err == nil && out != "" {
		return out
	}
	if out, err := gitOutput(ctx, dir, "describe", "--tags", "--exact-match"); err == nil && out != "" {
		return out
	}
	if out, err := gitOutput(ctx, dir, "rev-parse", "--short", "HEAD"); err == nil && out != "" {
		return out
	}
	return "HEAD"
}

// aheadBehind counts commits relative to the configured upstream. No
// upstream, or any error, yields 0/0.
func aheadBehind(ctx context.Context, dir string) (ahead, behind int) {
	out, err := gitOutput(ctx, dir, "rev-list", "--left-right", "--count", "@{upstream}...HEAD")
	if err != nil {
		return 0, 0
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0
	}
	// Left side of upstream...HEAD is commits only on the upstream.
	behind, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0
	}
	ahead, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0
	}
	return ahead, behind
}

// dirtyCount counts non-empty porcelain status lines. Errors yield 0.
func dirtyCount(ctx context.Context, dir string) int {
	out, err := gitOutput(ctx, dir, "status", "--porcelain")
	if err != nil {
		return 0
	}
	count := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// gitOutput runs one git command against dir with its own step timeout
// and returns trimmed stdout.
func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()

	full := append([]string{"-C", dir}, args...)
	out, err := exec.CommandContext(stepCtx, "git", full...).Output()
	if err != nil {
		log.Debug("git_probe_step_failed",
			slog.String("dir", dir),
			slog.String("args", strings.Join(args, " ")),
			slog.String("error", err.Error()))
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
