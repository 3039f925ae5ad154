package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// createTestRepo initializes a git repo with one commit.
func createTestRepo(t *testing.T, dir string) {
	t.Helper()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v: %s", args, err, out)
		}
	}

	run("init", "-b", "main")
	run("config", "user.email", "test@test.com")
	run("config", "user.name", "Test User")

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	run("add", ".")
	run("commit", "-m", "initial commit")
}

func TestProbeNonRepo(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st := Probe(ctx, dir)
	if st == nil {
		t.Fatal("Probe returned nil")
	}
	if st.IsGitRepo {
		t.Error("expected IsGitRepo=false for plain directory")
	}

	// Probing the same non-repo twice, then a removed directory, must
	// stay calm both times.
	st2 := Probe(ctx, dir)
	if st2.IsGitRepo {
		t.Error("second probe should also report IsGitRepo=false")
	}

	gone := filepath.Join(dir, "vanishes")
	if err := os.Mkdir(gone, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	if st := Probe(ctx, gone); st.IsGitRepo {
		t.Error("expected IsGitRepo=false for removed directory")
	}
}

func TestProbeCleanRepo(t *testing.T) {
	dir := t.TempDir()
	createTestRepo(t, dir)

	st := Probe(context.Background(), dir)
	if !st.IsGitRepo {
		t.Fatal("expected IsGitRepo=true")
	}
	if st.Branch != "main" {
		t.Errorf("Branch = %q, want main", st.Branch)
	}
	if st.Dirty != 0 {
		t.Errorf("Dirty = %d, want 0", st.Dirty)
	}
	// No upstream configured: counts degrade to zero, not failure.
	if st.Ahead != 0 || st.Behind != 0 {
		t.Errorf("Ahead/Behind = %d/%d, want 0/0 without upstream", st.Ahead, st.Behind)
	}
}

func TestProbeDirtyCount(t *testing.T) {
	dir := t.TempDir()
	createTestRepo(t, dir)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	st := Probe(context.Background(), dir)
	if st.Dirty != 3 {
		t.Errorf("Dirty = %d, want 3", st.Dirty)
	}
}

func TestProbeDetachedHeadFallsBackToHash(t *testing.T) {
	dir := t.TempDir()
	createTestRepo(t, dir)

	cmd := exec.Command("git", "checkout", "--detach", "HEAD")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git checkout --detach failed: %v: %s", err, out)
	}

	st := Probe(context.Background(), dir)
	if !st.IsGitRepo {
		t.Fatal("expected IsGitRepo=true")
	}
	if st.Branch == "" || st.Branch == "main" {
		t.Errorf("Branch = %q, want short hash or tag on detached HEAD", st.Branch)
	}
}

func TestProbeExactTag(t *testing.T) {
	dir := t.TempDir()
	createTestRepo(t, dir)

	for _, args := range [][]string{
		{"tag", "v1.0.0"},
		{"checkout", "--detach", "v1.0.0"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v: %s", args, err, out)
		}
	}

	st := Probe(context.Background(), dir)
	if st.Branch != "v1.0.0" {
		t.Errorf("Branch = %q, want exact tag v1.0.0", st.Branch)
	}
}

func TestProbeAheadOfUpstream(t *testing.T) {
	upstream := t.TempDir()
	createTestRepo(t, upstream)

	clone := filepath.Join(t.TempDir(), "clone")
	if out, err := exec.Command("git", "clone", upstream, clone).CombinedOutput(); err != nil {
		t.Fatalf("git clone failed: %v: %s", err, out)
	}

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = clone
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v: %s", args, err, out)
		}
	}
	run("config", "user.email", "test@test.com")
	run("config", "user.name", "Test User")

	if err := os.WriteFile(filepath.Join(clone, "new.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "-m", "local change")

	st := Probe(context.Background(), clone)
	if st.Ahead != 1 {
		t.Errorf("Ahead = %d, want 1", st.Ahead)
	}
	if st.Behind != 0 {
		t.Errorf("Behind = %d, want 0", st.Behind)
	}
}
