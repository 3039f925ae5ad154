package pane

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// testShell is spawned instead of the user's login shell so tests are
// hermetic and fast.
const testShell = "/bin/sh"

// recordingSubscriber collects events for assertions.
type recordingSubscriber struct {
	mu     sync.Mutex
	output map[int][]byte
	exits  map[int]int
}

func newRecordingSubscriber() *recordingSubscriber {
	return &recordingSubscriber{
		output: make(map[int][]byte),
		exits:  make(map[int]int),
	}
}

func (r *recordingSubscriber) PaneOutput(paneID int, data []byte) {
	r.mu.Lock()
	r.output[paneID] = append(r.output[paneID], data...)
	r.mu.Unlock()
}

func (r *recordingSubscriber) PaneExit(paneID int, exitCode int) {
	r.mu.Lock()
	r.exits[paneID] = exitCode
	r.mu.Unlock()
}

func (r *recordingSubscriber) exited(paneID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.exits[paneID]
	return ok
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestCreateAndKill(t *testing.T) {
	sv := NewSupervisor(testShell)
	defer sv.KillAll()

	dir := t.TempDir()
	if !sv.Create(0, dir) {
		t.Fatal("Create returned false")
	}
	if !sv.Live(0) {
		t.Fatal("expected live session after Create")
	}

	sv.Kill(0)
	if !waitFor(t, 2*time.Second, func() bool { return !sv.Live(0) }) {
		t.Error("session still live after Kill")
	}

	// Kill on a dead pane is a no-op.
	sv.Kill(0)
	sv.Kill(99)
}

func TestCreateReplacesExistingSession(t *testing.T) {
	sv := NewSupervisor(testShell)
	defer sv.KillAll()

	dir := t.TempDir()
	if !sv.Create(1, dir) {
		t.Fatal("first Create failed")
	}
	firstPid, ok := sv.Pid(1)
	if !ok {
		t.Fatal("no pid for first session")
	}

	if !sv.Create(1, dir) {
		t.Fatal("second Create failed")
	}
	secondPid, ok := sv.Pid(1)
	if !ok {
		t.Fatal("no pid for second session")
	}

	if firstPid == secondPid {
		t.Error("second Create did not replace the first session")
	}
	if !sv.Live(1) {
		t.Error("expected exactly one live session after double Create")
	}
}

func TestCreateInvalidPane(t *testing.T) {
	sv := NewSupervisor(testShell)
	if sv.Create(-1, "") {
		t.Error("Create(-1) should fail")
	}
	if sv.Create(MaxPanes, "") {
		t.Error("Create(MaxPanes) should fail")
	}
}

func TestCreateSpawnFailureReturnsFalse(t *testing.T) {
	sv := NewSupervisor("/nonexistent/shell/binary")
	if sv.Create(0, t.TempDir()) {
		t.Error("Create with bogus shell should return false")
	}
	if sv.Live(0) {
		t.Error("failed spawn must not leave a registered session")
	}
}

func TestCwdSeededAtCreation(t *testing.T) {
	sv := NewSupervisor(testShell)
	defer sv.KillAll()

	dir := t.TempDir()
	resolved, _ := filepath.EvalSymlinks(dir)

	if !sv.Create(2, dir) {
		t.Fatal("Create failed")
	}

	cwd, ok := sv.Cwd(2)
	if !ok {
		t.Fatal("Cwd reported missing pane")
	}
	if cwd != dir && cwd != resolved {
		t.Errorf("Cwd = %q, want %q", cwd, dir)
	}

	if _, ok := sv.Cwd(3); ok {
		t.Error("Cwd for missing pane should report false")
	}
}

func TestCdHeuristicUpdatesTrackedCwd(t *testing.T) {
	sv := NewSupervisor(testShell)
	defer sv.KillAll()

	dir := t.TempDir()
	if !sv.Create(0, dir) {
		t.Fatal("Create failed")
	}

	// The target does not need to exist; the estimate is advisory.
	sv.Write(0, []byte("cd sub\n"))

	tracked, ok := sv.TrackedCwd(0)
	if !ok {
		t.Fatal("TrackedCwd reported missing pane")
	}
	if tracked != filepath.Join(dir, "sub") {
		t.Errorf("tracked cwd = %q, want %q", tracked, filepath.Join(dir, "sub"))
	}

	// Non-cd input leaves the estimate alone.
	sv.Write(0, []byte("echo hi\n"))
	tracked, _ = sv.TrackedCwd(0)
	if tracked != filepath.Join(dir, "sub") {
		t.Errorf("tracked cwd changed on non-cd input: %q", tracked)
	}
}

func TestOutputAndExitEvents(t *testing.T) {
	sv := NewSupervisor(testShell)
	defer sv.KillAll()

	sub := newRecordingSubscriber()
	cancel := sv.Subscribe(sub)
	defer cancel()

	if !sv.Create(0, t.TempDir()) {
		t.Fatal("Create failed")
	}

	sv.Write(0, []byte("echo paneterm-marker\n"))
	ok := waitFor(t, 5*time.Second, func() bool {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		return len(sub.output[0]) > 0
	})
	if !ok {
		t.Fatal("no output received from shell")
	}

	sv.Write(0, []byte("exit\n"))
	if !waitFor(t, 5*time.Second, func() bool { return sub.exited(0) }) {
		t.Error("exit event not delivered")
	}
	if sv.Live(0) {
		t.Error("session still registered after shell exit")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	sv := NewSupervisor(testShell)
	defer sv.KillAll()

	sub := newRecordingSubscriber()
	cancel := sv.Subscribe(sub)
	cancel()

	if !sv.Create(0, t.TempDir()) {
		t.Fatal("Create failed")
	}
	sv.Write(0, []byte("echo hello\n"))
	time.Sleep(200 * time.Millisecond)

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if len(sub.output[0]) != 0 {
		t.Error("unsubscribed subscriber still received output")
	}
}

func TestResizeAndWriteMissingPane(t *testing.T) {
	sv := NewSupervisor(testShell)
	// Both must be silent no-ops.
	sv.Resize(0, 120, 40)
	sv.Write(0, []byte("ls\n"))
}

func TestAllCwds(t *testing.T) {
	sv := NewSupervisor(testShell)
	defer sv.KillAll()

	dirA := t.TempDir()
	dirB := t.TempDir()
	if !sv.Create(0, dirA) || !sv.Create(1, dirB) {
		t.Fatal("Create failed")
	}

	cwds := sv.AllCwds()
	if len(cwds) != 2 {
		t.Fatalf("AllCwds returned %d entries, want 2", len(cwds))
	}
	for id, want := range map[int]string{0: dirA, 1: dirB} {
		resolved, _ := filepath.EvalSymlinks(want)
		if cwds[id] != want && cwds[id] != resolved {
			t.Errorf("pane %d cwd = %q, want %q", id, cwds[id], want)
		}
	}
}

func TestMergedEnv(t *testing.T) {
	t.Setenv("LANG", "")
	env := mergedEnv()

	var hasTerm, hasPath, hasSessionsFlag bool
	for _, kv := range env {
		switch {
		case kv == "TERM=xterm-256color":
			hasTerm = true
		case len(kv) > 5 && kv[:5] == "PATH=":
			hasPath = true
		case kv == "SHELL_SESSIONS_DISABLE=1":
			hasSessionsFlag = true
		}
	}
	if !hasTerm {
		t.Error("merged env missing TERM identity")
	}
	if !hasPath {
		t.Error("merged env missing resolved PATH")
	}
	if !hasSessionsFlag {
		t.Error("merged env missing SHELL_SESSIONS_DISABLE")
	}
}
