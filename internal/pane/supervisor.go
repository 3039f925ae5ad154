// Package pane supervises pty-backed interactive shell processes, one per
// pane slot. The supervisor owns the pty handles exclusively; downstream
// consumers only ever see bytes and exit events.
package pane

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"

	"github.com/twistedxcom/paneterm/internal/envpath"
	"github.com/twistedxcom/paneterm/internal/logging"
)

var log = logging.ForComponent(logging.CompPane)

// MaxPanes is the fixed number of addressable pane slots.
const MaxPanes = 4

// Subscriber receives raw pane events. Output delivers the pty bytes
// verbatim; Exit fires once per terminated session.
type Subscriber interface {
	PaneOutput(paneID int, data []byte)
	PaneExit(paneID int, exitCode int)
}

// Session is one live pty-backed shell attached to a pane slot.
type Session struct {
	paneID int
	ptmx   *os.File
	cmd    *exec.Cmd

	mu         sync.Mutex
	trackedCwd string
}

// TrackedCwd returns the best-effort working directory estimate.
func (s *Session) TrackedCwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackedCwd
}

func (s *Session) setTrackedCwd(cwd string) {
	s.mu.Lock()
	s.trackedCwd = cwd
	s.mu.Unlock()
}

// Supervisor owns the pane registry. At most one live session exists per
// pane id; creating a new one tears down any existing session first.
type Supervisor struct {
	shellOverride string

	mu       sync.Mutex
	sessions map[int]*Session

	subMu   sync.RWMutex
	subs    map[int]Subscriber
	nextSub int
}

// NewSupervisor creates an empty supervisor. shellOverride, when non-empty,
// takes precedence over $SHELL and the platform default.
func NewSupervisor(shellOverride string) *Supervisor {
	return &Supervisor{
		shellOverride: shellOverride,
		sessions:      make(map[int]*Session),
		subs:          make(map[int]Subscriber),
	}
}

// Subscribe registers a subscriber for output and exit events and returns
// an unsubscribe handle.
func (sv *Supervisor) Subscribe(sub Subscriber) (cancel func()) {
	sv.subMu.Lock()
	id := sv.nextSub
	sv.nextSub++
	sv.subs[id] = sub
	sv.subMu.Unlock()

	return func() {
		sv.subMu.Lock()
		delete(sv.subs, id)
		sv.subMu.Unlock()
	}
}

// Create spawns a pty-backed shell for paneID, killing any existing
// session for that slot first. cwd falls back to the home directory.
// Returns false (and logs) on spawn failure; never panics across this
// boundary.
func (sv *Supervisor) Create(paneID int, cwd string) bool {
	if paneID < 0 || paneID >= MaxPanes {
		log.Warn("create_invalid_pane", slog.Int("pane", paneID))
		return false
	}

	sv.Kill(paneID)

	shell := sv.shellOverride
	if shell == "" {
		shell = envpath.LoginShell()
	}
	if cwd == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "/"
		}
		cwd = home
	}

	cmd := exec.Command(shell)
	cmd.Dir = cwd
	cmd.Env = mergedEnv()

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 80})
	if err != nil {
		log.Error("pty_spawn_failed",
			slog.Int("pane", paneID),
			slog.String("shell", shell),
			slog.String("error", err.Error()))
		return false
	}

	s := &Session{
		paneID:     paneID,
		ptmx:       ptmx,
		cmd:        cmd,
		trackedCwd: cwd,
	}

	sv.mu.Lock()
	sv.sessions[paneID] = s
	sv.mu.Unlock()

	go sv.readLoop(s)
	go sv.waitLoop(s)

	log.Info("pane_created",
		slog.Int("pane", paneID),
		slog.String("shell", shell),
		slog.String("cwd", cwd),
		slog.Int("pid", cmd.Process.Pid))
	return true
}

// readLoop pumps pty output to subscribers until the pty closes.
func (sv *Supervisor) readLoop(s *Session) {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			logging.Aggregate(logging.CompPane, "output_chunk", slog.Int("pane", s.paneID))
			sv.subMu.RLock()
			for _, sub := range sv.subs {
				sub.PaneOutput(s.paneID, chunk)
			}
			sv.subMu.RUnlock()
		}
		if err != nil {
			// EOF and EIO are both normal on pty close.
			if err != io.EOF {
				log.Debug("pty_read_ended",
					slog.Int("pane", s.paneID),
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

// waitLoop reaps the child, removes the session from the registry (unless
// a newer session already replaced it), and notifies exit subscribers.
func (sv *Supervisor) waitLoop(s *Session) {
	_ = s.cmd.Wait()
	exitCode := -1
	if s.cmd.ProcessState != nil {
		exitCode = s.cmd.ProcessState.ExitCode()
	}

	_ = s.ptmx.Close()

	sv.mu.Lock()
	if sv.sessions[s.paneID] == s {
		delete(sv.sessions, s.paneID)
	}
	sv.mu.Unlock()

	log.Info("pane_exited", slog.Int("pane", s.paneID), slog.Int("code", exitCode))

	sv.subMu.RLock()
	for _, sub := range sv.subs {
		sub.PaneExit(s.paneID, exitCode)
	}
	sv.subMu.RUnlock()
}

// Write forwards bytes to the pane's shell verbatim. A trimmed input that
// is a plain `cd <path>` command also updates the tracked working
// directory; that estimate is advisory and is overwritten whenever an
// authoritative probe succeeds.
func (sv *Supervisor) Write(paneID int, data []byte) {
	s := sv.session(paneID)
	if s == nil {
		return
	}

	if _, err := s.ptmx.Write(data); err != nil {
		log.Debug("pty_write_failed",
			slog.Int("pane", paneID),
			slog.String("error", err.Error()))
		return
	}

	if next, ok := nextCwdFromInput(string(data), s.TrackedCwd()); ok {
		s.setTrackedCwd(next)
	}
}

// Resize forwards a terminal-size change. No-op for a missing pane.
func (sv *Supervisor) Resize(paneID, cols, rows int) {
	s := sv.session(paneID)
	if s == nil {
		return
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
		log.Debug("pty_resize_failed",
			slog.Int("pane", paneID),
			slog.String("error", err.Error()))
	}
}

// Cwd returns the pane's working directory. It attempts an authoritative
// OS probe first; on success the fresh value overwrites the tracked
// estimate. On probe failure it returns the last tracked value. The
// second return is false when no such pane exists.
func (sv *Supervisor) Cwd(paneID int) (string, bool) {
	s := sv.session(paneID)
	if s == nil {
		return "", false
	}

	if cwd, err := probeCwd(s.cmd.Process.Pid); err == nil && cwd != "" {
		s.setTrackedCwd(cwd)
		return cwd, true
	}
	return s.TrackedCwd(), true
}

// AllCwds returns a best-effort authoritative snapshot of every live
// pane's working directory. Used by the shutdown path to persist pane
// state.
func (sv *Supervisor) AllCwds() map[int]string {
	sv.mu.Lock()
	ids := make([]int, 0, len(sv.sessions))
	for id := range sv.sessions {
		ids = append(ids, id)
	}
	sv.mu.Unlock()

	cwds := make(map[int]string, len(ids))
	for _, id := range ids {
		if cwd, ok := sv.Cwd(id); ok {
			cwds[id] = cwd
		}
	}
	return cwds
}

// TrackedCwd returns the best-effort working directory estimate without
// touching the OS. Seeded at creation, advanced by the cd heuristic,
// overwritten by successful probes.
func (sv *Supervisor) TrackedCwd(paneID int) (string, bool) {
	s := sv.session(paneID)
	if s == nil {
		return "", false
	}
	return s.TrackedCwd(), true
}

// Pid returns the shell pid for a pane, or false when absent.
func (sv *Supervisor) Pid(paneID int) (int, bool) {
	s := sv.session(paneID)
	if s == nil {
		return 0, false
	}
	return s.cmd.Process.Pid, true
}

// Live reports whether a session exists for paneID.
func (sv *Supervisor) Live(paneID int) bool {
	return sv.session(paneID) != nil
}

// Kill terminates and removes a pane's session. Safe no-op when absent.
func (sv *Supervisor) Kill(paneID int) {
	sv.mu.Lock()
	s := sv.sessions[paneID]
	delete(sv.sessions, paneID)
	sv.mu.Unlock()

	if s == nil {
		return
	}

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.ptmx.Close()
}

// KillAll terminates every live session.
func (sv *Supervisor) KillAll() {
	for id := 0; id < MaxPanes; id++ {
		sv.Kill(id)
	}
}

func (sv *Supervisor) session(paneID int) *Session {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.sessions[paneID]
}

// mergedEnv builds the child environment: inherited vars with the login
// shell's discovered PATH, a fixed terminal identity, a UTF-8 locale
// default, and the flag suppressing zsh "restored session" banners.
func mergedEnv() []string {
	env := os.Environ()
	out := make([]string, 0, len(env)+4)

	hasLang := false
	for _, kv := range env {
		switch {
		case strings.HasPrefix(kv, "PATH="):
			continue
		case strings.HasPrefix(kv, "TERM="):
			continue
		case strings.HasPrefix(kv, "LANG="):
			hasLang = true
		}
		out = append(out, kv)
	}

	out = append(out, "PATH="+envpath.Lookup())
	out = append(out, "TERM=xterm-256color")
	if !hasLang {
		out = append(out, "LANG=en_US.UTF-8")
	}
	out = append(out, "SHELL_SESSIONS_DISABLE=1")
	return out
}

// String implements fmt.Stringer for debug logging.
func (s *Session) String() string {
	return fmt.Sprintf("pane%d(pid=%d)", s.paneID, s.cmd.Process.Pid)
}
