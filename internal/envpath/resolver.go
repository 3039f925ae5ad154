// Package envpath discovers the executable search path of the user's
// interactive login shell. Login shells run profile scripts that plain
// spawns do not, so a pty shell spawned with the inherited PATH often
// cannot find user-installed tools (homebrew, nvm, cargo, ...).
package envpath

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/twistedxcom/paneterm/internal/logging"
)

var log = logging.ForComponent(logging.CompEnv)

// lookupTimeout bounds the login-shell probe. A shell stuck in a slow
// profile script must not stall pane creation.
const lookupTimeout = 3 * time.Second

// pathMarker prefixes the line carrying $PATH so interactive-shell banner
// noise can be skipped.
const pathMarker = "__PANETERM_PATH__"

// fallbackDirs are common installation directories prepended to the
// inherited PATH when discovery fails.
var fallbackDirs = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
	"/opt/homebrew/sbin",
	"/usr/bin",
	"/bin",
	"/usr/sbin",
	"/sbin",
}

var (
	once   sync.Once
	cached string
)

// Lookup returns the login shell's fully resolved PATH, memoized for the
// process lifetime.
func Lookup() string {
	once.Do(func() {
		cached = discover()
	})
	return cached
}

func discover() string {
	shell := LoginShell()

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	// -l -i so profile and rc scripts both run, matching what the user
	// sees in a real terminal.
	cmd := exec.CommandContext(ctx, shell, "-ilc", "echo "+pathMarker+"$PATH")
	out, err := cmd.Output()
	if err != nil {
		log.Warn("login_shell_path_lookup_failed",
			slog.String("shell", shell),
			slog.String("error", err.Error()))
		return fallbackPath()
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, pathMarker); ok && rest != "" {
			return rest
		}
	}

	log.Warn("login_shell_path_marker_missing", slog.String("shell", shell))
	return fallbackPath()
}

// fallbackPath concatenates the static directory list with the inherited
// PATH, deduplicated in order.
func fallbackPath() string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if dir != "" && !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range fallbackDirs {
		add(dir)
	}
	for _, dir := range strings.Split(os.Getenv("PATH"), ":") {
		add(dir)
	}
	return strings.Join(dirs, ":")
}

// LoginShell returns the user's configured shell, falling back to the
// platform default.
func LoginShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	if runtime.GOOS == "darwin" {
		return "/bin/zsh"
	}
	return "/bin/bash"
}
