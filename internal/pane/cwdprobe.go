package pane

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// probeTimeout bounds the external lsof invocation on macOS. The proc
// filesystem read on Linux is effectively instant.
const probeTimeout = time.Second

var errUnsupportedPlatform = errors.New("cwd probe not supported on this platform")

// probeCwd asks the OS for a process's current working directory.
func probeCwd(pid int) (string, error) {
	switch runtime.GOOS {
	case "linux":
		return os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
	case "darwin":
		return lsofCwd(pid)
	default:
		return "", errUnsupportedPlatform
	}
}

// lsofCwd parses `lsof -a -p <pid> -d cwd -Fn` field output; the line
// starting with "n" carries the directory name.
func lsofCwd(pid int) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "lsof", "-a", "-p", fmt.Sprint(pid), "-d", "cwd", "-Fn").Output()
	if err != nil {
		return "", fmt.Errorf("lsof cwd probe: %w", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		if rest, ok := strings.CutPrefix(line, "n"); ok && rest != "" {
			return rest, nil
		}
	}
	return "", errors.New("lsof output missing cwd field")
}
