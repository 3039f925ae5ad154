package pane

import (
	"os"
	"regexp"
	"strings"

	"github.com/twistedxcom/paneterm/internal/envpath"
)

// cdPattern matches a plain `cd` or `cd <path>` command and nothing else.
// Compound statements (cd a && make), aliases, and subshells are left to
// the authoritative probe; this is a between-probes estimate only.
var cdPattern = regexp.MustCompile(`^cd(?:\s+([^\s;&|<>]+))?$`)

// nextCwdFromInput inspects one chunk of pane input and, when it is a
// plain cd command, returns the new tracked working directory.
func nextCwdFromInput(input, current string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	m := cdPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}

	arg := strings.Trim(m[1], `"'`)
	if arg == "" || arg == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		return home, true
	}

	return envpath.ResolveAgainst(arg, current), true
}
