package envpath

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands environment variables and a ~ prefix in a path.
func ExpandPath(path string) string {
	// Env vars first, so $HOME/.env resolves before the tilde check and
	// ${VAR} works in any position.
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	return path
}

// ResolveAgainst expands path and, when it is still relative, resolves it
// against base. Used by the cd heuristic to track working directories.
func ResolveAgainst(path, base string) string {
	expanded := ExpandPath(path)
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded)
	}
	return filepath.Clean(filepath.Join(base, expanded))
}
