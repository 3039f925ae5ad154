package envpath

import (
	"strings"
	"testing"
)

func TestLookupNeverEmpty(t *testing.T) {
	path := Lookup()
	if path == "" {
		t.Fatal("Lookup() returned empty PATH")
	}
	if !strings.Contains(path, "/bin") {
		t.Errorf("Lookup() = %q, expected at least one bin directory", path)
	}
}

func TestLookupMemoized(t *testing.T) {
	first := Lookup()
	second := Lookup()
	if first != second {
		t.Errorf("Lookup() not stable: %q vs %q", first, second)
	}
}

func TestFallbackPathIncludesInherited(t *testing.T) {
	t.Setenv("PATH", "/custom/tools:/usr/bin")
	path := fallbackPath()

	if !strings.Contains(path, "/custom/tools") {
		t.Errorf("fallback PATH %q missing inherited entry", path)
	}
	if !strings.HasPrefix(path, "/usr/local/bin") {
		t.Errorf("fallback PATH %q should start with static list", path)
	}
	// /usr/bin appears in both the static list and the inherited PATH;
	// it must not be duplicated.
	if strings.Count(path, "/usr/bin:")+strings.Count(path, ":/usr/bin") > 2 {
		t.Errorf("fallback PATH %q contains duplicates", path)
	}
}

func TestLoginShellDefault(t *testing.T) {
	t.Setenv("SHELL", "")
	shell := LoginShell()
	if shell == "" {
		t.Fatal("LoginShell() returned empty string")
	}

	t.Setenv("SHELL", "/opt/shells/nu")
	if got := LoginShell(); got != "/opt/shells/nu" {
		t.Errorf("LoginShell() = %q, want configured $SHELL", got)
	}
}
