package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	oldV, oldC := Version, Commit
	defer func() { Version, Commit = oldV, oldC }()

	Version, Commit = "v9.9.9", "0123456789abcdef"
	if got := Get(); got != "v9.9.9 (0123456)" {
		t.Errorf("Get() = %q", got)
	}

	Commit = "abc"
	if got := Get(); got != "v9.9.9 (abc)" {
		t.Errorf("Get() = %q", got)
	}

	Version = " v1.0.0\n"
	if got := Get(); !strings.HasPrefix(got, "v1.0.0") {
		t.Errorf("Get() = %q, want trimmed version", got)
	}
}
