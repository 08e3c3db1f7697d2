package version_test

import (
	"strings"
	"testing"

	"github.com/vsariola/bats/version"
)

func TestString(t *testing.T) {
	s := version.String()
	if !strings.HasPrefix(s, "bats ") || !strings.Contains(s, version.VersionOrHash) {
		t.Errorf("String() = %q", s)
	}
	if version.VersionOrHash == "" {
		t.Error("VersionOrHash is empty")
	}
}
