package version

import (
	"strings"
	"testing"
)

func TestString_Defaults(t *testing.T) {
	t.Parallel()
	got := String()
	for _, want := range []string{"cafebot", Version, Commit, BuildDate} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
