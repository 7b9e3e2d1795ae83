//go:build !windows

package procgroup

import (
	"os"
	"testing"
)

// On Windows this would enroll the test process itself in a kill-on-close
// job, so the idempotence property is only exercised on the no-op variant.
func TestAddIsIdempotent(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	defer g.Close()

	pid := os.Getpid()
	if err := g.Add(pid); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := g.Add(pid); err != nil {
		t.Fatalf("second add of same pid: %v", err)
	}
}
