package process

// KillProcessGroup is only exercised with an invalid PID: PID 0 would target
// the current process group and real PIDs are not safe to kill from a test.

import (
	"os/exec"
	"testing"
)

func TestKillProcessGroup_InvalidPID(t *testing.T) {
	t.Parallel()

	KillProcessGroup(999999999)
}

func TestIsolate_SetsCancel(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("true")
	Isolate(cmd)

	if cmd.Cancel == nil {
		t.Fatal("Isolate() did not set Cancel")
	}
	// Not started: Cancel must be a no-op.
	if err := cmd.Cancel(); err != nil {
		t.Errorf("Cancel() on unstarted command = %v, want nil", err)
	}
}
