//go:build windows

package spawn

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// configureCommand marks files (bootstrap pipe first) inheritable and lists
// them for the worker. Handle values keep their identity across the launch
// on Windows, so each file's token is its own handle value. Descriptors
// default to non-inheritable here, hence the explicit flag per handle.
func configureCommand(cmd *exec.Cmd, files []*os.File) ([]uint64, error) {
	handles := make([]syscall.Handle, len(files))
	tokens := make([]uint64, len(files))
	for i, f := range files {
		h := windows.Handle(f.Fd())
		if err := windows.SetHandleInformation(h, windows.HANDLE_FLAG_INHERIT, windows.HANDLE_FLAG_INHERIT); err != nil {
			return nil, fmt.Errorf("mark handle inheritable: %w", err)
		}
		handles[i] = syscall.Handle(h)
		tokens[i] = uint64(h)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{AdditionalInheritedHandles: handles}
	return tokens, nil
}

// ExtraToken reports the worker-side handle token of the i-th extra file
// passed to Spawn: on Windows the handle value itself.
func ExtraToken(i int, f *os.File) uint64 {
	return uint64(f.Fd())
}
