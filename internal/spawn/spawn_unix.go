//go:build !windows

package spawn

import (
	"os"
	"os/exec"
	"syscall"
)

// configureCommand arranges for files (bootstrap pipe first) to be
// inherited by the worker and places the worker in its own process group so
// the whole tree can be signaled with one negative-pid kill. Inherited
// descriptors are renumbered from 3 in order, which is the token each file
// carries in the worker.
func configureCommand(cmd *exec.Cmd, files []*os.File) ([]uint64, error) {
	cmd.ExtraFiles = files
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	tokens := make([]uint64, len(files))
	for i := range files {
		tokens[i] = uint64(3 + i)
	}
	return tokens, nil
}

// ExtraToken reports the worker-side handle token of the i-th extra file
// passed to Spawn. Extras follow the bootstrap pipe, so they start at
// descriptor 4.
func ExtraToken(i int, f *os.File) uint64 {
	return uint64(4 + i)
}
