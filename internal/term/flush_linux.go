//go:build linux

package term

import "golang.org/x/sys/unix"

// flush discards pending input and output so stale bytes from a dead worker
// do not replay into the restored terminal.
func flush(fd int) error {
	return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
}
