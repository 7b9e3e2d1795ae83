//go:build windows

package procgroup

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Group wraps a job object configured to terminate every member when the
// job handle is closed. Termination cascades automatically; callers never
// enumerate descendants.
type Group struct {
	job windows.Handle
}

func newGroup() (*Group, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create job object: %w", err)
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return nil, fmt.Errorf("configure job object: %w", err)
	}

	return &Group{job: job}, nil
}

// Add assigns pid to the job. ERROR_ACCESS_DENIED is swallowed: on Windows
// versions before 8 a process already attached to another job cannot be
// assigned, and that nesting case is benign. Every other failure surfaces
// and is fatal for that child.
func (g *Group) Add(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	if err := windows.AssignProcessToJobObject(g.job, h); err != nil {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return nil
		}
		return fmt.Errorf("assign process %d to job: %w", pid, err)
	}
	return nil
}

// Close closes the job handle, which terminates all remaining members.
func (g *Group) Close() error {
	if g.job == 0 {
		return nil
	}
	err := windows.CloseHandle(g.job)
	g.job = 0
	if err != nil {
		return fmt.Errorf("close job object: %w", err)
	}
	return nil
}
