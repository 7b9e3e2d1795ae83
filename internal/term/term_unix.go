//go:build !windows

package term

import (
	"fmt"

	"golang.org/x/term"
)

// State holds captured line-discipline attributes for one descriptor.
type State struct {
	attrs *term.State
}

func snapshot(fd int) (*State, error) {
	if !term.IsTerminal(fd) {
		return nil, nil
	}
	attrs, err := term.GetState(fd)
	if err != nil {
		return nil, fmt.Errorf("snapshot terminal state: %w", err)
	}
	return &State{attrs: attrs}, nil
}

func restore(fd int, state *State) error {
	if state == nil || state.attrs == nil || !term.IsTerminal(fd) {
		return nil
	}
	if err := flush(fd); err != nil {
		return fmt.Errorf("flush terminal: %w", err)
	}
	if err := term.Restore(fd, state.attrs); err != nil {
		return fmt.Errorf("restore terminal state: %w", err)
	}
	return nil
}
