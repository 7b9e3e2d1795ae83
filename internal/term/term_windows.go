//go:build windows

package term

// State is empty on Windows; the guard is the no-op variant.
type State struct{}

func snapshot(fd int) (*State, error) {
	return nil, nil
}

func restore(fd int, state *State) error {
	return nil
}
