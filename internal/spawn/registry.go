package spawn

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// EntryFunc is a worker entry point. It receives the keyword arguments
// transmitted in the bootstrap packet; integers decode as int64 and nested
// maps as map[string]any. A nil return exits the worker with status 0.
type EntryFunc func(kwargs map[string]any) error

var (
	// ErrBadReference reports an entry reference with no unit/name split.
	ErrBadReference = errors.New("malformed entry reference")

	// ErrUnknownUnit reports a reference whose unit has no registrations.
	ErrUnknownUnit = errors.New("unknown entry unit")

	// ErrUnknownEntry reports a known unit with no entry of that name.
	ErrUnknownEntry = errors.New("unknown entry name")
)

var (
	registryMu sync.RWMutex
	units      = make(map[string]map[string]EntryFunc)
)

// Register associates fn with the dotted reference "unit.name". A worker
// binary registers its entries before calling Main so that a bootstrap
// packet naming the reference can be resolved. When the same reference is
// registered twice the most recent registration wins.
func Register(ref string, fn EntryFunc) {
	if fn == nil {
		panic("spawn.Register: entry func must not be nil")
	}
	unit, name, err := splitRef(ref)
	if err != nil {
		panic(fmt.Sprintf("spawn.Register: %v", err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	entries := units[unit]
	if entries == nil {
		entries = make(map[string]EntryFunc)
		units[unit] = entries
	}
	entries[name] = fn
}

// Resolve maps a dotted reference to its registered entry. The unit lookup
// and the name lookup fail with distinct error kinds so a caller can tell a
// missing unit from a missing entry within a known unit.
func Resolve(ref string) (EntryFunc, error) {
	unit, name, err := splitRef(ref)
	if err != nil {
		return nil, err
	}

	registryMu.RLock()
	defer registryMu.RUnlock()
	entries, ok := units[unit]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
	fn, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in unit %q", ErrUnknownEntry, name, unit)
	}
	return fn, nil
}

// splitRef splits "a.b.c" into unit "a.b" and name "c".
func splitRef(ref string) (unit, name string, err error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	return ref[:i], ref[i+1:], nil
}
