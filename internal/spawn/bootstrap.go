package spawn

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/embermill/rekindle/internal/wire"
)

// Main is the worker re-entry hook. Call it first thing in main(), after
// registering entries: in a normal invocation it returns immediately; in a
// process launched by Spawn it reads the bootstrap packet, runs the target
// entry, and exits 0 on success or 1 on any bootstrap or entry failure.
// There is no partial-bootstrap recovery.
func Main() {
	value := os.Getenv(bootstrapEnv)
	if value == "" {
		return
	}
	os.Unsetenv(bootstrapEnv)

	handle, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rekindle: bad bootstrap handle %q: %v\n", value, err)
		os.Exit(1)
	}
	if err := SpawnMain(handle); err != nil {
		fmt.Fprintf(os.Stderr, "rekindle: worker bootstrap: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// SpawnMain reads exactly one bootstrap packet from the given pipe handle,
// replays the preparation data, resolves the entry reference and invokes
// it. The pipe closing before a full packet arrives is a fatal startup
// error, as is an unresolvable reference.
func SpawnMain(handle uint64) error {
	f := os.NewFile(uintptr(handle), "bootstrap-pipe")
	if f == nil {
		return fmt.Errorf("invalid bootstrap handle %d", handle)
	}

	var pkt Packet
	err := wire.DecodeTo(f, &pkt)
	f.Close()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("bootstrap pipe closed before packet arrived")
		}
		return fmt.Errorf("read bootstrap packet: %w", err)
	}

	pkt.Prep.replay()

	fn, err := Resolve(pkt.Entry)
	if err != nil {
		return err
	}
	return fn(pkt.Kwargs)
}
