package main

import (
	"github.com/embermill/rekindle/internal/cli"
	"github.com/embermill/rekindle/internal/metrics"
	"github.com/embermill/rekindle/internal/spawn"
)

func main() {
	// Entries must be registered before the bootstrap hook: a spawned copy
	// of this binary resolves its entry reference against the registry.
	cli.RegisterEntries()
	spawn.Main()

	metrics.EmitBuildInfo()
	cli.Execute()
}
