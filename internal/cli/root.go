package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/embermill/rekindle/internal/config"
)

func NewRootCmd() *cobra.Command {
	var manifestPath string

	root := &cobra.Command{
		Use:   "rekindle",
		Short: "Spawn and supervise worker processes over a duplex pipe channel",
	}

	root.PersistentFlags().
		StringVarP(&manifestPath, "file", "f", "rekindle.yaml", "Path to worker manifest")

	ctx := &cmdContext{manifestPath: &manifestPath}
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newConfigCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cmdContext struct {
	manifestPath *string
}

func (c *cmdContext) loadManifest() (*config.Config, error) {
	return config.Load(*c.manifestPath)
}
