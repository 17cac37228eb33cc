// Package pyship is the cobra command tree of the pyship CLI.
package pyship

import (
	"context"

	"github.com/0xa1bed0/pyship/internal/logs"
	"github.com/spf13/cobra"
)

var verbosity int

func Execute(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:   "pyship [PATH]",
		Short: "Build and run container images for Python applications",
		Long: `pyship packages a Python application into a container image and launches
its recorded entry point.

By default, 'pyship' is equivalent to 'pyship run [PATH]'.
If PATH is omitted, the current working directory is used.`,
		Args: cobra.MaximumNArgs(1),
		// Default behavior is the same as 'run'
		RunE: runCmdRunE,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logs.SetDebugVerbosity(verbosity)
			return nil
		},
		// we will handle that
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity level")

	// Root should accept the same flags as `run`
	attachRunCmdFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd.ExecuteContext(ctx)
}
