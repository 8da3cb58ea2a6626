// Package cli implements the metagate command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/computerscienceiscool/metagate/pkg/app"
	"github.com/computerscienceiscool/metagate/pkg/scratch"
)

// state is shared by the subcommands of one invocation.
type state struct {
	app     *app.App
	scratch *scratch.Workspace
	stdout  io.Writer
	stderr  io.Writer
}

// NewRootCmd builds the metagate command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	st := &state{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "metagate",
		Short: "Sandboxed access to filesystem metadata",
		Long: `metagate reads and writes extended attributes and search-index metadata
for files inside a fixed set of sandbox roots. Every path is normalized and
checked against the roots, attribute names are restricted to identifiers and
the underlying tools run from an allow-list with a fixed argument vector.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return st.teardown(cmd)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Config flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./metagate.yaml or $HOME/metagate.yaml)")
	rootCmd.PersistentFlags().StringSlice("root", nil, "Sandbox root directory (repeatable)")
	rootCmd.PersistentFlags().Bool("scratch", false, "Use a fresh scratch workspace as the only sandbox root")
	rootCmd.PersistentFlags().Bool("strict-symlinks", true, "Reject paths whose existing ancestors resolve outside the roots")

	// Mediator flags
	rootCmd.PersistentFlags().String("runner", "local", "Tool runner: local or docker")
	rootCmd.PersistentFlags().String("timeout", "30s", "Timeout for a single tool invocation (0 disables)")
	rootCmd.PersistentFlags().String("docker-image", "", "Image for the docker runner")

	// Output flags
	rootCmd.PersistentFlags().StringP("output", "o", "json", "Output format: json or yaml")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("verbose", false, "Print the effective configuration to stderr")

	rootCmd.AddCommand(
		newValidateCmd(st),
		newListCmd(st),
		newGetCmd(st),
		newSetCmd(st),
		newRemoveCmd(st),
		newSearchCmd(st),
		newReindexCmd(st),
		newMetadataCmd(st),
		newAuditCmd(st),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd(os.Stdout, os.Stderr).Execute()
}

func (st *state) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if scratchOn, _ := flags.GetBool("scratch"); scratchOn {
		ws, err := scratch.Create()
		if err != nil {
			return err
		}
		st.scratch = ws
	}

	cfg, err := buildConfig(flags, st.scratch)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	a, err := bootstrapApp(cmd.Context(), cfg, st.stderr)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	st.app = a

	if verbose, _ := flags.GetBool("verbose"); verbose {
		a.PrintVerboseInfo(st.stderr)
		if st.scratch != nil {
			fmt.Fprintf(st.stderr, "Scratch workspace: %s\n", st.scratch.Dir)
		}
	}
	return nil
}

func (st *state) teardown(cmd *cobra.Command) error {
	var err error
	if st.app != nil {
		err = st.app.Close()
	}
	if st.scratch != nil {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			if changed, cerr := st.scratch.Changed(); cerr == nil && len(changed) > 0 {
				fmt.Fprintf(st.stderr, "Scratch files changed: %v\n", changed)
			}
		}
		if cerr := st.scratch.Cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
