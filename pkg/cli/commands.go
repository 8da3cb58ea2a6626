package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/computerscienceiscool/metagate/pkg/audit"
	"github.com/computerscienceiscool/metagate/pkg/evaluator"
	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

type validateResult struct {
	Input   string `json:"input" yaml:"input"`
	Allowed bool   `json:"allowed" yaml:"allowed"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newValidateCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check paths against the sandbox without touching them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guard := st.app.Executor().Guard()
			results := make([]validateResult, 0, len(args))
			for _, raw := range args {
				r := validateResult{Input: raw}
				p, err := guard.Validate(raw)
				if err != nil {
					r.Error = sandbox.SanitizeError(err).Error()
				} else {
					r.Allowed = true
					r.Path = p.String()
				}
				results = append(results, r)
			}
			return st.print(cmd, results)
		},
	}
}

func newListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "List extended attribute names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := st.app.Executor().ListAttributes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return st.print(cmd, names)
		},
	}
}

func newGetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path> <name>",
		Short: "Read and decode an extended attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attr, err := st.app.Executor().GetAttribute(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return st.print(cmd, attr)
		},
	}
}

func newSetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <name>=<value>...",
		Short: "Write one or more extended attributes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			writes, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			exec := st.app.Executor()
			if len(writes) == 1 {
				if err := exec.SetAttribute(cmd.Context(), args[0], writes[0].Name, writes[0].Value); err != nil {
					return err
				}
				return st.print(cmd, []evaluator.ItemResult{{Index: 0, Name: writes[0].Name, Success: true}})
			}

			results, err := exec.SetAttributes(cmd.Context(), args[0], writes)
			if err != nil {
				return err
			}
			if err := st.print(cmd, results); err != nil {
				return err
			}
			if n := countFailed(results); n > 0 {
				return fmt.Errorf("%d of %d attributes failed", n, len(results))
			}
			return nil
		},
	}
}

func newRemoveCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path> <name>",
		Short: "Remove an extended attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.app.Executor().DeleteAttribute(cmd.Context(), args[0], args[1])
		},
	}
}

func newSearchCmd(st *state) *cobra.Command {
	var scopes, attrs []string
	var withMetadata bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the search index inside the sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exec := st.app.Executor()
			if withMetadata || len(attrs) > 0 {
				results, err := exec.SearchWithMetadata(cmd.Context(), args[0], scopes, attrs)
				if err != nil {
					return err
				}
				return st.print(cmd, results)
			}
			hits, err := exec.Search(cmd.Context(), args[0], scopes)
			if err != nil {
				return err
			}
			return st.print(cmd, hits)
		},
	}
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Directory to search (repeatable, default: every sandbox root)")
	cmd.Flags().BoolVar(&withMetadata, "metadata", false, "Include metadata for every hit")
	cmd.Flags().StringSliceVar(&attrs, "attr", nil, "Metadata attribute to include (implies --metadata)")
	return cmd
}

func newReindexCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <path>",
		Short: "Ask the search indexer to re-import a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.app.Executor().Reindex(cmd.Context(), args[0])
		},
	}
}

func newMetadataCmd(st *state) *cobra.Command {
	var attrs []string

	cmd := &cobra.Command{
		Use:   "mdls <path>",
		Short: "Show search metadata for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := st.app.Executor().GetMetadata(cmd.Context(), args[0], attrs)
			if err != nil {
				return err
			}
			return st.print(cmd, fields)
		},
	}
	cmd.Flags().StringSliceVar(&attrs, "attr", nil, "Attribute to show (repeatable, default: all)")
	return cmd
}

func newAuditCmd(st *state) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent operation outcomes from the sqlite audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlLog, ok := st.app.Audit().(*audit.SQLiteLog)
			if !ok {
				return fmt.Errorf("audit history requires audit.backend: sqlite")
			}
			outcomes, err := sqlLog.Recent(limit)
			if err != nil {
				return err
			}
			return st.print(cmd, outcomes)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of outcomes to show")
	return cmd
}

// parseAssignments splits name=value arguments. Values are taken literally.
func parseAssignments(args []string) ([]evaluator.AttributeWrite, error) {
	writes := make([]evaluator.AttributeWrite, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		writes = append(writes, evaluator.AttributeWrite{Name: name, Value: []byte(value)})
	}
	return writes, nil
}

func countFailed(results []evaluator.ItemResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}
