package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory"
)

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "List and edit stored facts",
}

// withStore runs fn against a loaded runtime without warming the cache.
func withStore(cmd *cobra.Command, fn func(rt *runtime) error) error {
	rt, err := newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func printFacts(w io.Writer, facts []core.Fact) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUBJECT\tPREDICATE\tOBJECTS\tUPDATED")
	for _, f := range facts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.Subject, f.Predicate,
			strings.Join(f.Objects, ", "), f.UpdatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

var factsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List facts, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(rt *runtime) error {
			printFacts(cmd.OutOrStdout(), rt.store.GetAll())
			return nil
		})
	},
}

var factsSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find facts containing text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(rt *runtime) error {
			printFacts(cmd.OutOrStdout(), rt.store.Search(strings.Join(args, " ")))
			return nil
		})
	},
}

var factsAddCmd = &cobra.Command{
	Use:   "add <subject> <predicate> <object>",
	Short: "Add a fact directly",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(rt *runtime) error {
			f, err := rt.store.Add(cmd.Context(), args[1], args[2], args[0], "")
			if err != nil {
				return err
			}
			printFacts(cmd.OutOrStdout(), []core.Fact{f})
			return nil
		})
	},
}

var updateSubject string

var factsUpdateCmd = &cobra.Command{
	Use:   "update <id> <predicate> <object>...",
	Short: "Replace the predicate and objects of a fact",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(rt *runtime) error {
			f, ok, err := rt.store.Update(cmd.Context(), args[0], args[1], args[2:], updateSubject)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no fact with id %s", args[0])
			}
			printFacts(cmd.OutOrStdout(), []core.Fact{f})
			return nil
		})
	},
}

var factsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a fact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(rt *runtime) error {
			deleted, err := rt.store.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("no fact with id %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		})
	},
}

var factsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every fact",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(rt *runtime) error {
			return rt.store.Clear(cmd.Context())
		})
	},
}

var factsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize what is known about every subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(rt *runtime) error {
			fmt.Fprintln(cmd.OutOrStdout(), memory.Summary(rt.store.GetAll()))
			return nil
		})
	},
}

func init() {
	factsUpdateCmd.Flags().StringVar(&updateSubject, "subject", "", "new subject")
	factsCmd.AddCommand(factsListCmd, factsSearchCmd, factsAddCmd, factsUpdateCmd, factsDeleteCmd, factsClearCmd, factsSummaryCmd)
}
