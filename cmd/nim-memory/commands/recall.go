package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory"
)

var recallCmd = &cobra.Command{
	Use:   "recall <utterance>",
	Short: "Show the facts recalled for an utterance",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()
		rt.manager.Warmup(cmd.Context())

		facts, err := rt.manager.Recall(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(facts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing recalled")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), memory.FormatContext(facts, rt.store.UserName()))
		return nil
	},
}

var (
	rememberSubject   string
	rememberPredicate string
	rememberObject    string
)

var rememberCmd = &cobra.Command{
	Use:   "remember [utterance]",
	Short: "Store a fact, from an utterance or from --predicate/--object",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()
		rt.manager.Warmup(ctx)

		utterance := strings.Join(args, " ")
		triple := core.Triple{Subject: rememberSubject, Predicate: rememberPredicate, Object: rememberObject}
		if triple.Subject == "" {
			triple.Subject = cfg.Vocabulary.Generic()
		}
		if triple.Predicate == "" && triple.Object == "" {
			if utterance == "" {
				return errors.New("give an utterance or --predicate and --object")
			}
			extracted, err := rt.extractor.ExtractTriple(ctx, utterance, rt.store.UserName())
			if err != nil {
				return err
			}
			if extracted == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no fact found")
				return nil
			}
			triple = *extracted
		}

		result, err := rt.manager.Remember(ctx, triple, utterance)
		if err != nil {
			return err
		}
		f := result.Fact
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s: %s\n", result.Outcome, f.Subject, f.Predicate, strings.Join(f.Objects, ", "))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show fact and embedding cache counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		st := rt.manager.Warmup(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "facts:    %d\n", st.TotalFacts)
		fmt.Fprintf(out, "cached:   %d\n", st.CachedVectors)
		fmt.Fprintf(out, "missing:  %d\n", st.MissingVectors)
		fmt.Fprintf(out, "degraded: %d\n", st.DegradedVectors)
		if name := rt.store.UserName(); name != "" {
			fmt.Fprintf(out, "user:     %s\n", name)
		}
		return nil
	},
}

func init() {
	rememberCmd.Flags().StringVar(&rememberSubject, "subject", "", "fact subject (default is the generic user)")
	rememberCmd.Flags().StringVar(&rememberPredicate, "predicate", "", "fact predicate")
	rememberCmd.Flags().StringVar(&rememberObject, "object", "", "fact object")
}
