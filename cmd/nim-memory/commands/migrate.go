package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/nim-memory/memory/migrate"
)

var migrateFile string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite a JSON fact file in the current shape, keeping a backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := migrateFile
		if path == "" {
			path = cfg.Storage.Path
		}
		report, err := migrate.MigrateFile(path, &cfg.Vocabulary, time.Now())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "backup:  %s\n", report.BackupPath)
		fmt.Fprintf(out, "input:   %d records\n", report.Input)
		fmt.Fprintf(out, "output:  %d facts\n", report.Output)
		fmt.Fprintf(out, "merged:  %d\n", report.Merged)
		fmt.Fprintf(out, "skipped: %d\n", report.Skipped)
		for shape, n := range report.Shapes {
			fmt.Fprintf(out, "  %-14s %d\n", shape, n)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFile, "file", "", "fact file to migrate (default is storage.path)")
}
