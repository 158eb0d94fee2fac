package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/himansukumarhkr/Click/internal/session"
)

var cleanDryRun bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove leftover temp directories and forget deleted artifacts",
	Long: `Removes Click_* scratch directories left in the temp directory by sessions
that did not shut down, and drops journal entries whose artifact no longer
exists. Artifacts themselves are never touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := session.NewJournal()
		if err != nil {
			return err
		}
		records, err := journal.List()
		if err != nil {
			return err
		}

		if cleanDryRun {
			for _, dir := range staleTempDirs(os.TempDir(), records) {
				fmt.Fprintf(cmd.OutOrStdout(), "would remove %s\n", dir)
			}
			return nil
		}

		removed := session.SweepStale("", records, nil)
		for _, dir := range removed {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", dir)
		}
		pruned, err := session.Prune(journal)
		if err != nil {
			return fmt.Errorf("pruning journal: %w", err)
		}
		for _, r := range pruned {
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", r.ID)
		}
		if len(removed) == 0 && len(pruned) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean")
		}
		return nil
	},
}

// staleTempDirs lists what SweepStale would remove under root.
func staleTempDirs(root string, records []session.Record) []string {
	var out []string
	session.SweepStale(root, records, func(dir string) bool {
		out = append(out, dir)
		return true
	})
	return out
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanDryRun, "dry-run", "n", false, "Print what would be removed")
	rootCmd.AddCommand(cleanCmd)
}

// sweepAtStart removes scratch directories of dead runs before a new session
// claims its own.
func sweepAtStart(journal session.Journal, logf func(string, ...any)) {
	records, err := journal.List()
	if err != nil {
		logf("journal: %v", err)
		return
	}
	for _, dir := range session.SweepStale("", records, nil) {
		logf("removed stale temp dir %s", filepath.Base(dir))
	}
}
