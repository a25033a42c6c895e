package cmd

import (
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/crittrail/crittrail/git"
	"github.com/crittrail/crittrail/internal/store"
	"github.com/crittrail/crittrail/models"
	"github.com/crittrail/crittrail/report"
)

var findCmd = &cobra.Command{
	Use:   "find <filename>",
	Short: "Show the stored snapshot history of one file",
	Long: `Print every stored snapshot of the given file, newest first, as JSON.

The filename must match the path the snapshots were saved under.

Examples:
  crittrail find lib/Acme/Widget.pm`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	repo, _ := git.Open(repoPath)
	path, err := storePath(repo)
	if err != nil {
		return err
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	snapshots, err := st.FindHistory(args[0])
	if err != nil {
		return err
	}

	rows := lo.Map(snapshots, func(s models.Snapshot, _ int) []string {
		return s.HistoryRow()
	})
	return report.Structured{}.Render(os.Stdout, models.HistoryHeader, rows)
}
