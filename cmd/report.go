package cmd

import (
	"fmt"
	"os"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"

	"github.com/crittrail/crittrail/analyzer"
	"github.com/crittrail/crittrail/git"
	"github.com/crittrail/crittrail/internal/files"
	"github.com/crittrail/crittrail/models"
	"github.com/crittrail/crittrail/report"
)

var (
	reportFormat string
	reportOutput string
	reportCommit string
	reportInput  string
)

var detailCmd = &cobra.Command{
	Use:   "detail",
	Short: "List every violation in the queued files",
	Long: `Analyze the queued files and emit one record per violation.

The queue comes from --input when given, otherwise from paths piped on
stdin, otherwise from walking the commit's file tree. With a manifest or
piped paths no repository is needed; the commit is carried as a label.

Examples:
  # Violations at HEAD as CSV on stdout
  crittrail detail

  # Violations of one working-copy file as JSON
  echo lib/Foo.pm | crittrail detail --format json --commit HEAD`,
	Args: cobra.NoArgs,
	RunE: runDetail,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate violations per file",
	Long: `Analyze the queued files and emit one aggregate record per file:
severity counts, line count, subroutine count and average McCabe score.

Queue sourcing follows the same rules as detail.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(detailCmd)
	rootCmd.AddCommand(summaryCmd)

	for _, c := range []*cobra.Command{detailCmd, summaryCmd} {
		c.Flags().StringVar(&reportFormat, "format", "csv", "output format: csv or json")
		c.Flags().StringVarP(&reportOutput, "output", "o", "", "write the report to a file instead of stdout")
		c.Flags().StringVar(&reportCommit, "commit", "HEAD", "commit to source the queue from and label rows with")
		c.Flags().StringVar(&reportInput, "input", "", "manifest file listing paths to analyze")
	}
}

func runDetail(cmd *cobra.Command, args []string) error {
	return runReport(cmd, false)
}

func runSummary(cmd *cobra.Command, args []string) error {
	return runReport(cmd, true)
}

func runReport(cmd *cobra.Command, aggregate bool) error {
	queue, repo, label, err := analysisSetup(reportCommit, reportInput)
	if err != nil {
		return err
	}

	prof, err := resolveProfile()
	if err != nil {
		return err
	}
	engine := newEngine()

	formatter, err := report.New(reportFormat)
	if err != nil {
		logger.Warnf("%v, falling back to json", err)
	}

	header := models.DetailHeader
	if aggregate {
		header = models.SummaryHeader
	}

	var rows [][]string
	ctx := cmd.Context()
	for {
		file, ok := queue.Next()
		if !ok {
			break
		}

		req := analyzer.Request{Path: file, Profile: prof, MinSeverity: 1}
		if queue.Source() == files.SourceTree {
			content, err := repo.ReadFile(label, file)
			if err != nil {
				return fmt.Errorf("reading %s at %.8s: %w", file, label, err)
			}
			req.Content = content
		}

		result, err := engine.Analyze(ctx, req)
		if err != nil {
			return err
		}

		if aggregate {
			rows = append(rows, models.SummaryRow(file, result.Set, result.Metrics, label))
			continue
		}
		for _, v := range result.Set.All() {
			rows = append(rows, models.DetailRow(file, v, label))
		}
	}

	out, err := report.OpenOutput(reportOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	return formatter.Render(out, header, rows)
}

// analysisSetup resolves the work queue and commit label for the reporting
// commands. Manifest and stdin queues work without a repository: the commit
// reference then labels the rows verbatim.
func analysisSetup(commitRef, inputFile string) (*files.Queue, git.Repository, string, error) {
	repo, repoErr := git.Open(repoPath)

	if inputFile != "" || stdinPiped() {
		var queue *files.Queue
		var err error
		if inputFile != "" {
			queue, err = files.FromManifest(inputFile, nil)
		} else {
			queue, err = files.FromReader(os.Stdin, nil)
		}
		if err != nil {
			return nil, nil, "", err
		}

		label := commitRef
		if repoErr == nil {
			commit, err := repo.ResolveCommit(commitRef)
			if err != nil {
				return nil, nil, "", fmt.Errorf("resolving %s: %w", commitRef, err)
			}
			label = commit.Hash
		}
		return queue, repo, label, nil
	}

	if repoErr != nil {
		return nil, nil, "", fmt.Errorf("opening repository at %s: %w", repoPath, repoErr)
	}
	commit, err := repo.ResolveCommit(commitRef)
	if err != nil {
		return nil, nil, "", fmt.Errorf("resolving %s: %w", commitRef, err)
	}
	queue, err := files.FromTree(repo, commit.Hash, files.DefaultFilter())
	if err != nil {
		return nil, nil, "", err
	}
	return queue, repo, commit.Hash, nil
}
