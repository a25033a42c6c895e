package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"

	"github.com/crittrail/crittrail/analyzer"
	"github.com/crittrail/crittrail/git"
	"github.com/crittrail/crittrail/internal/files"
	"github.com/crittrail/crittrail/internal/store"
	"github.com/crittrail/crittrail/progress"
)

var (
	saveCommit   string
	saveInput    string
	saveProgress bool
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Analyze files and store a violation snapshot per file",
	Long: `Run perlcritic over the queued files and store one snapshot per file,
keyed by the given commit.

The queue comes from --input when given, otherwise from paths piped on
stdin, otherwise from walking the commit's file tree. Tree-sourced files
are analyzed as they were at the commit; manifest and stdin paths are
analyzed from the working copy.

Examples:
  # Snapshot every Perl file at HEAD
  crittrail save --commit HEAD

  # Snapshot a release tag with progress output
  crittrail save --commit v2.14.0 --progress

  # Re-snapshot two files after a rebase rewrote the commit
  echo -e "lib/Foo.pm\nlib/Bar.pm" | crittrail save --commit HEAD --force`,
	Args: cobra.NoArgs,
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().StringVar(&saveCommit, "commit", "", "commit to snapshot (required)")
	saveCmd.Flags().StringVar(&saveInput, "input", "", "manifest file listing paths to analyze")
	saveCmd.Flags().BoolVar(&saveProgress, "progress", false, "print a pace estimate after each file")
	saveCmd.Flags().BoolVarP(&force, "force", "f", false, "replace existing snapshots for the same file and commit")
	saveCmd.MarkFlagRequired("commit")
}

func runSave(cmd *cobra.Command, args []string) error {
	repo, err := git.Open(repoPath)
	if err != nil {
		return fmt.Errorf("opening repository at %s: %w", repoPath, err)
	}
	commit, err := repo.ResolveCommit(saveCommit)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", saveCommit, err)
	}

	queue, err := saveQueue(repo, commit.Hash)
	if err != nil {
		return err
	}

	path, err := storePath(repo)
	if err != nil {
		return err
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	prof, err := resolveProfile()
	if err != nil {
		return err
	}
	engine := newEngine()

	est := progress.New(queue.Len())
	completed := 0
	saved := 0
	ctx := cmd.Context()

	for {
		file, ok := queue.Next()
		if !ok {
			break
		}

		req := analyzer.Request{Path: file, Profile: prof, MinSeverity: 1}
		if queue.Source() == files.SourceTree {
			content, err := repo.ReadFile(commit.Hash, file)
			if err != nil {
				return fmt.Errorf("reading %s at %.8s: %w", file, commit.Hash, err)
			}
			req.Content = content
		}

		result, err := engine.Analyze(ctx, req)
		if err != nil {
			return err
		}

		_, err = st.Save(file, result.Set, result.Metrics, commit.Hash, commit.When, force)
		switch {
		case errors.Is(err, store.ErrDuplicateSnapshot):
			logger.Warnf("snapshot for %s at %.8s already exists, use --force to replace", file, commit.Hash)
		case err != nil:
			return fmt.Errorf("saving snapshot for %s: %w", file, err)
		default:
			saved++
		}

		completed++
		if saveProgress {
			fmt.Fprintln(os.Stderr, est.FormatETA(completed))
		}
	}

	logger.Infof("saved %d of %d file(s) at %.8s into %s", saved, completed, commit.Hash, st.Path())
	return nil
}

func saveQueue(repo git.Repository, commitHash string) (*files.Queue, error) {
	if saveInput != "" {
		return files.FromManifest(saveInput, nil)
	}
	if stdinPiped() {
		return files.FromReader(os.Stdin, nil)
	}
	return files.FromTree(repo, commitHash, files.DefaultFilter())
}
