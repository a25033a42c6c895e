package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"

	"github.com/crittrail/crittrail/analyzer"
	"github.com/crittrail/crittrail/diff"
	"github.com/crittrail/crittrail/git"
	"github.com/crittrail/crittrail/internal/files"
	"github.com/crittrail/crittrail/internal/store"
	"github.com/crittrail/crittrail/models"
	"github.com/crittrail/crittrail/report"
)

var (
	compareSeverity int
	compareVerbose  int
	compareRepo     string
	compareID       string
	compareFrom     string
	compareTo       string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Show how violations changed per file",
	Long: `Compare violation counts per policy and report what was added and removed.

Without --from/--to the working tree is compared against a reference
commit (--id, HEAD unless given): every file that changed since that
commit is analyzed twice, once from the blob at the commit and once from
disk. With --from and --to two commits are compared; stored snapshots are
reused when present and blobs are analyzed fresh otherwise.

Examples:
  # What did my uncommitted edits change?
  crittrail compare

  # Only the worst offenses, with source fragments
  crittrail compare --severity 4 --verbose 3

  # Between two releases
  crittrail compare --from v2.13.0 --to v2.14.0`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().IntVar(&compareSeverity, "severity", 1, "minimum severity to include (1-5)")
	compareCmd.Flags().IntVar(&compareVerbose, "verbose", 1, "report detail level: 1 counts, 2 lines, 3 sources")
	compareCmd.Flags().StringVar(&compareRepo, "repo", "", "repository path (overrides --repo-path)")
	compareCmd.Flags().StringVar(&compareID, "id", "HEAD", "reference commit for the working tree comparison")
	compareCmd.Flags().StringVar(&compareFrom, "from", "", "older commit of a two-commit comparison")
	compareCmd.Flags().StringVar(&compareTo, "to", "", "newer commit of a two-commit comparison")
}

func runCompare(cmd *cobra.Command, args []string) error {
	if (compareFrom == "") != (compareTo == "") {
		return fmt.Errorf("--from and --to must be given together")
	}

	path := repoPath
	if compareRepo != "" {
		path = compareRepo
	}
	repo, err := git.Open(path)
	if err != nil {
		return fmt.Errorf("opening repository at %s: %w", path, err)
	}

	prof, err := resolveProfile()
	if err != nil {
		return err
	}
	engine := newEngine()
	w := report.NewCompareWriter(os.Stdout, compareVerbose)

	if compareFrom != "" {
		return compareCommits(cmd.Context(), repo, engine, prof, w)
	}
	return compareWorktree(cmd.Context(), repo, engine, prof, w)
}

func compareWorktree(ctx context.Context, repo git.Repository, engine analyzer.Engine, prof string, w *report.CompareWriter) error {
	commit, err := repo.ResolveCommit(compareID)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", compareID, err)
	}

	changed, err := repo.ChangedSinceCommit(commit.Hash)
	if err != nil {
		return err
	}
	queue := files.FromPaths(changed, files.DefaultFilter())

	for {
		file, ok := queue.Next()
		if !ok {
			break
		}

		baseline, err := analyzeBlob(ctx, repo, engine, prof, commit.Hash, file)
		if err != nil {
			return err
		}
		current, err := analyzeWorktree(ctx, repo, engine, prof, file)
		if err != nil {
			return err
		}

		w.File(file, diff.Diff(baseline, current), current)
	}

	w.Summary()
	return nil
}

func compareCommits(ctx context.Context, repo git.Repository, engine analyzer.Engine, prof string, w *report.CompareWriter) error {
	from, err := repo.ResolveCommit(compareFrom)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", compareFrom, err)
	}
	to, err := repo.ResolveCommit(compareTo)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", compareTo, err)
	}

	changed, err := repo.ChangedFiles(from.Hash, to.Hash)
	if err != nil {
		return err
	}

	st := openStoreIfPresent(repo)
	if st != nil {
		defer st.Close()
	}

	paths, err := comparePaths(changed, st, from.Hash, to.Hash)
	if err != nil {
		return err
	}

	for _, file := range paths {
		baseline, err := sideAtCommit(ctx, repo, st, engine, prof, from.Hash, file)
		if err != nil {
			return err
		}
		current, err := sideAtCommit(ctx, repo, st, engine, prof, to.Hash, file)
		if err != nil {
			return err
		}

		w.File(file, diff.Diff(baseline, current), current)
	}

	w.Summary()
	return nil
}

// comparePaths merges the changed Perl files with every file that has a
// stored snapshot at either commit.
func comparePaths(changed []string, st *store.Store, fromHash, toHash string) ([]string, error) {
	filter := files.DefaultFilter()
	pathSet := make(map[string]struct{})
	for _, p := range changed {
		if filter.Match(p) {
			pathSet[p] = struct{}{}
		}
	}

	if st != nil {
		for _, hash := range []string{fromHash, toHash} {
			snapshots, err := st.FindByCommit(hash)
			if err != nil {
				return nil, err
			}
			for _, snap := range snapshots {
				pathSet[snap.Filename] = struct{}{}
			}
		}
	}

	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// sideAtCommit produces one side of a two-commit comparison: the stored
// snapshot when one exists, a fresh analysis of the blob otherwise.
func sideAtCommit(ctx context.Context, repo git.Repository, st *store.Store, engine analyzer.Engine, prof, commitHash, file string) (*models.ViolationSet, error) {
	if st != nil {
		snap, err := st.FindByCommitAndFile(commitHash, file)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			set, err := st.ViolationSetForSnapshot(snap.ID)
			if err != nil {
				return nil, err
			}
			return filterSeverity(set, compareSeverity), nil
		}
	}
	return analyzeBlob(ctx, repo, engine, prof, commitHash, file)
}

// analyzeBlob analyzes a file as it was at a commit. Files absent at the
// commit yield an empty set.
func analyzeBlob(ctx context.Context, repo git.Repository, engine analyzer.Engine, prof, commitHash, file string) (*models.ViolationSet, error) {
	content, err := repo.ReadFile(commitHash, file)
	if errors.Is(err, git.ErrFileNotFound) {
		return models.NewViolationSet(), nil
	}
	if err != nil {
		return nil, err
	}

	result, err := engine.Analyze(ctx, analyzer.Request{
		Path:        file,
		Content:     content,
		Profile:     prof,
		MinSeverity: compareSeverity,
	})
	if err != nil {
		return nil, err
	}
	return result.Set, nil
}

// analyzeWorktree analyzes the file on disk. Deleted files yield an empty
// set so removals still show up in the report.
func analyzeWorktree(ctx context.Context, repo git.Repository, engine analyzer.Engine, prof, file string) (*models.ViolationSet, error) {
	abs := filepath.Join(repo.Root(), file)
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return models.NewViolationSet(), nil
		}
		return nil, err
	}

	result, err := engine.Analyze(ctx, analyzer.Request{
		Path:        abs,
		Profile:     prof,
		MinSeverity: compareSeverity,
	})
	if err != nil {
		return nil, err
	}
	return result.Set, nil
}

// openStoreIfPresent opens the snapshot store when it exists. Two-commit
// comparisons only use it as a shortcut, so a missing store is not fatal.
func openStoreIfPresent(repo git.Repository) *store.Store {
	path, err := storePath(repo)
	if err != nil {
		return nil
	}
	st, err := store.Open(path)
	if err != nil {
		logger.Debugf("snapshot store unavailable: %v", err)
		return nil
	}
	return st
}

// filterSeverity narrows a rebuilt set to violations at or above min,
// matching what a fresh run with --severity would have produced.
func filterSeverity(set *models.ViolationSet, min int) *models.ViolationSet {
	if min <= 1 {
		return set
	}
	filtered := models.NewViolationSet()
	for _, v := range set.All() {
		if v.Severity >= min {
			filtered.Add(v)
		}
	}
	return filtered
}
