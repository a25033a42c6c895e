package git

import (
	"errors"
	"time"
)

// ErrFileNotFound reports that a path does not exist in the tree of the
// commit it was requested at.
var ErrFileNotFound = errors.New("file not found at commit")

// Commit is a resolved revision: the full hash plus the committer timestamp,
// which snapshots record as the commit time (never wall-clock).
type Commit struct {
	Hash string    `json:"hash"`
	When time.Time `json:"when"`
}

// Repository is the version-control accessor. Callers construct one per run
// with Open and hand it to whatever needs revision access; nothing holds a
// package-level handle.
type Repository interface {
	// ResolveCommit resolves a revision expression (full or abbreviated
	// hash, branch, tag, HEAD, HEAD~n) to a concrete commit.
	ResolveCommit(rev string) (Commit, error)

	// ListFiles enumerates every blob path reachable from the commit's
	// tree: depth-first, tree-entry order, not sorted. Submodule entries
	// are neither blobs nor sub-trees and are skipped.
	ListFiles(commitHash string) ([]string, error)

	// ReadFile returns the content of path at the commit. A missing path
	// wraps ErrFileNotFound.
	ReadFile(commitHash, path string) ([]byte, error)

	// ChangedFiles returns the paths that differ between the trees of two
	// commits, sorted and unique. Renames contribute both sides.
	ChangedFiles(fromHash, toHash string) ([]string, error)

	// ChangedSinceCommit returns the paths whose working-copy blob differs
	// from the commit's, plus paths existing on only one side. Sorted and
	// unique; .git and hidden directories are not walked.
	ChangedSinceCommit(commitHash string) ([]string, error)

	// Root returns the absolute path of the working tree.
	Root() string
}
