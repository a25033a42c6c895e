package git

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type repository struct {
	repo *git.Repository
	root string
}

// Open opens the repository containing path, walking up to find the .git
// directory the way the git CLI does.
func Open(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("cannot open git repository at %s: %w", path, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository at %s has no working tree: %w", path, err)
	}

	return &repository{repo: repo, root: worktree.Filesystem.Root()}, nil
}

func (r *repository) ResolveCommit(rev string) (Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return Commit{}, fmt.Errorf("cannot resolve revision %q: %w", rev, err)
	}

	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return Commit{}, fmt.Errorf("revision %q does not name a commit: %w", rev, err)
	}

	return Commit{Hash: commit.Hash.String(), When: commit.Committer.When}, nil
}

func (r *repository) ListFiles(commitHash string) ([]string, error) {
	tree, err := r.treeAt(commitHash)
	if err != nil {
		return nil, err
	}
	return r.walkTree(tree, "")
}

// walkTree emits blob paths depth-first in tree-entry order. Sub-trees
// recurse with the entry name appended to the prefix; gitlink entries point
// outside the object store and are skipped.
func (r *repository) walkTree(tree *object.Tree, prefix string) ([]string, error) {
	var paths []string
	for _, entry := range tree.Entries {
		switch entry.Mode {
		case filemode.Dir:
			subtree, err := r.repo.TreeObject(entry.Hash)
			if err != nil {
				return nil, fmt.Errorf("subtree %s%s: %w", prefix, entry.Name, err)
			}
			nested, err := r.walkTree(subtree, prefix+entry.Name+"/")
			if err != nil {
				return nil, err
			}
			paths = append(paths, nested...)
		case filemode.Submodule:
			continue
		default:
			paths = append(paths, prefix+entry.Name)
		}
	}
	return paths, nil
}

func (r *repository) ReadFile(commitHash, path string) ([]byte, error) {
	tree, err := r.treeAt(commitHash)
	if err != nil {
		return nil, err
	}

	file, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s at %s: %w", path, shortHash(commitHash), ErrFileNotFound)
		}
		return nil, fmt.Errorf("read %s at %s: %w", path, shortHash(commitHash), err)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", path, shortHash(commitHash), err)
	}
	return []byte(contents), nil
}

func (r *repository) ChangedFiles(fromHash, toHash string) ([]string, error) {
	fromTree, err := r.treeAt(fromHash)
	if err != nil {
		return nil, err
	}
	toTree, err := r.treeAt(toHash)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTree(fromTree, toTree)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", shortHash(fromHash), shortHash(toHash), err)
	}

	names := make(map[string]struct{})
	for _, change := range changes {
		if change.From.Name != "" {
			names[change.From.Name] = struct{}{}
		}
		if change.To.Name != "" {
			names[change.To.Name] = struct{}{}
		}
	}
	return sortedKeys(names), nil
}

func (r *repository) ChangedSinceCommit(commitHash string) ([]string, error) {
	tree, err := r.treeAt(commitHash)
	if err != nil {
		return nil, err
	}

	committed := make(map[string]plumbing.Hash)
	err = tree.Files().ForEach(func(f *object.File) error {
		committed[f.Name] = f.Blob.Hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tree at %s: %w", shortHash(commitHash), err)
	}

	changed := make(map[string]struct{})
	seen := make(map[string]struct{})

	err = filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != r.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = struct{}{}

		committedHash, exists := committed[rel]
		if !exists {
			changed[rel] = struct{}{}
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		if plumbing.ComputeHash(plumbing.BlobObject, content) != committedHash {
			changed[rel] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk working tree: %w", err)
	}

	for name := range committed {
		if _, exists := seen[name]; !exists {
			changed[name] = struct{}{}
		}
	}
	return sortedKeys(changed), nil
}

func (r *repository) Root() string {
	return r.root
}

func (r *repository) treeAt(commitHash string) (*object.Tree, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(commitHash))
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", shortHash(commitHash), err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %s: %w", shortHash(commitHash), err)
	}
	return tree, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
