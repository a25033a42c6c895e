// Package files builds the file queue a run works through: an eagerly
// populated, single-pass sequence of paths from a commit tree, a manifest
// file, standard input, or a pre-computed list.
package files

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/crittrail/crittrail/git"
)

// QueueSource says where entries came from. Tree entries are analyzed from
// blob content at the commit; every other source names working-copy files.
type QueueSource string

const (
	SourceTree     QueueSource = "tree"
	SourceManifest QueueSource = "manifest"
	SourceStdin    QueueSource = "stdin"
	SourcePaths    QueueSource = "paths"
)

// DefaultIncludes are the Perl source patterns analyzed when no include
// globs are configured.
var DefaultIncludes = []string{"**/*.pl", "**/*.pm", "**/*.t"}

// Filter selects analyzable paths with doublestar globs. Hidden path
// segments are always rejected. A nil *Filter accepts everything.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter validates the globs once so matching never errors. Empty
// include patterns fall back to DefaultIncludes.
func NewFilter(include, exclude []string) (*Filter, error) {
	if len(include) == 0 {
		include = DefaultIncludes
	}
	for _, pattern := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	return &Filter{include: include, exclude: exclude}, nil
}

// DefaultFilter selects the Perl sources.
func DefaultFilter() *Filter {
	f, err := NewFilter(nil, nil)
	if err != nil {
		panic(err)
	}
	return f
}

// Match reports whether path passes the filter. Paths are matched in
// slash form, relative to the repository root.
func (f *Filter) Match(path string) bool {
	if f == nil {
		return true
	}

	path = filepath.ToSlash(path)
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, ".") && segment != "." && segment != ".." {
			return false
		}
	}

	for _, pattern := range f.exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return false
		}
	}
	for _, pattern := range f.include {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// Queue is a single-pass, non-restartable sequence of file paths owned by
// the driver.
type Queue struct {
	paths  []string
	next   int
	source QueueSource
}

// Next returns the next path, or ok=false when the queue is exhausted.
func (q *Queue) Next() (string, bool) {
	if q.next >= len(q.paths) {
		return "", false
	}
	path := q.paths[q.next]
	q.next++
	return path, true
}

// Len is the total number of entries the queue was built with.
func (q *Queue) Len() int {
	return len(q.paths)
}

func (q *Queue) Source() QueueSource {
	return q.source
}

// FromTree queues the blob paths of a commit's tree that pass the filter.
func FromTree(repo git.Repository, commitHash string, filter *Filter) (*Queue, error) {
	files, err := repo.ListFiles(commitHash)
	if err != nil {
		return nil, fmt.Errorf("list files at commit: %w", err)
	}

	queue := &Queue{source: SourceTree}
	for _, path := range files {
		if filter.Match(path) {
			queue.paths = append(queue.paths, path)
		}
	}
	return queue, nil
}

// FromManifest queues the newline-delimited paths listed in a file. Every
// entry is stat-checked up front: a missing file fails queue construction
// before any analysis starts.
func FromManifest(path string, filter *Filter) (*Queue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input manifest %s: %w", path, err)
	}
	defer f.Close()

	queue, err := fromLines(f, filter)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	queue.source = SourceManifest
	return queue, nil
}

// FromReader queues newline-delimited paths from r, with the same existence
// rule as FromManifest. Used for piped standard input.
func FromReader(r io.Reader, filter *Filter) (*Queue, error) {
	queue, err := fromLines(r, filter)
	if err != nil {
		return nil, err
	}
	queue.source = SourceStdin
	return queue, nil
}

// FromPaths queues a pre-computed list, filtered.
func FromPaths(paths []string, filter *Filter) *Queue {
	queue := &Queue{source: SourcePaths}
	for _, path := range paths {
		if filter.Match(path) {
			queue.paths = append(queue.paths, path)
		}
	}
	return queue
}

func fromLines(r io.Reader, filter *Filter) (*Queue, error) {
	queue := &Queue{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !filter.Match(line) {
			continue
		}

		info, err := os.Stat(line)
		if err != nil {
			return nil, fmt.Errorf("input file %s: %w", line, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("input file %s is a directory", line)
		}
		queue.paths = append(queue.paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read file list: %w", err)
	}
	return queue, nil
}
