// Package store persists per-file, per-commit analysis snapshots in SQLite.
// Saves are idempotent unless forced: a second save of the same
// (filename, commit) pair is refused so incremental runs over history can be
// interrupted and resumed without duplicating rows.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/crittrail/crittrail/models"
)

var (
	// ErrDuplicateSnapshot reports a save of a (filename, commit) pair that
	// already has a live snapshot. Recoverable: skip the file and continue.
	ErrDuplicateSnapshot = errors.New("snapshot already exists")

	// ErrStoreExists reports an init against an existing store file.
	ErrStoreExists = errors.New("snapshot store already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS tStats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	sev_1 INTEGER NOT NULL DEFAULT 0,
	sev_2 INTEGER NOT NULL DEFAULT 0,
	sev_3 INTEGER NOT NULL DEFAULT 0,
	sev_4 INTEGER NOT NULL DEFAULT 0,
	sev_5 INTEGER NOT NULL DEFAULT 0,
	lines INTEGER NOT NULL DEFAULT 0,
	avg_mccabe REAL NOT NULL DEFAULT 0,
	sub_count INTEGER NOT NULL DEFAULT 0,
	violations INTEGER NOT NULL DEFAULT 0,
	git_commit TEXT NOT NULL,
	git_commit_time INTEGER NOT NULL,
	date_inserted INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tstats_file_commit ON tStats(filename, git_commit);

CREATE TABLE IF NOT EXISTS tCritic (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	line_number INTEGER NOT NULL,
	description TEXT,
	explanation TEXT,
	severity INTEGER NOT NULL,
	policy TEXT NOT NULL,
	source TEXT,
	git_commit TEXT NOT NULL,
	git_commit_time INTEGER NOT NULL,
	date_inserted INTEGER NOT NULL DEFAULT (strftime('%s','now')),
	FOREIGN KEY (file_id) REFERENCES tStats(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tcritic_file_id ON tCritic(file_id);
`

// Store is the snapshot store. One run owns it for its duration.
type Store struct {
	db   *DB
	path string
}

// Init creates the store file and its schema. An existing store is refused
// with ErrStoreExists unless force is set, in which case it is discarded
// first.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%s: %w", path, ErrStoreExists)
		}
		for _, stale := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("discard old store %s: %w", stale, err)
			}
		}
	}

	db, err := NewDB(path)
	if err != nil {
		return fmt.Errorf("create snapshot store %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create snapshot schema in %s: %w", path, err)
	}
	return nil
}

// Open opens an existing store. A missing file is an error; init must run
// first.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot store not found at %s (run 'crittrail init' first): %w", path, err)
	}

	db, err := NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("verify snapshot schema in %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Save records one file's analysis run at a commit, atomically: the summary
// row and its violation rows land in one transaction or not at all. An
// existing (filename, commit) snapshot yields ErrDuplicateSnapshot unless
// force is set, in which case the old rows are deleted first, children
// before parent.
func (s *Store) Save(filename string, set *models.ViolationSet, metrics models.FileMetrics, commit string, commitTime time.Time, force bool) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save of %s: %w", filename, err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow(`SELECT id FROM tStats WHERE filename = ? AND git_commit = ?`, filename, commit).Scan(&existingID)
	switch {
	case err == nil:
		if !force {
			return 0, fmt.Errorf("%s at %s: %w", filename, commit, ErrDuplicateSnapshot)
		}
		if _, err := tx.Exec(`DELETE FROM tCritic WHERE file_id = ?`, existingID); err != nil {
			return 0, fmt.Errorf("delete old violations of %s: %w", filename, err)
		}
		if _, err := tx.Exec(`DELETE FROM tStats WHERE id = ?`, existingID); err != nil {
			return 0, fmt.Errorf("delete old snapshot of %s: %w", filename, err)
		}
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("look up snapshot of %s: %w", filename, err)
	}

	sev := set.SeverityCounts()
	result, err := tx.Exec(`
		INSERT INTO tStats (filename, sev_1, sev_2, sev_3, sev_4, sev_5, lines, avg_mccabe, sub_count, violations, git_commit, git_commit_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		filename, sev[0], sev[1], sev[2], sev[3], sev[4],
		metrics.Lines, metrics.AvgMcCabe, metrics.Subs, set.Total(),
		commit, commitTime.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert snapshot of %s: %w", filename, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id of %s: %w", filename, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO tCritic (file_id, line_number, description, explanation, severity, policy, source, git_commit, git_commit_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare violation insert for %s: %w", filename, err)
	}
	defer stmt.Close()

	for _, v := range set.All() {
		if _, err := stmt.Exec(id, v.Line, v.Description, v.Explanation, v.Severity, v.Policy, v.Source, commit, commitTime.Unix()); err != nil {
			return 0, fmt.Errorf("insert violation of %s at line %d: %w", filename, v.Line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save of %s: %w", filename, err)
	}
	return id, nil
}

const snapshotColumns = `id, filename, sev_1, sev_2, sev_3, sev_4, sev_5, lines, avg_mccabe, sub_count, violations, git_commit, git_commit_time, date_inserted`

// FindByCommitAndFile returns the snapshot for one (commit, filename) pair,
// or nil when none exists.
func (s *Store) FindByCommitAndFile(commit, filename string) (*models.Snapshot, error) {
	row := s.db.QueryRow(`SELECT `+snapshotColumns+` FROM tStats WHERE git_commit = ? AND filename = ?`, commit, filename)
	snapshot, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot of %s at %s: %w", filename, commit, err)
	}
	return snapshot, nil
}

// FindHistory returns every snapshot of one file, newest insertion first.
func (s *Store) FindHistory(filename string) ([]models.Snapshot, error) {
	rows, err := s.db.Query(`SELECT `+snapshotColumns+` FROM tStats WHERE filename = ? ORDER BY date_inserted DESC, id DESC`, filename)
	if err != nil {
		return nil, fmt.Errorf("find history of %s: %w", filename, err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

// FindByCommit returns every file snapshot recorded at a commit, ordered by
// filename.
func (s *Store) FindByCommit(commit string) ([]models.Snapshot, error) {
	rows, err := s.db.Query(`SELECT `+snapshotColumns+` FROM tStats WHERE git_commit = ? ORDER BY filename`, commit)
	if err != nil {
		return nil, fmt.Errorf("find snapshots at %s: %w", commit, err)
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

// ViolationsForSnapshot returns the detail rows behind one snapshot in
// insertion order.
func (s *Store) ViolationsForSnapshot(id int64) ([]models.StoredViolation, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.file_id, t.filename, c.line_number, c.description, c.explanation, c.severity, c.policy, c.source, c.git_commit, c.git_commit_time, c.date_inserted
		FROM tCritic c
		JOIN tStats t ON t.id = c.file_id
		WHERE c.file_id = ?
		ORDER BY c.id`, id)
	if err != nil {
		return nil, fmt.Errorf("load violations of snapshot %d: %w", id, err)
	}
	defer rows.Close()

	var violations []models.StoredViolation
	for rows.Next() {
		var sv models.StoredViolation
		var description, explanation, source sql.NullString
		var commitTime, inserted int64

		err := rows.Scan(&sv.ID, &sv.FileID, &sv.Filename, &sv.Line, &description, &explanation, &sv.Severity, &sv.Policy, &source, &sv.GitCommit, &commitTime, &inserted)
		if err != nil {
			return nil, fmt.Errorf("scan violation of snapshot %d: %w", id, err)
		}

		sv.Description = description.String
		sv.Explanation = explanation.String
		sv.Source = source.String
		sv.GitCommitTime = time.Unix(commitTime, 0).UTC()
		sv.DateInserted = time.Unix(inserted, 0).UTC()
		violations = append(violations, sv)
	}
	return violations, rows.Err()
}

// ViolationSetForSnapshot rebuilds the ephemeral set a snapshot was saved
// from, for diffing against a fresh run.
func (s *Store) ViolationSetForSnapshot(id int64) (*models.ViolationSet, error) {
	stored, err := s.ViolationsForSnapshot(id)
	if err != nil {
		return nil, err
	}

	set := models.NewViolationSet()
	for _, sv := range stored {
		set.Add(sv.Violation)
	}
	return set, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var snap models.Snapshot
	var commitTime, inserted int64

	err := row.Scan(&snap.ID, &snap.Filename,
		&snap.Sev1, &snap.Sev2, &snap.Sev3, &snap.Sev4, &snap.Sev5,
		&snap.Lines, &snap.AvgMcCabe, &snap.Subs, &snap.Violations,
		&snap.GitCommit, &commitTime, &inserted)
	if err != nil {
		return nil, err
	}

	snap.GitCommitTime = time.Unix(commitTime, 0).UTC()
	snap.DateInserted = time.Unix(inserted, 0).UTC()
	return &snap, nil
}

func collectSnapshots(rows *sql.Rows) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, rows.Err()
}
