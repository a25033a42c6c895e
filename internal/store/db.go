package store

import (
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"
)

// DB wraps sql.DB with mutex synchronization for write operations. A run
// owns the store exclusively, but the WAL pragmas keep a crashed run's file
// recoverable and let read commands open it while a save is in flight.
type DB struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// NewDB opens a SQLite database at path and applies the pragmas every
// connection needs.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &DB{conn: conn}, nil
}

// Exec executes a statement with mutex protection for writes.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	return db.conn.Exec(query, args...)
}

// Begin starts a transaction holding the write lock until Commit/Rollback.
func (db *DB) Begin() (*Tx, error) {
	db.writeMu.Lock()
	tx, err := db.conn.Begin()
	if err != nil {
		db.writeMu.Unlock()
		return nil, err
	}
	return &Tx{tx: tx, db: db}, nil
}

// Query performs read operations (no mutex needed for reads).
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow performs single row reads (no mutex needed for reads).
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	return db.conn.Close()
}

// Tx wraps sql.Tx to ensure the write mutex is released exactly once on
// commit or rollback.
type Tx struct {
	tx       *sql.Tx
	db       *DB
	finished bool
}

// Exec executes a statement within the transaction.
func (t *Tx) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.Exec(query, args...)
}

// Prepare prepares a statement within the transaction.
func (t *Tx) Prepare(query string) (*sql.Stmt, error) {
	return t.tx.Prepare(query)
}

// QueryRow performs a single row query within the transaction.
func (t *Tx) QueryRow(query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRow(query, args...)
}

// Commit commits the transaction and releases the write lock.
func (t *Tx) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	defer t.db.writeMu.Unlock()
	return t.tx.Commit()
}

// Rollback rolls back the transaction and releases the write lock. Calling
// it after Commit is a no-op, so callers can defer it unconditionally.
func (t *Tx) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	defer t.db.writeMu.Unlock()
	return t.tx.Rollback()
}
