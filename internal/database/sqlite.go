package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"wam-go/internal/database/migrations"
	"wam-go/internal/wam"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements wam.Journal on SQLite.
type SQLiteJournal struct {
	db    *sql.DB
	clock wam.Clock
	path  string
}

// NewSQLiteJournal opens the journal at path, or ":memory:", and applies
// pending migrations.
func NewSQLiteJournal(path string, clock wam.Clock) (*SQLiteJournal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}

	j := NewSQLiteJournalFromDB(db, clock)
	j.path = path
	return j, nil
}

// NewSQLiteJournalFromDB wraps an existing connection. The schema is not
// touched.
func NewSQLiteJournalFromDB(db *sql.DB, clock wam.Clock) *SQLiteJournal {
	return &SQLiteJournal{db: db, clock: clock}
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

func (j *SQLiteJournal) StartOperation(operation, parameters string) (int64, error) {
	res, err := j.db.Exec(
		"INSERT INTO operations (operation, parameters, status, started_at) VALUES (?, ?, 'running', ?)",
		operation, parameters, j.clock.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading operation id: %w", err)
	}
	return id, nil
}

func (j *SQLiteJournal) FinishOperation(id int64, status string) error {
	res, err := j.db.Exec(
		"UPDATE operations SET status = ?, finished_at = ? WHERE id = ?",
		status, j.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("operation %d: %w", id, wam.ErrNotFound)
	}
	return nil
}

func (j *SQLiteJournal) RecentOperations(limit int) ([]wam.Operation, error) {
	rows, err := j.db.Query(
		"SELECT id, operation, parameters, status, started_at, finished_at FROM operations ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []wam.Operation
	for rows.Next() {
		var op wam.Operation
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (j *SQLiteJournal) Path() string {
	return j.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (j *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(j.db)
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteJournal implements wam.Journal interface
var _ wam.Journal = (*SQLiteJournal)(nil)
