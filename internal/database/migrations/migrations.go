// Package migrations holds the operation journal's SQLite schema and applies
// it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var schemaFiles embed.FS

// ErrNeedsMigration reports a journal whose schema has never been applied.
var ErrNeedsMigration = errors.New("journal has no schema version (needs migration)")

// Status describes where a journal database stands against the embedded
// schema files.
type Status struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Current reports whether the journal can be used as is.
func (s Status) Current() bool {
	return !s.Dirty && s.Version == s.Latest
}

// ReadStatus compares db's schema version with the newest embedded one.
// An unversioned db yields ErrNeedsMigration.
func ReadStatus(db *sql.DB) (Status, error) {
	m, err := open(db)
	if err != nil {
		return Status{}, err
	}
	// Closing m would close db.

	var st Status
	st.Version, st.Dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, ErrNeedsMigration
	}
	if err != nil {
		return Status{}, fmt.Errorf("reading journal schema version: %w", err)
	}

	src, err := iofs.New(schemaFiles, "files")
	if err != nil {
		return Status{}, fmt.Errorf("reading schema files: %w", err)
	}
	defer src.Close()
	if st.Latest, err = lastVersion(src); err != nil {
		return Status{}, fmt.Errorf("finding newest schema version: %w", err)
	}
	return st, nil
}

// CheckDBMigrationStatus returns nil when the journal is at the newest
// schema version and an error naming the mismatch otherwise.
func CheckDBMigrationStatus(db *sql.DB) error {
	st, err := ReadStatus(db)
	if err != nil {
		return err
	}
	switch {
	case st.Dirty:
		return fmt.Errorf("journal schema is dirty at version %d; an earlier migration failed", st.Version)
	case st.Version < st.Latest:
		return fmt.Errorf("journal schema is at version %d, want %d", st.Version, st.Latest)
	case st.Version > st.Latest:
		return fmt.Errorf("journal schema version %d is newer than this binary supports (%d)", st.Version, st.Latest)
	}
	return nil
}

// MigrateUp brings the journal to the newest schema version. Running it on
// a current journal does nothing.
func MigrateUp(db *sql.DB) error {
	m, err := open(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating journal schema: %w", err)
	}
	return nil
}

func open(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("reading schema files: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("wrapping journal database: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing journal migrations: %w", err)
	}
	return m, nil
}

// lastVersion walks src to its final migration.
func lastVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
