package database

import (
	"fmt"
	"path/filepath"

	"wam-go/internal/config"
	"wam-go/internal/wam"
)

// JournalFileName is the SQLite file created inside the configured data_dir.
const JournalFileName = "wam.db"

// NewJournalFromConfig creates a Journal implementation based on the database config type.
func NewJournalFromConfig(cfg config.DatabaseConfig, clock wam.Clock) (wam.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return openJournal(filepath.Join(cfg.DataDir, JournalFileName), clock)
	case "memory":
		return openJournal(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func openJournal(path string, clock wam.Clock) (wam.Journal, error) {
	j, err := NewSQLiteJournal(path, clock)
	if err != nil {
		return nil, err
	}
	return j, nil
}
