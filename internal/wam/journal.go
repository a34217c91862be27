package wam

import "time"

// Operation is one recorded CLI operation.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Journal records the operations that changed accounts, snapshots or
// backups so they can be reviewed with `wam history`.
type Journal interface {
	// StartOperation records a new operation and returns its id.
	StartOperation(operation, parameters string) (int64, error)

	// FinishOperation stamps the operation's finish time and final status.
	FinishOperation(id int64, status string) error

	// RecentOperations returns up to limit operations, newest first.
	RecentOperations(limit int) ([]Operation, error)

	// CheckMigrations returns an error if the schema is not current.
	CheckMigrations() error

	// Close releases the underlying store.
	Close() error
}
