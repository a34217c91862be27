package app

// Command tracks the CLI command being run. Commands start in memory with
// ID=0; only commands that change state are written to the journal, which
// gives them an auto-increment ID.
type Command struct {
	ID         int64
	Name       string
	Parameters string
	Status     string // "success" or "error"
}

// NewCommand creates an unpersisted command record.
func NewCommand(name, parameters string) *Command {
	return &Command{
		Name:       name,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this command has been written to the journal.
func (c *Command) Persisted() bool {
	return c.ID != 0
}

// Fail marks the command as failed when err is non-nil and returns err.
func (c *Command) Fail(err error) error {
	if err != nil {
		c.Status = "error"
	}
	return err
}
