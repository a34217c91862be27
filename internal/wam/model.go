package wam

import "time"

// ConfigDirectory is a registered editor configuration directory.
type ConfigDirectory struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	HasConfig bool   `json:"has_config"`
	OSType    OSType `json:"os_type"`
}

// Snapshot is the metadata stored alongside an account's single snapshot.
type Snapshot struct {
	AccountID  string    `json:"account_id"`
	CreatedAt  time.Time `json:"created_at"`
	ConfigPath string    `json:"config_path"`
	OSType     OSType    `json:"os_type"`
	Files      []string  `json:"files"`
	CustomPath bool      `json:"custom_path"`
	Name       string    `json:"name,omitempty"`
}

// Backup is the metadata stored inside a timestamped backup slot.
// Name and Path are filled in when listing and are not persisted.
type Backup struct {
	AccountID    string    `json:"account_id"`
	AccountEmail string    `json:"account_email"`
	CreatedAt    time.Time `json:"created_at"`
	ConfigPath   string    `json:"config_path"`
	OSType       OSType    `json:"os_type"`
	Files        []string  `json:"files"`

	Name string `json:"-"`
	Path string `json:"-"`
}

// ID is the composite "<accountID>_<name>" identifier shown to users.
func (b Backup) ID() string {
	return b.AccountID + "_" + b.Name
}

// AutoBackupConfig holds the persisted scheduler settings.
type AutoBackupConfig struct {
	Enabled        bool       `json:"enabled"`
	IntervalHours  int        `json:"backup_interval_hours"`
	MaxBackups     int        `json:"max_backups"`
	LastBackupTime *time.Time `json:"last_backup_time"`
}

// DefaultAutoBackupConfig returns the settings used when none are stored.
func DefaultAutoBackupConfig() AutoBackupConfig {
	return AutoBackupConfig{
		Enabled:       true,
		IntervalHours: 24,
		MaxBackups:    7,
	}
}

// Interval returns IntervalHours as a duration.
func (c AutoBackupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// Account is a stored editor account. Plan and usage fields stay nil until
// a login sync fills them.
type Account struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Credential        string     `json:"password"`
	Note              string     `json:"note"`
	PlanName          *string    `json:"plan_name"`
	PlanTier          *string    `json:"plan_tier"`
	PlanEnd           *string    `json:"plan_end"`
	UsedPromptCredits *int       `json:"used_prompt_credits"`
	UsedFlowCredits   *int       `json:"used_flow_credits"`
	APIKey            *string    `json:"api_key"`
	LastSyncTime      *time.Time `json:"last_sync_time"`
	HasSnapshot       bool       `json:"has_snapshot"`
	SnapshotCreatedAt *time.Time `json:"snapshot_created_at"`
}
