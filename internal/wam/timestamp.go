package wam

import (
	"encoding/json"
	"fmt"
	"time"
)

// naiveLayouts are the offset-less ISO-8601 forms found in files written by
// earlier versions of the tool. A fractional second is accepted after the
// seconds field even though the layouts do not spell it out.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an RFC 3339 timestamp or an ISO-8601 one without a
// zone offset, which is taken to be local time.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// isoTime decodes with ParseTimestamp. Values are always written back as
// RFC 3339 through time.Time.
type isoTime time.Time

func (t *isoTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = isoTime(parsed)
	return nil
}

func (t *isoTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := time.Time(*t)
	return &v
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	aux := struct {
		*plain
		CreatedAt *isoTime `json:"created_at"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.CreatedAt != nil {
		s.CreatedAt = time.Time(*aux.CreatedAt)
	}
	return nil
}

func (b *Backup) UnmarshalJSON(data []byte) error {
	type plain Backup
	aux := struct {
		*plain
		CreatedAt *isoTime `json:"created_at"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.CreatedAt != nil {
		b.CreatedAt = time.Time(*aux.CreatedAt)
	}
	return nil
}

func (c *AutoBackupConfig) UnmarshalJSON(data []byte) error {
	type plain AutoBackupConfig
	aux := struct {
		*plain
		LastBackupTime *isoTime `json:"last_backup_time"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.LastBackupTime = aux.LastBackupTime.ptr()
	return nil
}

// UnmarshalJSON leaves fields absent from data untouched, so an Account can
// be filled one field at a time.
func (a *Account) UnmarshalJSON(data []byte) error {
	type plain Account
	aux := struct {
		*plain
		LastSyncTime      json.RawMessage `json:"last_sync_time"`
		SnapshotCreatedAt json.RawMessage `json:"snapshot_created_at"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if a.LastSyncTime, err = optionalTime(aux.LastSyncTime, a.LastSyncTime); err != nil {
		return fmt.Errorf("last_sync_time: %w", err)
	}
	if a.SnapshotCreatedAt, err = optionalTime(aux.SnapshotCreatedAt, a.SnapshotCreatedAt); err != nil {
		return fmt.Errorf("snapshot_created_at: %w", err)
	}
	return nil
}

// optionalTime decodes a nullable timestamp. An absent field keeps cur.
func optionalTime(raw json.RawMessage, cur *time.Time) (*time.Time, error) {
	switch string(raw) {
	case "":
		return cur, nil
	case "null":
		return nil, nil
	}
	var t isoTime
	if err := json.Unmarshal(raw, &t); err != nil {
		return cur, err
	}
	return t.ptr(), nil
}
