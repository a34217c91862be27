package wam

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"
)

// AccountRegistry stores editor accounts in a JSON array file. Records
// missing an id or email are dropped on load; missing optional fields take
// their zero values.
type AccountRegistry struct {
	mu       sync.RWMutex
	file     string
	ids      IDGenerator
	clock    Clock
	logger   Logger
	accounts []Account
}

// NewAccountRegistry loads the registry stored at file. A missing file
// starts empty; a corrupt one is moved aside and reset.
func NewAccountRegistry(file string, ids IDGenerator, clock Clock, logger Logger) *AccountRegistry {
	r := &AccountRegistry{file: file, ids: ids, clock: clock, logger: logger}
	r.load()
	return r
}

func (r *AccountRegistry) load() {
	raw, err := readJSONFile[[]json.RawMessage](r.file)
	switch {
	case err == nil:
	case isNotExist(err):
		return
	case errors.Is(err, ErrConfigCorrupt):
		r.logger.Error("account registry corrupt, starting empty", "path", r.file, "error", err)
		quarantine(r.file, r.clock, r.logger)
		return
	default:
		r.logger.Error("reading account registry failed, starting empty", "path", r.file, "error", err)
		return
	}

	r.accounts = decodeAccounts(raw, r.logger)
}

// decodeAccounts keeps every record that has an id and email. Fields that
// fail to decode are dropped on their own; the rest of the record is kept.
func decodeAccounts(raw []json.RawMessage, logger Logger) []Account {
	accounts := make([]Account, 0, len(raw))
	for i, msg := range raw {
		var a Account
		if err := json.Unmarshal(msg, &a); err != nil {
			a = Account{}
			if err := decodeAccountFields(msg, &a, i, logger); err != nil {
				logger.Warn("skipping malformed account record", "index", i, "error", err)
				continue
			}
		}
		if a.ID == "" || a.Email == "" {
			logger.Warn("skipping account record without id or email", "index", i)
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts
}

// decodeAccountFields decodes msg one top-level field at a time, logging
// and skipping the fields that do not fit.
func decodeAccountFields(msg json.RawMessage, a *Account, index int, logger Logger) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil {
		return err
	}
	for key, value := range fields {
		one, err := json.Marshal(map[string]json.RawMessage{key: value})
		if err != nil {
			return err
		}
		next := *a
		if err := json.Unmarshal(one, &next); err != nil {
			logger.Warn("dropping unreadable account field", "index", index, "field", key, "error", err)
			continue
		}
		*a = next
	}
	return nil
}

func (r *AccountRegistry) commit(next []Account) error {
	if err := writeJSONFile(r.file, next); err != nil {
		return fmt.Errorf("saving account registry: %w", err)
	}
	r.accounts = next
	return nil
}

func (r *AccountRegistry) indexOf(id string) int {
	return slices.IndexFunc(r.accounts, func(a Account) bool { return a.ID == id })
}

func (r *AccountRegistry) hasEmail(email string) bool {
	return slices.ContainsFunc(r.accounts, func(a Account) bool {
		return strings.EqualFold(a.Email, email)
	})
}

// List returns all accounts in stored order.
func (r *AccountRegistry) List() []Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.accounts)
}

// Get returns the account with the given id.
func (r *AccountRegistry) Get(id string) (Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.accounts[i], true
	}
	return Account{}, false
}

// Add stores a new account. Emails are unique, compared case-insensitively.
func (r *AccountRegistry) Add(email, credential, note string) (Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Account{}, errors.New("account email is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasEmail(email) {
		return Account{}, fmt.Errorf("account %s: %w", email, ErrAlreadyExists)
	}
	a := Account{ID: r.ids.New(), Email: email, Credential: credential, Note: note}
	if err := r.commit(append(slices.Clone(r.accounts), a)); err != nil {
		return Account{}, err
	}
	r.logger.Info("account added", "id", a.ID, "email", a.Email)
	return a, nil
}

// Update replaces the stored account that has a.ID.
func (r *AccountRegistry) Update(a Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(a.ID)
	if i < 0 {
		return fmt.Errorf("account %s: %w", a.ID, ErrNotFound)
	}
	next := slices.Clone(r.accounts)
	next[i] = a
	return r.commit(next)
}

// Delete removes the account with the given id.
func (r *AccountRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return r.commit(slices.Delete(slices.Clone(r.accounts), i, i+1))
}

// MarkSnapshot records whether the account has a snapshot. A nil createdAt
// clears the flag.
func (r *AccountRegistry) MarkSnapshot(id string, createdAt *time.Time) error {
	a, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	a.HasSnapshot = createdAt != nil
	a.SnapshotCreatedAt = createdAt
	return r.Update(a)
}

// ReconcileSnapshots brings every account's snapshot flag in line with
// lookup, which reports whether a snapshot exists and when it was taken.
// It returns how many accounts changed.
func (r *AccountRegistry) ReconcileSnapshots(lookup func(accountID string) (time.Time, bool)) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := slices.Clone(r.accounts)
	changed := 0
	for i := range next {
		createdAt, ok := lookup(next[i].ID)
		if ok == next[i].HasSnapshot && (!ok || sameTime(next[i].SnapshotCreatedAt, createdAt)) {
			continue
		}
		next[i].HasSnapshot = ok
		next[i].SnapshotCreatedAt = nil
		if ok {
			t := createdAt
			next[i].SnapshotCreatedAt = &t
		}
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	if err := r.commit(next); err != nil {
		return 0, err
	}
	return changed, nil
}

func sameTime(p *time.Time, t time.Time) bool {
	return p != nil && p.Equal(t)
}

// Import reads a JSON array of accounts from rd and adds those whose email
// is not already registered. Imported accounts keep their ids unless the id
// is already taken. It returns how many were added.
func (r *AccountRegistry) Import(rd io.Reader) (int, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(rd).Decode(&raw); err != nil {
		return 0, fmt.Errorf("decoding accounts: %w", err)
	}
	incoming := decodeAccounts(raw, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()

	next := slices.Clone(r.accounts)
	added := 0
	for _, a := range incoming {
		if slices.ContainsFunc(next, func(b Account) bool { return strings.EqualFold(a.Email, b.Email) }) {
			continue
		}
		if slices.ContainsFunc(next, func(b Account) bool { return a.ID == b.ID }) {
			a.ID = r.ids.New()
		}
		next = append(next, a)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := r.commit(next); err != nil {
		return 0, err
	}
	r.logger.Info("accounts imported", "added", added, "skipped", len(incoming)-added)
	return added, nil
}

// Export writes every account to w as an indented JSON array.
func (r *AccountRegistry) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	accounts := r.List()
	if accounts == nil {
		accounts = []Account{}
	}
	if err := enc.Encode(accounts); err != nil {
		return fmt.Errorf("encoding accounts: %w", err)
	}
	return nil
}
