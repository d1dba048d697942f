// Package store provides the SQLite-backed key-value store for session state.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/smartpay/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Store persists the profile, card collection, auth flag and account registry of one
// local device. Values are JSON documents keyed by fixed names.
type Store struct {
	db *sql.DB
}

// State is what Load found on disk. Absent keys leave the zero value.
type State struct {
	Profile       *model.UserProfile
	Cards         []model.CreditCard
	Authenticated bool
}

// Open opens or creates the store database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the store database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the last persisted session state. Missing keys are not an error.
func (s *Store) Load() (State, error) {
	var st State

	var profile model.UserProfile
	ok, err := s.get(keyProfile, &profile)
	if err != nil {
		return st, err
	}
	if ok {
		st.Profile = &profile
	}

	if _, err := s.get(keyCards, &st.Cards); err != nil {
		return st, err
	}

	var flag string
	if _, err := s.get(keyAuth, &flag); err != nil {
		return st, err
	}
	st.Authenticated = flag == "true"

	return st, nil
}

// SaveProfile overwrites the persisted profile.
func (s *Store) SaveProfile(p model.UserProfile) error {
	return s.put(keyProfile, p)
}

// ClearProfile removes the persisted profile.
func (s *Store) ClearProfile() error {
	return s.del(keyProfile)
}

// SaveCards overwrites the persisted card collection.
func (s *Store) SaveCards(cards []model.CreditCard) error {
	if cards == nil {
		cards = []model.CreditCard{}
	}
	return s.put(keyCards, cards)
}

// SaveAuthFlag persists the authentication flag.
func (s *Store) SaveAuthFlag(authenticated bool) error {
	if !authenticated {
		return s.del(keyAuth)
	}
	return s.put(keyAuth, "true")
}

// ClearSession removes the auth flag, profile, card collection and remote id map in
// one transaction. The account registry is kept.
func (s *Store) ClearSession() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range []string{keyAuth, keyProfile, keyCards, keyRemoteIDs} {
		if _, err := tx.Exec("DELETE FROM kv WHERE key = ?", k); err != nil {
			return fmt.Errorf("clearing %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Accounts returns the local account registry, empty if none was ever saved.
func (s *Store) Accounts() ([]model.Account, error) {
	var accounts []model.Account
	if _, err := s.get(keyAccounts, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SaveAccounts overwrites the local account registry.
func (s *Store) SaveAccounts(accounts []model.Account) error {
	return s.put(keyAccounts, accounts)
}

// RemoteIDs returns the local card id -> remote card id map.
func (s *Store) RemoteIDs() (map[string]string, error) {
	ids := make(map[string]string)
	if _, err := s.get(keyRemoteIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveRemoteIDs overwrites the local -> remote card id map.
func (s *Store) SaveRemoteIDs(ids map[string]string) error {
	return s.put(keyRemoteIDs, ids)
}

// get decodes the value under key into dst. ok is false when the key is absent.
func (s *Store) get(key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		key, string(data), now)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) del(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}
