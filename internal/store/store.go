// Package store persists the account table as a single JSON artifact. The
// file layout is a mapping from decimal user ID to the account record, which
// keeps it human-readable and backward compatible with earlier deployments.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/arcanabot/arcana/internal/ledger"
)

// Ensure FileStore satisfies the ledger's persistence interface.
var _ ledger.Store = (*FileStore)(nil)

// FileStore reads and writes the full account table at a fixed path.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed account store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the state artifact.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted account table. A missing or empty file means a
// fresh install and yields an empty table. An unparsable file is an error:
// the caller must fail startup rather than silently reset paid balances.
func (s *FileStore) Load() (map[int64]ledger.Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[int64]ledger.Account{}, nil
		}
		return nil, fmt.Errorf("read account state %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return map[int64]ledger.Account{}, nil
	}

	var raw map[string]ledger.Account
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode account state %s: %w", s.path, err)
	}

	accounts := make(map[int64]ledger.Account, len(raw))
	for key, acct := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("account state %s: invalid user ID %q: %w", s.path, key, err)
		}
		accounts[id] = acct
	}
	return accounts, nil
}

// Save writes the full account table atomically: the data is staged in a
// temp file and renamed over the artifact, so a crash at any point leaves
// either the previous or the new state on disk, never a torn one.
func (s *FileStore) Save(accounts map[int64]ledger.Account) error {
	raw := make(map[string]ledger.Account, len(accounts))
	for id, acct := range accounts {
		raw[strconv.FormatInt(id, 10)] = acct
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create state directory %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp account state %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit account state %s: %w", s.path, err)
	}
	return nil
}
