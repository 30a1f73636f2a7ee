package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	envStateHome = "WORKTRACE_STATE_DIR" // override for tests
	stateDirName = ".worktrace"          // default under $HOME
	identityFile = "identity.json"
)

// Identity is the single credential slot a collector holds: the account email
// and API key received through the dashboard handshake. Binding a new
// identity replaces the old one.
type Identity struct {
	Email    string    `json:"email"`
	APIKey   string    `json:"apiKey"`
	SyncedAt time.Time `json:"syncedAt"`
}

// ErrNoIdentity is returned when no identity has been bound yet.
var ErrNoIdentity = errors.New("no identity bound")

// IdentityStore persists the identity as a JSON file under the state
// directory.
type IdentityStore struct {
	dir string
}

// NewIdentityStore creates the store rooted at dir. If dir is empty,
// WORKTRACE_STATE_DIR or $HOME/.worktrace is used.
func NewIdentityStore(dir string) (*IdentityStore, error) {
	if dir == "" {
		if custom := os.Getenv(envStateHome); custom != "" {
			dir = custom
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("cannot determine user home: %w", err)
			}
			dir = filepath.Join(home, stateDirName)
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &IdentityStore{dir: dir}, nil
}

func (s *IdentityStore) path() string {
	return filepath.Join(s.dir, identityFile)
}

// Load returns the bound identity, or ErrNoIdentity when none exists.
func (s *IdentityStore) Load() (*Identity, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, err
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("corrupt identity file: %w", err)
	}
	if id.Email == "" || id.APIKey == "" {
		return nil, ErrNoIdentity
	}
	return &id, nil
}

// Save replaces the bound identity. The write goes through a temp file and
// rename so a crash never leaves a half-written credential.
func (s *IdentityStore) Save(id *Identity) error {
	if id.Email == "" || id.APIKey == "" {
		return fmt.Errorf("identity requires email and apiKey")
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

// Clear removes the bound identity. Clearing an empty slot is not an error.
func (s *IdentityStore) Clear() error {
	err := os.Remove(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
