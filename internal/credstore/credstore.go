// Package credstore persists Service session cookies in the OS-provided
// secret store (Keychain, Secret Service, Credential Manager) via
// zalando/go-keyring, and remembers the last-used username in a small
// plaintext config file in an OS-standard app-data directory.
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const service = "com.third3d.uploader"

const (
	keyAuthCookie = "authCookie"
	keyTwoFactor  = "twoFactorCookie"
)

// Cookies is the {authCookie, twoFactorCookie} pair the secret store
// holds per username.
type Cookies struct {
	AuthCookie      string
	TwoFactorCookie string
}

// Store reads and writes session credentials keyed by username.
type Store struct {
	configDir string
}

// New builds a Store rooted at an OS-standard app-data directory.
func New() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("credstore: resolve config dir: %w", err)
	}
	appDir := filepath.Join(dir, "Third3DUploader")
	if err := os.MkdirAll(appDir, 0o700); err != nil {
		return nil, fmt.Errorf("credstore: create config dir: %w", err)
	}
	return &Store{configDir: appDir}, nil
}

// Save writes cookies to the OS secret store under username. Both fields
// are written even if one is empty, so a partial 2FA flow that is later
// abandoned does not leave a stale twoFactorCookie behind.
func (s *Store) Save(username string, cookies Cookies) error {
	if err := keyring.Set(service, compositeKey(username, keyAuthCookie), cookies.AuthCookie); err != nil {
		return fmt.Errorf("credstore: save auth cookie: %w", err)
	}
	if err := keyring.Set(service, compositeKey(username, keyTwoFactor), cookies.TwoFactorCookie); err != nil {
		return fmt.Errorf("credstore: save two-factor cookie: %w", err)
	}
	return s.setLastUsername(username)
}

// Load reads the cookie pair for username. A missing entry is not an
// error; the corresponding field is left empty.
func (s *Store) Load(username string) (Cookies, error) {
	var cookies Cookies

	auth, err := keyring.Get(service, compositeKey(username, keyAuthCookie))
	if err != nil && err != keyring.ErrNotFound {
		return cookies, fmt.Errorf("credstore: load auth cookie: %w", err)
	}
	cookies.AuthCookie = auth

	twoFactor, err := keyring.Get(service, compositeKey(username, keyTwoFactor))
	if err != nil && err != keyring.ErrNotFound {
		return cookies, fmt.Errorf("credstore: load two-factor cookie: %w", err)
	}
	cookies.TwoFactorCookie = twoFactor

	return cookies, nil
}

// Delete removes username's cookies from the secret store, best-effort.
func (s *Store) Delete(username string) {
	keyring.Delete(service, compositeKey(username, keyAuthCookie))
	keyring.Delete(service, compositeKey(username, keyTwoFactor))
}

func compositeKey(username, field string) string {
	return username + ":" + field
}

type lastUsernameFile struct {
	LastUsername string `json:"lastUsername"`
}

func (s *Store) lastUsernamePath() string {
	return filepath.Join(s.configDir, "config.json")
}

func (s *Store) setLastUsername(username string) error {
	data, err := json.Marshal(lastUsernameFile{LastUsername: username})
	if err != nil {
		return fmt.Errorf("credstore: encode config: %w", err)
	}
	tmp := s.lastUsernamePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("credstore: write config: %w", err)
	}
	if err := os.Rename(tmp, s.lastUsernamePath()); err != nil {
		return fmt.Errorf("credstore: rename config: %w", err)
	}
	return nil
}

// LastUsername returns the username from the last successful Save, or
// "" if none has been recorded yet.
func (s *Store) LastUsername() (string, error) {
	data, err := os.ReadFile(s.lastUsernamePath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credstore: read config: %w", err)
	}
	var cfg lastUsernameFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("credstore: decode config: %w", err)
	}
	return cfg.LastUsername, nil
}
