package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the session file kept in the config directory.
const FileName = "session.yaml"

type sessionFile struct {
	AccessToken string    `yaml:"access_token"`
	SavedAt     time.Time `yaml:"saved_at"`
}

// File is a Token provider whose token survives restarts in a YAML file.
type File struct {
	*Token
	path string
}

// OpenFile loads the token saved at path, if any. A missing, unreadable or
// expired token leaves the provider signed out without failing.
func OpenFile(path, secret string) *File {
	f := &File{Token: NewToken(secret), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return f
	}
	var doc sessionFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return f
	}
	_ = f.SetToken(doc.AccessToken)
	return f
}

// Path returns the session file location.
func (f *File) Path() string {
	return f.path
}

// Login validates raw and saves it.
func (f *File) Login(raw string) error {
	if err := f.SetToken(raw); err != nil {
		return err
	}
	data, err := yaml.Marshal(sessionFile{AccessToken: f.AccessToken(), SavedAt: f.now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Logout signs out and removes the saved token.
func (f *File) Logout() error {
	f.Clear()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
