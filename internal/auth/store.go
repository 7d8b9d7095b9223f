package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/nikbrunner/bmsync/internal/model"
)

// savedSession is the on-disk sign-in state.
type savedSession struct {
	Provider string        `json:"provider"`
	User     model.User    `json:"user"`
	Token    *oauth2.Token `json:"token,omitempty"`
	IDToken  string        `json:"idToken,omitempty"`
}

// sessionFile persists a savedSession as JSON with owner-only permissions.
type sessionFile struct {
	path string
}

// load returns nil, nil when no session has been saved.
func (f sessionFile) load() (*savedSession, error) {
	if f.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var s savedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return &s, nil
}

func (f sessionFile) save(s *savedSession) error {
	if f.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0600)
}

func (f sessionFile) clear() error {
	if f.path == "" {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
