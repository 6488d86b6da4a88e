// Package session is the client half of driver session exclusivity. A
// Watcher polls the server while a driver is signed in and, on eviction,
// clears the local snapshot and signals the presentation layer through a
// Bridge.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Snapshot is what the client persists between runs. The identity and the
// session token are always saved and cleared together.
type Snapshot struct {
	IdentityID   string `json:"identity_id"`
	Phone        string `json:"phone"`
	Role         string `json:"role"`
	IsDriver     bool   `json:"is_driver"`
	AccessToken  string `json:"access_token,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
}

// Watched reports whether the snapshot belongs to an identity bound to a
// single device.
func (s Snapshot) Watched() bool {
	return s.IdentityID != "" && (s.IsDriver || s.Role == "driver")
}

// LocalStore persists one Snapshot. Load returns ok=false when nothing is
// stored.
type LocalStore interface {
	Load() (snap Snapshot, ok bool, err error)
	Save(Snapshot) error
	Clear() error
}

// MemoryStore keeps the snapshot in memory.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewMemoryStore returns an empty store. Its contents die with the process,
// which suits tests and short-lived clients.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load() (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return Snapshot{}, false, nil
	}
	return *m.snap, true, nil
}

func (m *MemoryStore) Save(s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

// FileStore keeps the snapshot as a JSON file, written through a temporary
// file and rename so a crash never leaves half a snapshot behind.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

// NewFileStore returns a store persisting to path. The file and its parent
// directory are created on the first Save with owner-only permissions,
// since the snapshot holds the session token.
func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

func (f *FileStore) Load() (Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, true, nil
}

func (f *FileStore) Save(s Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}
