// Package settings persists the small amount of state the session keeps
// between runs. The session never reads settings ambiently: a Store is
// injected, loaded at start and saved at stop.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Keys read and written by the session.
const (
	KeyRecentFiles = "recentFiles"
	KeyLastOpenDir = "lastOpenDir"
	KeyLastSaveDir = "lastSaveDir"
)

// Store is an opaque key/value settings collaborator.
type Store interface {
	Load() error
	Save() error
	Strings(key string) []string
	SetStrings(key string, values []string)
	String(key string) string
	SetString(key, value string)
}

// FileStore keeps settings in a file through viper. The format follows the
// file extension (yaml, toml, json).
type FileStore struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// NewFileStore creates a store backed by path. Nothing is read until Load.
func NewFileStore(path string) *FileStore {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	return &FileStore{path: path, v: v}
}

// DefaultPath returns the per-user settings location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "molstage", "settings.yaml"), nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the file. A missing file leaves the defaults in place.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read settings: %w", err)
	}
	return nil
}

// Save writes the file, creating its directory if needed.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir settings dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (s *FileStore) Strings(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetStringSlice(key)
}

func (s *FileStore) SetStrings(key string, values []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, append([]string(nil), values...))
}

func (s *FileStore) String(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(key)
}

func (s *FileStore) SetString(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
}

// MemoryStore keeps settings in memory only. It is what the editor uses when
// settings are disabled, and what tests use.
type MemoryStore struct {
	mu      sync.Mutex
	strs    map[string]string
	lists   map[string][]string
	Saves   int
	LoadErr error
	SaveErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strs:  make(map[string]string),
		lists: make(map[string][]string),
	}
}

func (m *MemoryStore) Load() error { return m.LoadErr }

func (m *MemoryStore) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	return m.SaveErr
}

func (m *MemoryStore) Strings(key string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lists[key]...)
}

func (m *MemoryStore) SetStrings(key string, values []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append([]string(nil), values...)
}

func (m *MemoryStore) String(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strs[key]
}

func (m *MemoryStore) SetString(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strs[key] = value
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
