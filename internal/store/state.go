package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DataDir returns the path to the sokoni data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/sokoni.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "sokoni"), nil
}

// PrefsPath returns the path to the client-local preferences file.
func PrefsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "prefs.json"), nil
}

const (
	// CurrentSchemaVersion is the current version of the prefs schema.
	CurrentSchemaVersion = 1
)

// prefsFile is the on-disk JSON layout.
type prefsFile struct {
	Values    map[string]string `json:"values"`
	UpdatedAt int64             `json:"updated_at,omitempty"`

	// Version for compatibility
	SchemaVersion int `json:"schema_version"`
}

// FileKV is a KV persisted to a JSON file. Every write rewrites the whole
// file atomically via a temp file and rename.
type FileKV struct {
	mu   sync.RWMutex
	path string
	data map[string]string
}

// OpenFileKV opens (or lazily creates) a FileKV at path.
// A missing file yields an empty store.
func OpenFileKV(path string) (*FileKV, error) {
	if path == "" {
		return nil, errors.New("prefs path cannot be empty")
	}
	f := &FileKV{
		path: path,
		data: make(map[string]string),
	}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the backing file path.
func (f *FileKV) Path() string {
	return f.path
}

// Reload re-reads the backing file, discarding the in-memory view.
// A corrupted file is treated as empty.
func (f *FileKV) Reload() error {
	_, err := f.reload()
	return err
}

// reload replaces the in-memory view with the file contents and returns
// the keys whose value differs. A file this FileKV wrote itself yields no
// changes.
func (f *FileKV) reload() ([]string, error) {
	values, err := f.read()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var changed []string
	for k, v := range values {
		if old, ok := f.data[k]; !ok || old != v {
			changed = append(changed, k)
		}
	}
	for k := range f.data {
		if _, ok := values[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	f.data = values
	return changed, nil
}

func (f *FileKV) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read prefs: %w", err)
	}

	var pf prefsFile
	if err := json.Unmarshal(data, &pf); err != nil {
		pf = prefsFile{}
	}
	if pf.Values == nil {
		pf.Values = make(map[string]string)
	}
	return pf.Values, nil
}

// Get retrieves a value by key.
func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok, nil
}

// Set stores a value and persists the file.
func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := maps.Clone(f.data)
	next[key] = value
	if err := f.save(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// Delete removes a key and persists the file.
func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.data[key]; !ok {
		return nil
	}
	next := maps.Clone(f.data)
	delete(next, key)
	if err := f.save(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// Keys returns all stored keys.
func (f *FileKV) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys
}

// save must be called with f.mu held.
func (f *FileKV) save(values map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create prefs directory: %w", err)
	}

	data, err := json.MarshalIndent(prefsFile{
		Values:        values,
		UpdatedAt:     time.Now().Unix(),
		SchemaVersion: CurrentSchemaVersion,
	}, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	return os.Rename(tmpPath, f.path)
}
