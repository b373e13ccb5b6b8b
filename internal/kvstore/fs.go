package kvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/starford/physiodesk/internal/checksum"
)

const fileExt = ".json"

var keyRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FS implements Provider as one <key>.json file per key in a directory.
type FS struct {
	root string // absolute path to the store directory

	mu      sync.Mutex
	written map[string]string // key -> checksum of the last value this process wrote
}

var _ Provider = (*FS)(nil)

// NewFS creates an FS store rooted at dir, creating the directory if needed.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("kvstore: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("kvstore: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("kvstore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("kvstore: root is not a directory: %s", abs)
	}
	return &FS{root: abs, written: make(map[string]string)}, nil
}

// Root returns the absolute store directory.
func (f *FS) Root() string {
	return f.root
}

// keyPath maps a key to its file. Keys are plain names; anything that could
// escape the root is rejected.
func (f *FS) keyPath(key string) (string, error) {
	if !keyRe.MatchString(key) {
		return "", fmt.Errorf("kvstore: invalid key %q", key)
	}
	return filepath.Join(f.root, key+fileExt), nil
}

// KeyForPath returns the key stored at path, if path is a store file.
func (f *FS) KeyForPath(path string) (string, bool) {
	if filepath.Dir(path) != f.root {
		return "", false
	}
	name := filepath.Base(path)
	if !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key := strings.TrimSuffix(name, fileExt)
	return key, keyRe.MatchString(key)
}

// Get returns the value stored under key.
func (f *FS) Get(key string) (string, bool, error) {
	p, err := f.keyPath(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: read %s: %w", key, err)
	}
	return string(data), true, nil
}

// SetAll writes each entry atomically (temp file, fsync, rename). The batch
// as a whole is not atomic.
func (f *FS) SetAll(entries map[string]string) error {
	for _, k := range sortedKeys(entries) {
		if err := f.write(k, entries[k]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FS) write(key, value string) error {
	p, err := f.keyPath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".physiodesk-tmp-*")
	if err != nil {
		return fmt.Errorf("kvstore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(value); err != nil {
		return fmt.Errorf("kvstore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("kvstore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kvstore: close temp: %w", err)
	}

	// Record before the rename so a watcher never sees our own write as foreign.
	f.mu.Lock()
	f.written[key] = checksum.SumString(value)
	f.mu.Unlock()

	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("kvstore: rename: %w", err)
	}
	success = true
	return nil
}

// OwnWrite reports whether value is exactly what this process last wrote
// under key.
func (f *FS) OwnWrite(key, value string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs, ok := f.written[key]
	return ok && cs == checksum.SumString(value)
}

// Clear removes every key file in the store directory.
func (f *FS) Clear() error {
	matches, err := filepath.Glob(filepath.Join(f.root, "*"+fileExt))
	if err != nil {
		return fmt.Errorf("kvstore: clear: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("kvstore: clear %s: %w", filepath.Base(m), err)
		}
	}
	f.mu.Lock()
	f.written = make(map[string]string)
	f.mu.Unlock()
	return nil
}

// Close is a no-op for the file system store.
func (f *FS) Close() error {
	return nil
}
