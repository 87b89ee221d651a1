// store.go persists the catalog document. The document is the only state
// shared between the web console and the interaction controller, so every
// mutation is a full read-mutate-write cycle serialized by an in-process
// mutex plus an exclusive lock on a sibling lock file.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// ErrNoChange can be returned from an Update mutation to signal that the
// document was not modified and must not be rewritten.
var ErrNoChange = errors.New("catalog: no change")

// Store loads and saves the catalog document at a fixed path.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store for the document at path. The file does not
// need to exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted document. A missing file yields the compiled-in
// defaults. A syntactically invalid file is quarantined to a .bak sibling
// and replaced by defaults; the recovery is logged, never surfaced as a
// failure. Missing settings and embed fields are backfilled from defaults.
func (s *Store) Load() (*Catalog, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	c := &Catalog{}
	if err := json.Unmarshal(data, c); err != nil {
		bak := s.path + ".bak"
		if renameErr := os.Rename(s.path, bak); renameErr != nil {
			slog.Error("catalog corrupt and quarantine failed",
				"path", s.path, "parse_error", err, "rename_error", renameErr)
		} else {
			slog.Error("catalog corrupt, quarantined and reset to defaults",
				"path", s.path, "backup", bak, "error", err)
		}
		return Default(), nil
	}

	c.applyDefaults()
	return c, nil
}

// Save overwrites the whole document. The parent directory is created if
// absent, and the write goes through a temp file renamed into place so a
// crash never leaves a truncated document behind.
func (s *Store) Save(c *Catalog) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// Update runs one serialized read-mutate-write cycle: it takes the process
// mutex and an exclusive flock on the sibling lock file, re-reads the
// document fresh, applies fn, and saves. fn may return ErrNoChange to skip
// the write. Any other error from fn aborts the cycle without saving and
// is returned unwrapped.
//
// Both processes mutate through Update, so the lock file is what prevents
// the console and the controller from losing each other's writes.
func (s *Store) Update(ctx context.Context, fn func(*Catalog) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	c, err := s.Load()
	if err != nil {
		return err
	}

	if err := fn(c); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}

	return s.Save(c)
}

// lockFile takes an exclusive advisory lock on <path>.lock, blocking until
// the other process releases it.
func (s *Store) lockFile() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open catalog lock: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock catalog: %w", err)
	}
	return func() {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}
