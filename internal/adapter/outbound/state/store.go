// Package state provides file-based persistence for the stockdeck session.
//
// The session file holds the serialized credential/user pair that survives
// restarts. This package provides atomic writes, file locking, and a
// checksum so a corrupt file is discarded instead of rehydrating garbage.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/stock-deck/stockdeck/internal/domain/session"
)

// schemaVersion is the on-disk envelope version.
const schemaVersion = "1"

// envelope wraps the persisted session with integrity metadata.
type envelope struct {
	// Version is the schema version for forward compatibility.
	Version string `json:"version"`

	// Checksum is the xxhash64 of the Session bytes, hex-encoded.
	Checksum string `json:"checksum"`

	// Session is the serialized session payload.
	Session json.RawMessage `json:"session"`

	// UpdatedAt is when this file was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// FileSessionStore persists the session to a single JSON file.
// It provides atomic writes (write-tmp-then-rename), file locking
// (flock for cross-process, mutex for in-process), and checksum
// verification on load. It implements session.Persister.
type FileSessionStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileSessionStore creates a FileSessionStore for the given file path.
func NewFileSessionStore(path string, logger *slog.Logger) *FileSessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSessionStore{
		path:   path,
		logger: logger,
	}
}

// Load reads and verifies the session file.
// A missing file, a corrupt file, or a checksum mismatch all return
// (nil, nil): durable state is best-effort and a bad file is treated as
// "no persisted session" rather than a fatal error. Only I/O errors on
// an existing file are returned.
func (s *FileSessionStore) Load() (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	// The file holds a bearer credential; warn if readable by others.
	// Skip on Windows where Unix permission bits are not supported.
	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 {
				s.logger.Warn("session file has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("discarding unparsable session file", "path", s.path, "error", err)
		return nil, nil
	}

	if sum := checksum(env.Session); sum != env.Checksum {
		s.logger.Warn("discarding session file with checksum mismatch",
			"path", s.path, "expected", env.Checksum, "actual", sum)
		return nil, nil
	}

	var sess session.Session
	if err := json.Unmarshal(env.Session, &sess); err != nil {
		s.logger.Warn("discarding session file with invalid payload", "path", s.path, "error", err)
		return nil, nil
	}

	return &sess, nil
}

// Save writes the session to disk atomically.
//
// The write sequence is:
//  1. Acquire in-process mutex
//  2. Acquire flock on path+".lock"
//  3. Copy current file to path+".bak" (skipped if no current file)
//  4. Marshal the envelope as indented JSON
//  5. Write to path+".tmp" with 0600 permissions
//  6. Fsync the temp file
//  7. Rename path+".tmp" -> path
func (s *FileSessionStore) Save(sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	// Best-effort backup of the current file.
	if currentData, readErr := os.ReadFile(s.path); readErr == nil {
		bakPath := s.path + ".bak"
		if writeErr := os.WriteFile(bakPath, currentData, 0600); writeErr != nil {
			s.logger.Warn("failed to create session backup", "error", writeErr)
		}
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	env := envelope{
		Version:   schemaVersion,
		Checksum:  checksum(payload),
		Session:   payload,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session envelope: %w", err)
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return err
	}

	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on session file", "error", err)
	}

	s.logger.Debug("session saved", "path", s.path)
	return nil
}

// Clear removes the session file and its backup.
func (s *FileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = os.Remove(s.path + ".bak")
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Exists returns true if the session file exists on disk.
func (s *FileSessionStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the configured file path.
func (s *FileSessionStore) Path() string {
	return s.path
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileSessionStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to session file: %w", err)
	}
	return nil
}

// checksum returns the hex-encoded xxhash64 of the payload bytes.
func checksum(payload []byte) string {
	return strconv.FormatUint(xxhash.Sum64(payload), 16)
}

// Compile-time check that FileSessionStore implements session.Persister.
var _ session.Persister = (*FileSessionStore)(nil)
