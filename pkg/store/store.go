// Package store persists run snapshots so an interrupted or budget-limited
// document run can be inspected and resumed.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/coolbeans/hukum/pkg/schedule"
)

// ErrNotFound is returned when no snapshot exists for a document.
var ErrNotFound = errors.New("snapshot not found")

// ErrInvalidID is returned for a document ID that cannot name a snapshot.
var ErrInvalidID = errors.New("invalid document id")

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateID reports whether documentID is safe to use as a file name and a
// Firestore document key: letters, digits, '.', '_' and '-', starting with a
// letter or digit, with no "..".
func ValidateID(documentID string) error {
	if !validID.MatchString(documentID) || strings.Contains(documentID, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, documentID)
	}
	return nil
}

// Store saves and loads snapshots keyed by document ID.
type Store interface {
	Save(ctx context.Context, snapshot *schedule.Snapshot) error
	Load(ctx context.Context, documentID string) (*schedule.Snapshot, error)
}

// FileStore keeps one JSON file per document in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. An empty dir means the
// current directory.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{dir: dir}
}

// Path returns the state file path for a document.
func (fs *FileStore) Path(documentID string) string {
	return filepath.Join(fs.dir, documentID+".state.json")
}

// Save writes the snapshot to Path(snapshot.DocumentID), creating the
// directory if needed.
func (fs *FileStore) Save(ctx context.Context, snapshot *schedule.Snapshot) error {
	if err := ValidateID(snapshot.DocumentID); err != nil {
		return err
	}
	if err := os.MkdirAll(fs.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", fs.dir, err)
	}
	return WriteFile(fs.Path(snapshot.DocumentID), snapshot)
}

// Load reads the snapshot for documentID.
func (fs *FileStore) Load(ctx context.Context, documentID string) (*schedule.Snapshot, error) {
	if err := ValidateID(documentID); err != nil {
		return nil, err
	}
	return ReadFile(fs.Path(documentID))
}

// WriteFile writes a snapshot as indented JSON, stamping UpdatedAt.
func WriteFile(path string, snapshot *schedule.Snapshot) error {
	snapshot.UpdatedAt = time.Now()

	stateJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, stateJSON, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot to %s: %w", path, err)
	}

	return nil
}

// ReadFile reads a snapshot written by WriteFile. A missing file yields an
// error wrapping ErrNotFound.
func ReadFile(path string) (*schedule.Snapshot, error) {
	stateJSON, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot from %s: %w", path, err)
	}

	var snapshot schedule.Snapshot
	if err := json.Unmarshal(stateJSON, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}

	return &snapshot, nil
}
