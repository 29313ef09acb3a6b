package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/existflow/tasknest/internal/model"
)

// Local stores attachments in per-task directories under a root folder
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir, creating it if needed
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachments directory: %w", err)
	}
	return &Local{root: dir}, nil
}

// Store writes the attachment and returns its relative path
// (<task_id>/<prefix>-<name>). A random prefix keeps repeated uploads of the
// same filename from colliding.
func (l *Local) Store(taskID, filename string, r io.Reader) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "attachment"
	}
	name = uuid.NewString()[:8] + "-" + name

	dir := filepath.Join(l.root, taskID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &model.StorageError{Op: "store", Path: taskID, Err: err}
	}

	absPath := filepath.Join(dir, name)
	f, err := os.Create(absPath)
	if err != nil {
		return "", &model.StorageError{Op: "store", Path: absPath, Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(absPath)
		return "", &model.StorageError{Op: "store", Path: absPath, Err: err}
	}

	// Relative, slash-separated paths keep the database portable.
	return taskID + "/" + name, nil
}

// Resolve maps a relative attachment path to an absolute one, rejecting
// paths that escape the storage root
func (l *Local) Resolve(relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", &model.StorageError{Op: "resolve", Path: relPath, Err: fmt.Errorf("path must be relative")}
	}
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", &model.StorageError{Op: "resolve", Path: relPath, Err: fmt.Errorf("path escapes storage root")}
	}
	return filepath.Join(l.root, cleaned), nil
}

// Delete removes a single attachment file
func (l *Local) Delete(relPath string) error {
	abs, err := l.Resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return &model.StorageError{Op: "delete", Path: relPath, Err: err}
	}
	return nil
}

// DeleteAll removes a task's attachment directory
func (l *Local) DeleteAll(taskID string) error {
	if err := os.RemoveAll(filepath.Join(l.root, taskID)); err != nil {
		return &model.StorageError{Op: "delete-all", Path: taskID, Err: err}
	}
	return nil
}
