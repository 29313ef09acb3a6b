// Package storage holds attachment bytes for timeline entries. The database
// only ever records the relative paths this package hands out; file contents
// are opaque to the rest of the system.
package storage

import "io"

// Store is the attachment storage collaborator. Delete and DeleteAll are
// best-effort: callers log failures and keep the database row as the source
// of truth.
type Store interface {
	// Store writes the bytes under the task's attachment directory and
	// returns a relative path suitable for TimelineEntry content.
	Store(taskID, filename string, r io.Reader) (string, error)

	// Resolve maps a stored relative path back to an absolute path.
	Resolve(relPath string) (string, error)

	// Delete removes a single stored attachment.
	Delete(relPath string) error

	// DeleteAll removes a task's entire attachment directory.
	DeleteAll(taskID string) error
}
