package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/existflow/tasknest/internal/gamify"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/model"
	"github.com/existflow/tasknest/internal/notify"
)

// AppendEntry adds a timeline entry to a task. Unless touch is false it also
// touches the owning task (which runs the bonus check). NOTE/FILE/IMAGE
// appends award the content event.
func (r *Repository) AppendEntry(ctx context.Context, taskID string, entryType model.EntryType, content string, touch bool) (model.TimelineEntry, error) {
	if !entryType.Valid() {
		return model.TimelineEntry{}, &model.ValidationError{Field: "type", Reason: "unknown value " + string(entryType)}
	}

	entry := model.TimelineEntry{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Type:      entryType,
		Content:   content,
		CreatedAt: r.now().UnixMilli(),
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, taskID).Scan(&one)
		if err == sql.ErrNoRows {
			return &model.NotFoundError{Kind: "task", ID: taskID}
		}
		if err != nil {
			return &model.PersistenceError{Op: "read task", Err: err}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO timeline_entries (id, task_id, type, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			entry.ID, entry.TaskID, entry.Type, entry.Content, entry.CreatedAt,
		)
		if err != nil {
			return &model.PersistenceError{Op: "append entry", Err: err}
		}
		return nil
	})
	if err != nil {
		return model.TimelineEntry{}, err
	}

	switch entryType {
	case model.EntryNote, model.EntryFile, model.EntryImage:
		r.applyEvent(ctx, gamify.EventAddContent)
	}

	if touch {
		touchTrue := true
		if _, err := r.Update(ctx, taskID, TaskUpdate{Touch: &touchTrue}); err != nil {
			logger.Warn("touch after append failed", logger.F("task", taskID), logger.F("error", err))
		}
	}

	r.notifier.DataChanged(notify.TimelineEntryAdded, taskID)
	return entry, nil
}

// EditEntry replaces an entry's content. Type and created_at never change.
// Editing touches the owning task, which re-evaluates bonus eligibility.
func (r *Repository) EditEntry(ctx context.Context, entryID, content string) (model.TimelineEntry, error) {
	var entry model.TimelineEntry
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, task_id, type, content, created_at
			FROM timeline_entries WHERE id = ?`, entryID,
		).Scan(&entry.ID, &entry.TaskID, &entry.Type, &entry.Content, &entry.CreatedAt)
		if err == sql.ErrNoRows {
			return &model.NotFoundError{Kind: "entry", ID: entryID}
		}
		if err != nil {
			return &model.PersistenceError{Op: "read entry", Err: err}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE timeline_entries SET content = ? WHERE id = ?`, content, entryID); err != nil {
			return &model.PersistenceError{Op: "edit entry", Err: err}
		}
		entry.Content = content
		return nil
	})
	if err != nil {
		return model.TimelineEntry{}, err
	}

	touchTrue := true
	if _, err := r.Update(ctx, entry.TaskID, TaskUpdate{Touch: &touchTrue}); err != nil {
		logger.Warn("touch after edit failed", logger.F("task", entry.TaskID), logger.F("error", err))
	}

	r.notifier.DataChanged(notify.TimelineEntryUpdated, entry.TaskID)
	return entry, nil
}

// DeleteEntry removes a timeline entry, requesting deletion of the backing
// attachment first for IMAGE/FILE entries. Returns false when the entry does
// not exist. A storage failure is logged and does not block row removal: the
// row is what the user sees.
func (r *Repository) DeleteEntry(ctx context.Context, entryID string) (bool, error) {
	var taskID, content string
	var entryType model.EntryType
	err := r.db.QueryRowContext(ctx, `
		SELECT task_id, type, content FROM timeline_entries WHERE id = ?`, entryID,
	).Scan(&taskID, &entryType, &content)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &model.PersistenceError{Op: "read entry", Err: err}
	}

	if entryType.IsAttachment() {
		if err := r.files.Delete(content); err != nil {
			logger.Warn("attachment delete failed", logger.F("path", content), logger.F("error", err))
		}
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM timeline_entries WHERE id = ?`, entryID); err != nil {
		return false, &model.PersistenceError{Op: "delete entry", Err: err}
	}

	r.notifier.DataChanged(notify.TimelineEntryDeleted, taskID)
	return true, nil
}
