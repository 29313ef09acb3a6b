// Package repo owns task and timeline-entry lifecycle over the SQLite store.
// Derived fields (idle age, attachment counts) are computed per read, never
// stored. Gamification and change-notification side effects run as an
// ordered post-commit hook list so a failed transaction has no side effects.
package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/existflow/tasknest/internal/db"
	"github.com/existflow/tasknest/internal/gamify"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/model"
	"github.com/existflow/tasknest/internal/notify"
	"github.com/existflow/tasknest/internal/storage"
)

// Repository is the single owner of task and timeline state
type Repository struct {
	db       *db.DB
	files    storage.Store
	engine   *gamify.Engine
	notifier notify.Notifier
	now      func() time.Time
}

// New creates a repository. All collaborators are required.
func New(database *db.DB, files storage.Store, engine *gamify.Engine, notifier notify.Notifier) *Repository {
	return &Repository{
		db:       database,
		files:    files,
		engine:   engine,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetNow overrides the repository's clock. Used by tests.
func (r *Repository) SetNow(now func() time.Time) {
	r.now = now
}

// hook is a post-commit side effect; hooks run in append order
type hook func(ctx context.Context)

const taskColumns = `id, title, status, priority, created_at, last_touched_at, archived_at, delete_after_at, pinned_summary`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var t model.Task
	var archivedAt, deleteAfterAt sql.NullInt64
	err := row.Scan(&t.ID, &t.Title, &t.Status, &t.Priority, &t.CreatedAt,
		&t.LastTouchedAt, &archivedAt, &deleteAfterAt, &t.PinnedSummary)
	if err != nil {
		return model.Task{}, err
	}
	if archivedAt.Valid {
		t.ArchivedAt = &archivedAt.Int64
	}
	if deleteAfterAt.Valid {
		t.DeleteAfterAt = &deleteAfterAt.Int64
	}
	return t, nil
}

func getTaskTx(ctx context.Context, tx *sql.Tx, id string) (model.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return model.Task{}, &model.NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return model.Task{}, &model.PersistenceError{Op: "read task", Err: err}
	}
	return t, nil
}

// Create inserts a new OPEN task and awards the creation event
func (r *Repository) Create(ctx context.Context, title string, priority model.Priority) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, &model.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if priority == "" {
		priority = model.PriorityNormal
	}
	if !priority.Valid() {
		return model.Task{}, &model.ValidationError{Field: "priority", Reason: "unknown value " + string(priority)}
	}

	nowMillis := r.now().UnixMilli()
	t := model.Task{
		ID:            uuid.NewString(),
		Title:         title,
		Status:        model.StatusOpen,
		Priority:      priority,
		CreatedAt:     nowMillis,
		LastTouchedAt: nowMillis,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, status, priority, created_at, last_touched_at, pinned_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Status, t.Priority, t.CreatedAt, t.LastTouchedAt, t.PinnedSummary,
	)
	if err != nil {
		return model.Task{}, &model.PersistenceError{Op: "create task", Err: err}
	}

	r.applyEvent(ctx, gamify.EventCreateTask)
	r.notifier.DataChanged(notify.TaskCreated, t.ID)

	logger.Info("task created", logger.F("task", t.ID), logger.F("priority", t.Priority))
	return t, nil
}

// Get returns a task and its full timeline in insertion order
func (r *Repository) Get(ctx context.Context, id string) (model.Task, []model.TimelineEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return model.Task{}, nil, &model.NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return model.Task{}, nil, &model.PersistenceError{Op: "read task", Err: err}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, type, content, created_at
		FROM timeline_entries WHERE task_id = ?
		ORDER BY created_at ASC, rowid ASC`, id)
	if err != nil {
		return model.Task{}, nil, &model.PersistenceError{Op: "read timeline", Err: err}
	}
	defer rows.Close()

	var entries []model.TimelineEntry
	for rows.Next() {
		var e model.TimelineEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Type, &e.Content, &e.CreatedAt); err != nil {
			return model.Task{}, nil, &model.PersistenceError{Op: "read timeline", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return model.Task{}, nil, &model.PersistenceError{Op: "read timeline", Err: err}
	}

	return t, entries, nil
}

// TaskUpdate is a partial update; nil fields are left unchanged. Touch
// overrides the default touch behavior in either direction.
type TaskUpdate struct {
	Title         *string
	Status        *model.Status
	Priority      *model.Priority
	PinnedSummary *string
	Touch         *bool
}

// Update applies a partial update. Setting any field counts as a meaningful
// change and touches the task unless Touch is explicitly false; Touch true
// always touches. Archiving (re)starts the retention countdown; moving a
// task out of ARCHIVED cancels it. The completion event fires only on the
// transition into DONE.
func (r *Repository) Update(ctx context.Context, id string, upd TaskUpdate) (model.Task, error) {
	// Reject before any mutation.
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return model.Task{}, &model.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return model.Task{}, &model.ValidationError{Field: "status", Reason: "unknown value " + string(*upd.Status)}
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		return model.Task{}, &model.ValidationError{Field: "priority", Reason: "unknown value " + string(*upd.Priority)}
	}

	nowMillis := r.now().UnixMilli()

	var updated model.Task
	var hooks []hook
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		t, err := getTaskTx(ctx, tx, id)
		if err != nil {
			return err
		}
		prev := t

		fieldChanged := false
		if upd.Title != nil {
			t.Title = strings.TrimSpace(*upd.Title)
			fieldChanged = true
		}
		if upd.Priority != nil {
			t.Priority = *upd.Priority
			fieldChanged = true
		}
		if upd.PinnedSummary != nil {
			t.PinnedSummary = *upd.PinnedSummary
			fieldChanged = true
		}
		if upd.Status != nil {
			t.Status = *upd.Status
			fieldChanged = true
			if t.Status == model.StatusArchived {
				// Every archive, including a re-archive, restarts the countdown.
				archivedAt := nowMillis
				deleteAfter := nowMillis + model.RetentionDays*model.MillisPerDay
				t.ArchivedAt = &archivedAt
				t.DeleteAfterAt = &deleteAfter
			} else if prev.Status == model.StatusArchived {
				// Un-archiving cancels the purge countdown.
				t.ArchivedAt = nil
				t.DeleteAfterAt = nil
			}
		}

		touch := fieldChanged
		if upd.Touch != nil {
			touch = *upd.Touch
		}
		if touch {
			t.LastTouchedAt = nowMillis
		}

		var archivedAt, deleteAfterAt sql.NullInt64
		if t.ArchivedAt != nil {
			archivedAt = sql.NullInt64{Int64: *t.ArchivedAt, Valid: true}
		}
		if t.DeleteAfterAt != nil {
			deleteAfterAt = sql.NullInt64{Int64: *t.DeleteAfterAt, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks
			SET title = ?, status = ?, priority = ?, last_touched_at = ?,
			    archived_at = ?, delete_after_at = ?, pinned_summary = ?
			WHERE id = ?`,
			t.Title, t.Status, t.Priority, t.LastTouchedAt,
			archivedAt, deleteAfterAt, t.PinnedSummary, t.ID,
		)
		if err != nil {
			return &model.PersistenceError{Op: "update task", Err: err}
		}

		if upd.Status != nil && prev.Status != model.StatusDone && t.Status == model.StatusDone {
			hooks = append(hooks, func(ctx context.Context) {
				r.applyEvent(ctx, gamify.EventCompleteTask)
			})
		}
		if touch {
			hooks = append(hooks, r.revivalHook(t.ID, prev.LastTouchedAt))
		}

		updated = t
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}

	for _, h := range hooks {
		h(ctx)
	}
	r.notifier.DataChanged(notify.TaskUpdated, id)

	return updated, nil
}

// Delete removes a task, its timeline, and its attachment directory. The
// returned flag reports whether the task was still incomplete, so the caller
// can apply the gamification penalty.
func (r *Repository) Delete(ctx context.Context, id string) (wasIncomplete bool, err error) {
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		t, err := getTaskTx(ctx, tx, id)
		if err != nil {
			return err
		}
		wasIncomplete = t.Status != model.StatusDone

		// Explicit cascade; the FK would cover it but the intent stays visible.
		if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_entries WHERE task_id = ?`, id); err != nil {
			return &model.PersistenceError{Op: "delete timeline", Err: err}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return &model.PersistenceError{Op: "delete task", Err: err}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	// Best-effort: an orphaned file is a lesser failure than a phantom task.
	if err := r.files.DeleteAll(id); err != nil {
		logger.Warn("attachment cleanup failed", logger.F("task", id), logger.F("error", err))
	}
	r.notifier.DataChanged(notify.TaskDeleted, id)

	logger.Info("task deleted", logger.F("task", id), logger.F("incomplete", wasIncomplete))
	return wasIncomplete, nil
}

// applyEvent forwards a gamification event, logging instead of failing: the
// owning operation already committed.
func (r *Repository) applyEvent(ctx context.Context, event gamify.Event) {
	if _, err := r.engine.Apply(ctx, event); err != nil {
		logger.Warn("gamification update failed",
			logger.F("event", event), logger.F("error", err))
	}
}

// revivalHook checks necromancer-bonus eligibility after a touch, using the
// pre-touch last_touched_at. On award it appends a GAMIFY entry without
// touching, so the append cannot re-trigger a check.
func (r *Repository) revivalHook(taskID string, preTouchedAt int64) hook {
	return func(ctx context.Context) {
		idleDays := model.DayBucket(r.now().UnixMilli() - preTouchedAt)

		hasPrev := false
		var lastBonusDays int64
		var content string
		err := r.db.QueryRowContext(ctx, `
			SELECT content FROM timeline_entries
			WHERE task_id = ? AND type = ?
			ORDER BY created_at DESC, rowid DESC LIMIT 1`,
			taskID, model.EntryGamify,
		).Scan(&content)
		switch {
		case err == sql.ErrNoRows:
			// No prior bonus on record.
		case err != nil:
			logger.Warn("bonus check failed", logger.F("task", taskID), logger.F("error", err))
			return
		default:
			if days, ok := gamify.ParseRevivalDays(content); ok {
				hasPrev = true
				lastBonusDays = days
			}
		}

		if !gamify.RevivalEligible(idleDays, lastBonusDays, hasPrev) {
			return
		}

		if _, err := r.engine.Apply(ctx, gamify.EventRevival); err != nil {
			logger.Warn("gamification update failed",
				logger.F("event", gamify.EventRevival), logger.F("error", err))
			return
		}
		if _, err := r.AppendEntry(ctx, taskID, model.EntryGamify, gamify.RevivalContent(idleDays), false); err != nil {
			logger.Warn("bonus entry append failed", logger.F("task", taskID), logger.F("error", err))
		}

		logger.Info("necromancer bonus awarded",
			logger.F("task", taskID), logger.F("idle_days", idleDays))
	}
}
