package repo

import (
	"context"
	"database/sql"

	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/model"
	"github.com/existflow/tasknest/internal/notify"
)

// PurgeExpired deletes every archived task whose retention window has
// elapsed, cascading timeline entries and requesting attachment-directory
// cleanup. Pure cleanup: idempotent, no gamification side effects. Each
// candidate is re-checked inside its own transaction so a task un-archived
// between the scan and the delete is left alone.
func (r *Repository) PurgeExpired(ctx context.Context) (int, error) {
	nowMillis := r.now().UnixMilli()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM tasks
		WHERE status = ? AND delete_after_at IS NOT NULL AND delete_after_at <= ?`,
		model.StatusArchived, nowMillis,
	)
	if err != nil {
		return 0, &model.PersistenceError{Op: "scan expired tasks", Err: err}
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, &model.PersistenceError{Op: "scan expired tasks", Err: err}
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, &model.PersistenceError{Op: "scan expired tasks", Err: err}
	}

	purged := 0
	for _, id := range ids {
		stillExpired := false
		err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
			var one int
			err := tx.QueryRowContext(ctx, `
				SELECT 1 FROM tasks
				WHERE id = ? AND status = ? AND delete_after_at IS NOT NULL AND delete_after_at <= ?`,
				id, model.StatusArchived, nowMillis,
			).Scan(&one)
			if err == sql.ErrNoRows {
				return nil
			}
			if err != nil {
				return &model.PersistenceError{Op: "recheck expired task", Err: err}
			}
			stillExpired = true

			if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_entries WHERE task_id = ?`, id); err != nil {
				return &model.PersistenceError{Op: "purge timeline", Err: err}
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
				return &model.PersistenceError{Op: "purge task", Err: err}
			}
			return nil
		})
		if err != nil {
			logger.Error("purge failed", logger.F("task", id), logger.F("error", err))
			continue
		}
		if !stillExpired {
			continue
		}

		if err := r.files.DeleteAll(id); err != nil {
			logger.Warn("attachment cleanup failed", logger.F("task", id), logger.F("error", err))
		}
		r.notifier.DataChanged(notify.TaskDeleted, id)
		purged++
	}

	if purged > 0 {
		logger.Info("retention sweep purged tasks", logger.F("count", purged))
	}
	return purged, nil
}
