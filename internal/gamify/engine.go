// Package gamify owns the singleton XP/level/streak record. It is invoked by
// the repository and the facade after a state-changing operation succeeds and
// never mutates tasks itself.
package gamify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/existflow/tasknest/internal/db"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/model"
)

// Event names a gamification-affecting action
type Event string

const (
	EventCreateTask       Event = "create_task"
	EventAddContent       Event = "add_content"
	EventCompleteTask     Event = "complete_task"
	EventDeleteIncomplete Event = "delete_incomplete_task"
	EventRevival          Event = "revive_task"
)

// XPDelta returns the xp change for an event
func (e Event) XPDelta() int64 {
	switch e {
	case EventCreateTask:
		return 5
	case EventAddContent:
		return 2
	case EventCompleteTask:
		return 20
	case EventDeleteIncomplete:
		return -5
	case EventRevival:
		return 50
	}
	return 0
}

// Engine applies gamification events to the stats record
type Engine struct {
	db  *db.DB
	now func() time.Time
}

// New creates an engine over the given store
func New(database *db.DB) *Engine {
	return &Engine{db: database, now: time.Now}
}

// SetNow overrides the engine's clock. Used by tests.
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
}

// Stats returns the current gamification record
func (e *Engine) Stats(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	err := e.db.QueryRowContext(ctx, `
		SELECT xp, level, streak, last_active_date FROM stats WHERE key = ?`,
		model.StatsKey,
	).Scan(&s.XP, &s.Level, &s.Streak, &s.LastActiveDate)
	if err != nil {
		return model.Stats{}, &model.PersistenceError{Op: "read stats", Err: err}
	}
	return s, nil
}

// Apply records an event: xp delta (floored at 0), level recompute, streak
// update against the day bucket of the last active date.
func (e *Engine) Apply(ctx context.Context, event Event) (model.Stats, error) {
	nowMillis := e.now().UnixMilli()

	var updated model.Stats
	err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		var s model.Stats
		err := tx.QueryRowContext(ctx, `
			SELECT xp, level, streak, last_active_date FROM stats WHERE key = ?`,
			model.StatsKey,
		).Scan(&s.XP, &s.Level, &s.Streak, &s.LastActiveDate)
		if err != nil {
			return fmt.Errorf("read stats: %w", err)
		}

		s.XP += event.XPDelta()
		if s.XP < 0 {
			s.XP = 0
		}
		s.Level = model.LevelForXP(s.XP)
		s.Streak = nextStreak(s.Streak, s.LastActiveDate, nowMillis)
		s.LastActiveDate = nowMillis

		_, err = tx.ExecContext(ctx, `
			UPDATE stats SET xp = ?, level = ?, streak = ?, last_active_date = ? WHERE key = ?`,
			s.XP, s.Level, s.Streak, s.LastActiveDate, model.StatsKey,
		)
		if err != nil {
			return fmt.Errorf("write stats: %w", err)
		}

		updated = s
		return nil
	})
	if err != nil {
		return model.Stats{}, &model.PersistenceError{Op: "apply " + string(event), Err: err}
	}

	logger.Debug("gamification event",
		logger.F("event", event),
		logger.F("xp", updated.XP),
		logger.F("level", updated.Level),
		logger.F("streak", updated.Streak))

	return updated, nil
}

// nextStreak compares day buckets: same day keeps the streak, exactly one day
// later extends it, anything else (including first run) resets to 1.
func nextStreak(streak, lastActive, nowMillis int64) int64 {
	if lastActive <= 0 {
		return 1
	}
	switch model.DayBucket(nowMillis) - model.DayBucket(lastActive) {
	case 0:
		return streak
	case 1:
		return streak + 1
	default:
		return 1
	}
}
