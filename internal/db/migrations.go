package db

import "fmt"

// migrate runs all database migrations
func (db *DB) migrate() error {
	migrations := []string{
		migrationCreateTasks,
		migrationCreateTimelineEntries,
		migrationCreateStats,
		migrationSeedStats,
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const migrationCreateTasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'OPEN',
    priority TEXT NOT NULL DEFAULT 'NORMAL',
    created_at INTEGER NOT NULL,
    last_touched_at INTEGER NOT NULL,
    archived_at INTEGER,
    delete_after_at INTEGER,
    pinned_summary TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_delete_after ON tasks(delete_after_at);
`

const migrationCreateTimelineEntries = `
CREATE TABLE IF NOT EXISTS timeline_entries (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL,
    type TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entries_task ON timeline_entries(task_id);
`

const migrationCreateStats = `
CREATE TABLE IF NOT EXISTS stats (
    key TEXT PRIMARY KEY,
    xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    streak INTEGER NOT NULL DEFAULT 0,
    last_active_date INTEGER NOT NULL DEFAULT 0
);
`

const migrationSeedStats = `
INSERT OR IGNORE INTO stats (key) VALUES ('user_stats');
`
