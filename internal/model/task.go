package model

// MillisPerDay is the fixed day length used for all age math. Ages are
// whole-day buckets with no calendar or timezone awareness.
const MillisPerDay int64 = 86_400_000

// RetentionDays is how long an archived task is kept before the sweeper
// may purge it.
const RetentionDays int64 = 30

// Status is a task's lifecycle state
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusWaiting  Status = "WAITING"
	StatusBlocked  Status = "BLOCKED"
	StatusDone     Status = "DONE"
	StatusArchived Status = "ARCHIVED"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusWaiting, StatusBlocked, StatusDone, StatusArchived:
		return true
	}
	return false
}

// Priority is a task's importance level
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Rank returns the sort weight of a priority (HIGH=3 > NORMAL=2 > LOW=1)
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Task is a single tracked item
type Task struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Status        Status   `json:"status"`
	Priority      Priority `json:"priority"`
	CreatedAt     int64    `json:"created_at"`
	LastTouchedAt int64    `json:"last_touched_at"`
	ArchivedAt    *int64   `json:"archived_at,omitempty"`
	DeleteAfterAt *int64   `json:"delete_after_at,omitempty"`
	PinnedSummary string   `json:"pinned_summary"`
}

// IdleAge returns whole days elapsed since the task was last touched
func (t *Task) IdleAge(nowMillis int64) int64 {
	return DayBucket(nowMillis - t.LastTouchedAt)
}

// DaysOld returns whole days elapsed since the task was created
func (t *Task) DaysOld(nowMillis int64) int64 {
	return DayBucket(nowMillis - t.CreatedAt)
}

// DayBucket converts a millisecond timestamp (or span) to a whole-day count,
// truncating
func DayBucket(millis int64) int64 {
	return millis / MillisPerDay
}

// TaskSummary is a task plus the derived fields attached on list/search reads
type TaskSummary struct {
	Task
	IdleAge         int64         `json:"idle_age"`
	DaysOld         int64         `json:"days_old"`
	AttachmentCount int           `json:"attachment_count"`
	ImageCount      int           `json:"image_count"`
	FileCount       int           `json:"file_count"`
	LatestEntry     *EntryPreview `json:"latest_entry,omitempty"`
}
