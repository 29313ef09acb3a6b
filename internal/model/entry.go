package model

// EntryType classifies a timeline entry
type EntryType string

const (
	EntryNote   EntryType = "NOTE"
	EntryImage  EntryType = "IMAGE"
	EntryFile   EntryType = "FILE"
	EntryStatus EntryType = "STATUS"
	EntryGamify EntryType = "GAMIFY"
)

// Valid reports whether t is one of the known entry types
func (t EntryType) Valid() bool {
	switch t {
	case EntryNote, EntryImage, EntryFile, EntryStatus, EntryGamify:
		return true
	}
	return false
}

// IsAttachment reports whether entries of this type carry a stored file path
// as their content
func (t EntryType) IsAttachment() bool {
	return t == EntryImage || t == EntryFile
}

// TimelineEntry is one record in a task's append-only timeline. For IMAGE and
// FILE entries Content is a relative attachment path; otherwise free text.
type TimelineEntry struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Type      EntryType `json:"type"`
	Content   string    `json:"content"`
	CreatedAt int64     `json:"created_at"`
}

// EntryPreview is the most recent entry's type/content/timestamp, attached to
// a TaskSummary
type EntryPreview struct {
	Type      EntryType `json:"type"`
	Content   string    `json:"content"`
	CreatedAt int64     `json:"created_at"`
}
