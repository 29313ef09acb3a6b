package repo

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/existflow/tasknest/internal/model"
)

// List returns every task with derived fields, sorted by priority rank
// descending then idle age descending: neglected high-priority work surfaces
// first regardless of creation time.
func (r *Repository) List(ctx context.Context) ([]model.TaskSummary, error) {
	return r.list(ctx, "")
}

// Search filters the task list to the union of: title containing the query
// (LIKE-style, case-insensitive for ASCII), a NOTE whose content contains it
// case-insensitively, and an IMAGE/FILE whose basename contains it
// case-insensitively. An empty query returns the full list.
func (r *Repository) Search(ctx context.Context, query string) ([]model.TaskSummary, error) {
	return r.list(ctx, query)
}

func (r *Repository) list(ctx context.Context, query string) ([]model.TaskSummary, error) {
	nowMillis := r.now().UnixMilli()

	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`)
	if err != nil {
		return nil, &model.PersistenceError{Op: "list tasks", Err: err}
	}
	defer rows.Close()

	var summaries []*model.TaskSummary
	byID := make(map[string]*model.TaskSummary)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, &model.PersistenceError{Op: "list tasks", Err: err}
		}
		s := &model.TaskSummary{
			Task:    t,
			IdleAge: t.IdleAge(nowMillis),
			DaysOld: t.DaysOld(nowMillis),
		}
		summaries = append(summaries, s)
		byID[t.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, &model.PersistenceError{Op: "list tasks", Err: err}
	}

	// One ascending pass over all entries yields per-type counts, the latest
	// entry preview, and (when searching) timeline matches.
	entryMatched := make(map[string]bool)
	entryRows, err := r.db.QueryContext(ctx, `
		SELECT task_id, type, content, created_at
		FROM timeline_entries ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, &model.PersistenceError{Op: "list entries", Err: err}
	}
	defer entryRows.Close()

	for entryRows.Next() {
		var taskID, content string
		var entryType model.EntryType
		var createdAt int64
		if err := entryRows.Scan(&taskID, &entryType, &content, &createdAt); err != nil {
			return nil, &model.PersistenceError{Op: "list entries", Err: err}
		}
		s := byID[taskID]
		if s == nil {
			continue
		}

		switch entryType {
		case model.EntryImage:
			s.ImageCount++
		case model.EntryFile:
			s.FileCount++
		}
		s.LatestEntry = &model.EntryPreview{Type: entryType, Content: content, CreatedAt: createdAt}

		if query != "" && entryMatches(entryType, content, query) {
			entryMatched[taskID] = true
		}
	}
	if err := entryRows.Err(); err != nil {
		return nil, &model.PersistenceError{Op: "list entries", Err: err}
	}

	result := make([]model.TaskSummary, 0, len(summaries))
	for _, s := range summaries {
		s.AttachmentCount = s.ImageCount + s.FileCount
		if query != "" && !containsFold(s.Title, query) && !entryMatched[s.ID] {
			continue
		}
		result = append(result, *s)
	}

	sort.SliceStable(result, func(i, j int) bool {
		ri, rj := result[i].Priority.Rank(), result[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return result[i].IdleAge > result[j].IdleAge
	})

	return result, nil
}

func entryMatches(entryType model.EntryType, content, query string) bool {
	switch entryType {
	case model.EntryNote:
		return containsFold(content, query)
	case model.EntryImage, model.EntryFile:
		return containsFold(path.Base(content), query)
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
