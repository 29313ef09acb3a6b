package repo

import (
	"context"
	"testing"

	"github.com/existflow/tasknest/internal/model"
)

func TestSearchUnionOfTitleAndTimeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	widget := f.mustCreate(t, "Widget", model.PriorityNormal)
	gadget := f.mustCreate(t, "Gadget", model.PriorityNormal)
	sprocket := f.mustCreate(t, "Sprocket", model.PriorityNormal)

	if _, err := f.repo.AppendEntry(ctx, gadget.ID, model.EntryNote, "order a WIDGET", false); err != nil {
		t.Fatalf("append: %v", err)
	}

	results, err := f.repo.Search(ctx, "widget")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	got := make(map[string]bool)
	for _, s := range results {
		got[s.ID] = true
	}
	if len(results) != 2 || !got[widget.ID] || !got[gadget.ID] {
		t.Fatalf("search union returned %d results %v, want Widget (title) and Gadget (note)", len(results), got)
	}
	if got[sprocket.ID] {
		t.Error("unrelated task matched")
	}
}

func TestSearchAttachmentBasename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.mustCreate(t, "paperwork", model.PriorityNormal)
	if _, err := f.repo.AppendEntry(ctx, task.ID, model.EntryFile, task.ID+"/a1b2-Quarterly-Report.PDF", false); err != nil {
		t.Fatalf("append: %v", err)
	}

	results, err := f.repo.Search(ctx, "report")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != task.ID {
		t.Fatalf("basename search results = %v", results)
	}

	// The directory part of the path is not searched.
	results, err = f.repo.Search(ctx, task.ID)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("directory segment matched: %v", results)
	}
}

func TestSearchIgnoresStatusAndGamifyEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.mustCreate(t, "quiet", model.PriorityNormal)
	if _, err := f.repo.AppendEntry(ctx, task.ID, model.EntryStatus, "zebra sighting", false); err != nil {
		t.Fatalf("append: %v", err)
	}

	results, err := f.repo.Search(ctx, "zebra")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("STATUS entry content matched search: %v", results)
	}
}

func TestSearchEmptyQueryReturnsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, "one", model.PriorityNormal)
	f.mustCreate(t, "two", model.PriorityHigh)

	results, err := f.repo.Search(ctx, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	full, err := f.repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != len(full) {
		t.Fatalf("empty query returned %d tasks, list returns %d", len(results), len(full))
	}
}

func TestSearchKeepsDerivedFieldsAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	low := f.mustCreate(t, "alpha item", model.PriorityLow)
	high := f.mustCreate(t, "alpha chore", model.PriorityHigh)
	if _, err := f.repo.AppendEntry(ctx, low.ID, model.EntryImage, low.ID+"/shot.png", false); err != nil {
		t.Fatalf("append: %v", err)
	}

	results, err := f.repo.Search(ctx, "alpha")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d", len(results))
	}
	if results[0].ID != high.ID {
		t.Errorf("high priority must sort first, got %q", results[0].Title)
	}
	if results[1].ImageCount != 1 || results[1].AttachmentCount != 1 {
		t.Errorf("derived counts missing on search results: %+v", results[1])
	}
	if results[1].LatestEntry == nil || results[1].LatestEntry.Type != model.EntryImage {
		t.Error("latest entry preview missing on search results")
	}
}
