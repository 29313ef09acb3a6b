package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/existflow/tasknest/internal/db"
	"github.com/existflow/tasknest/internal/gamify"
	"github.com/existflow/tasknest/internal/model"
	"github.com/existflow/tasknest/internal/notify"
	"github.com/existflow/tasknest/internal/repo"
	"github.com/existflow/tasknest/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Local) {
	t.Helper()

	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	files, err := storage.NewLocal(filepath.Join(dir, "attachments"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	hub := notify.NewHub()
	engine := gamify.New(database)
	repository := repo.New(database, files, engine, hub)

	return New(repository, engine, files, hub), files
}

func doJSON(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func createTask(t *testing.T, s *Server, title string) model.Task {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/v1/tasks", map[string]string{"title": title})
	if rec.Code != http.StatusOK {
		t.Fatalf("create task: %d %s", rec.Code, rec.Body.String())
	}
	return decode[model.Task](t, rec)
}

func TestCreateAndGetTask(t *testing.T) {
	s, _ := newTestServer(t)

	task := createTask(t, s, "write the report")
	if task.Status != model.StatusOpen || task.Priority != model.PriorityNormal {
		t.Fatalf("task defaults = %+v", task)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/v1/tasks/"+task.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get task: %d", rec.Code)
	}
	detail := decode[taskDetailResponse](t, rec)
	if detail.Task.ID != task.ID {
		t.Fatalf("detail task = %+v", detail.Task)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank title status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "x", "priority": "URGENT"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad priority status = %d", rec.Code)
	}
}

func TestGetMissingTaskIs404(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/tasks/no-such-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpdateTaskPartialFields(t *testing.T) {
	s, _ := newTestServer(t)
	task := createTask(t, s, "rename me")

	rec := doJSON(t, s, http.MethodPatch, "/api/v1/tasks/"+task.ID,
		map[string]any{"status": "BLOCKED", "pinned_summary": "waiting on vendor"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	updated := decode[model.Task](t, rec)
	if updated.Status != model.StatusBlocked || updated.PinnedSummary != "waiting on vendor" {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.Title != "rename me" {
		t.Fatalf("unset field changed: %q", updated.Title)
	}

	rec = doJSON(t, s, http.MethodPatch, "/api/v1/tasks/"+task.ID, map[string]any{"status": "NONSENSE"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid status accepted: %d", rec.Code)
	}
}

func TestDeleteIncompleteTaskAppliesPenalty(t *testing.T) {
	s, _ := newTestServer(t)
	task := createTask(t, s, "abandoned") // +5 xp

	rec := doJSON(t, s, http.MethodDelete, "/api/v1/tasks/"+task.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	resp := decode[deleteTaskResponse](t, rec)
	if !resp.Success || !resp.WasIncomplete {
		t.Fatalf("delete response = %+v", resp)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/stats", nil)
	stats := decode[model.Stats](t, rec)
	if stats.XP != 0 {
		t.Fatalf("xp = %d, want 0 after +5/-5", stats.XP)
	}
}

func TestEntryLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	task := createTask(t, s, "with notes")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tasks/"+task.ID+"/entries",
		map[string]any{"type": "NOTE", "content": "first"})
	if rec.Code != http.StatusOK {
		t.Fatalf("add entry: %d %s", rec.Code, rec.Body.String())
	}
	entry := decode[model.TimelineEntry](t, rec)

	rec = doJSON(t, s, http.MethodPatch, "/api/v1/entries/"+entry.ID, map[string]string{"content": "second"})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit entry: %d", rec.Code)
	}
	if edited := decode[model.TimelineEntry](t, rec); edited.Content != "second" {
		t.Fatalf("edited = %+v", edited)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/entries/"+entry.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete entry: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/tasks/"+task.ID+"/entries",
		map[string]any{"type": "SCRIBBLE", "content": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid entry type accepted: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/tasks/ghost/entries",
		map[string]any{"type": "NOTE", "content": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("entry on missing task: %d", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	createTask(t, s, "Widget")
	gadget := createTask(t, s, "Gadget")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/tasks/"+gadget.ID+"/entries",
		map[string]any{"type": "NOTE", "content": "order a widget"})
	if rec.Code != http.StatusOK {
		t.Fatalf("add entry: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/tasks/search?q=widget", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: %d", rec.Code)
	}
	results := decode[[]model.TaskSummary](t, rec)
	if len(results) != 2 {
		t.Fatalf("results = %d, want both title and note matches", len(results))
	}
}

func TestAttachFile(t *testing.T) {
	s, files := newTestServer(t)
	task := createTask(t, s, "paper trail")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "invoice.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fmt.Fprint(part, "pdf bytes")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+task.ID+"/attachments", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("attach: %d %s", rec.Code, rec.Body.String())
	}
	entry := decode[model.TimelineEntry](t, rec)
	if entry.Type != model.EntryFile {
		t.Fatalf("entry type = %s", entry.Type)
	}
	if !strings.HasSuffix(entry.Content, "invoice.pdf") {
		t.Fatalf("entry content = %q", entry.Content)
	}

	abs, err := files.Resolve(entry.Content)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("read stored attachment: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Fatalf("stored content = %q", data)
	}
}

func TestPasteImage(t *testing.T) {
	s, _ := newTestServer(t)
	task := createTask(t, s, "screenshot target")

	png := base64.StdEncoding.EncodeToString([]byte("fake png"))
	rec := doJSON(t, s, http.MethodPost, "/api/v1/tasks/"+task.ID+"/paste-image",
		map[string]string{"data": "data:image/png;base64," + png})
	if rec.Code != http.StatusOK {
		t.Fatalf("paste: %d %s", rec.Code, rec.Body.String())
	}
	entry := decode[model.TimelineEntry](t, rec)
	if entry.Type != model.EntryImage || !strings.HasSuffix(entry.Content, ".png") {
		t.Fatalf("entry = %+v", entry)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/tasks/"+task.ID+"/paste-image",
		map[string]string{"data": "not base64 at all!!"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad image data accepted: %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	createTask(t, s, "one")
	createTask(t, s, "two")

	rec := doJSON(t, s, http.MethodGet, "/api/v1/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d", rec.Code)
	}
	stats := decode[model.Stats](t, rec)
	if stats.XP != 10 || stats.Level != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
}
