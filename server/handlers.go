package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/existflow/tasknest/internal/gamify"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/model"
	"github.com/existflow/tasknest/internal/repo"
)

// httpError maps core errors onto status codes. Validation and not-found are
// the caller's problem; everything else is a persistence failure.
func httpError(c echo.Context, err error) error {
	var validationErr *model.ValidationError
	var notFoundErr *model.NotFoundError
	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		logger.Error("request failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (s *Server) handleListTasks(c echo.Context) error {
	tasks, err := s.repo.List(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleSearchTasks(c echo.Context) error {
	tasks, err := s.repo.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

type createTaskRequest struct {
	Title    string `json:"title"`
	Priority string `json:"priority"`
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	task, err := s.repo.Create(c.Request().Context(), req.Title, model.Priority(req.Priority))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

type taskDetailResponse struct {
	Task     model.Task            `json:"task"`
	Timeline []model.TimelineEntry `json:"timeline"`
}

func (s *Server) handleGetTask(c echo.Context) error {
	task, entries, err := s.repo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, taskDetailResponse{Task: task, Timeline: entries})
}

type updateTaskRequest struct {
	Title         *string `json:"title"`
	Status        *string `json:"status"`
	Priority      *string `json:"priority"`
	PinnedSummary *string `json:"pinned_summary"`
	Touch         *bool   `json:"touch"`
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	upd := repo.TaskUpdate{
		Title:         req.Title,
		PinnedSummary: req.PinnedSummary,
		Touch:         req.Touch,
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		upd.Status = &status
	}
	if req.Priority != nil {
		priority := model.Priority(*req.Priority)
		upd.Priority = &priority
	}

	task, err := s.repo.Update(c.Request().Context(), c.Param("id"), upd)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

type deleteTaskResponse struct {
	Success       bool `json:"success"`
	WasIncomplete bool `json:"was_incomplete"`
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	wasIncomplete, err := s.repo.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}

	if wasIncomplete {
		if _, err := s.engine.Apply(c.Request().Context(), gamify.EventDeleteIncomplete); err != nil {
			logger.Warn("gamification update failed",
				logger.F("event", gamify.EventDeleteIncomplete), logger.F("error", err))
		}
	}

	return c.JSON(http.StatusOK, deleteTaskResponse{Success: true, WasIncomplete: wasIncomplete})
}

type addEntryRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Touch   *bool  `json:"touch"`
}

func (s *Server) handleAddEntry(c echo.Context) error {
	var req addEntryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	touch := true
	if req.Touch != nil {
		touch = *req.Touch
	}

	entry, err := s.repo.AppendEntry(c.Request().Context(), c.Param("id"), model.EntryType(req.Type), req.Content, touch)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

type editEntryRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleEditEntry(c echo.Context) error {
	var req editEntryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	entry, err := s.repo.EditEntry(c.Request().Context(), c.Param("id"), req.Content)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(c echo.Context) error {
	ok, err := s.repo.DeleteEntry(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": ok})
}

func (s *Server) handleAttachFile(c echo.Context) error {
	taskID := c.Param("id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file field required"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "could not read upload"})
	}
	defer src.Close()

	relPath, err := s.files.Store(taskID, fileHeader.Filename, src)
	if err != nil {
		return httpError(c, err)
	}

	entry, err := s.repo.AppendEntry(c.Request().Context(), taskID, model.EntryFile, relPath, true)
	if err != nil {
		// The task row is the source of truth; without one the stored file
		// is garbage.
		if delErr := s.files.Delete(relPath); delErr != nil {
			logger.Warn("orphan cleanup failed", logger.F("path", relPath), logger.F("error", delErr))
		}
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

type pasteImageRequest struct {
	Data string `json:"data"` // base64 PNG, with or without a data-URL prefix
}

func (s *Server) handlePasteImage(c echo.Context) error {
	taskID := c.Param("id")

	var req pasteImageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	data := req.Data
	if idx := strings.Index(data, ";base64,"); idx >= 0 {
		data = data[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(raw) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid image data"})
	}

	name := fmt.Sprintf("paste-%d.png", time.Now().UnixMilli())
	relPath, err := s.files.Store(taskID, name, bytes.NewReader(raw))
	if err != nil {
		return httpError(c, err)
	}

	entry, err := s.repo.AppendEntry(c.Request().Context(), taskID, model.EntryImage, relPath, true)
	if err != nil {
		if delErr := s.files.Delete(relPath); delErr != nil {
			logger.Warn("orphan cleanup failed", logger.F("path", relPath), logger.F("error", delErr))
		}
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.engine.Stats(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// handleEvents streams change signals to the UI as server-sent events
func (s *Server) handleEvents(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	events, cancel := s.hub.Subscribe()
	defer cancel()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(res, "data: %s\n\n", data)
			res.Flush()
		}
	}
}
