package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/task-lobby/internal/models"
	"github.com/terra-clan/task-lobby/internal/storage"
)

// UpsertTasksRequest stores tasks in the lobby database
type UpsertTasksRequest struct {
	Tasks []models.Task `json:"tasks"`
}

// SetTagsRequest replaces the stored tag catalog
type SetTagsRequest struct {
	Tags []string `json:"tags"`
}

// Stored catalog handlers. Writes go to the database and are followed by a
// refresh so the lobby sees them when it reads from postgres.

func (s *Server) handleUpsertTasks(w http.ResponseWriter, r *http.Request) {
	var req UpsertTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if len(req.Tasks) == 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "tasks are required")
		return
	}

	for i := range req.Tasks {
		if err := req.Tasks[i].Normalize(); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("task %d: %v", i, err))
			return
		}
	}

	n, err := s.repo.UpsertTasks(r.Context(), req.Tasks)
	if err != nil {
		slog.Error("failed to upsert tasks", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to store tasks")
		return
	}

	s.refreshAfterWrite(w, r, map[string]interface{}{"upserted": n})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := s.repo.GetTask(r.Context(), id)
	if err != nil {
		slog.Error("failed to get task", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get task")
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}

	if err := s.repo.DeleteTask(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		slog.Error("failed to delete task", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete task")
		return
	}

	s.refreshAfterWrite(w, r, map[string]interface{}{"deleted": task})
}

func (s *Server) handleSetTags(w http.ResponseWriter, r *http.Request) {
	var req SetTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	tags := models.NewTagCatalog(req.Tags)
	if err := tags.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := s.repo.SetTagCatalog(r.Context(), tags); err != nil {
		slog.Error("failed to set tag catalog", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to store tags")
		return
	}

	s.refreshAfterWrite(w, r, map[string]interface{}{"tags": tags})
}

// refreshAfterWrite reloads the catalog and reports the write either way;
// a failed reload is left to the next scheduled refresh.
func (s *Server) refreshAfterWrite(w http.ResponseWriter, r *http.Request, result map[string]interface{}) {
	if err := s.catalog.Refresh(r.Context()); err != nil {
		slog.Warn("catalog refresh after write failed", "error", err)
	}
	result["catalog"] = s.catalog.Status()
	respondJSON(w, http.StatusOK, result)
}
