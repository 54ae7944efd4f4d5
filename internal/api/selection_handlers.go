package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/task-lobby/internal/models"
	"github.com/terra-clan/task-lobby/internal/selection"
)

// selectionError maps manager errors to a status and error code
func selectionError(err error) (int, string, string) {
	switch {
	case errors.Is(err, selection.ErrSelectionNotFound):
		return http.StatusNotFound, "not_found", "selection not found"
	case errors.Is(err, selection.ErrTaskNotFound):
		return http.StatusNotFound, "task_not_found", "task not found at this level"
	case errors.Is(err, selection.ErrInvalidLevel):
		return http.StatusBadRequest, "invalid_level", err.Error()
	case errors.Is(err, selection.ErrTagsLocked):
		return http.StatusConflict, "tags_locked", "tags cannot change while a task is chosen"
	default:
		return http.StatusInternalServerError, "internal_error", "selection operation failed"
	}
}

func respondSelectionError(w http.ResponseWriter, err error, id string) {
	status, code, message := selectionError(err)
	if status == http.StatusInternalServerError {
		slog.Error("selection operation failed", "error", err, "id", id)
	}
	respondError(w, status, code, message)
}

func (s *Server) handleCreateSelection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}

	if req.Level == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "level is required")
		return
	}

	view, err := s.selections.Create(r.Context(), req.UserID, req.Level)
	if err != nil {
		respondSelectionError(w, err, "")
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := s.selections.View(r.Context(), id)
	if err != nil {
		respondSelectionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSearchSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := s.selections.Search(r.Context(), id, r.URL.Query().Get("q"))
	if err != nil {
		respondSelectionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.selections.Delete(r.Context(), id); err != nil {
		respondSelectionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "selection deleted",
	})
}

func (s *Server) handleToggleTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ToggleTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Tag == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "tag is required")
		return
	}

	view, err := s.selections.ToggleTag(r.Context(), id, req.Tag)
	if err != nil {
		respondSelectionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleChooseTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ChooseTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.TaskID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "task_id is required")
		return
	}

	view, err := s.selections.ChooseTask(r.Context(), id, req.TaskID)
	if err != nil {
		respondSelectionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleChooseRandom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := s.selections.ChooseRandom(r.Context(), id)
	if err != nil {
		respondSelectionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.SetLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := s.selections.SetLevel(r.Context(), id, req.Level)
	if err != nil {
		respondSelectionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
