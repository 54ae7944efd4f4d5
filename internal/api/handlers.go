package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/task-lobby/internal/grouping"
	"github.com/terra-clan/task-lobby/internal/models"
	"github.com/terra-clan/task-lobby/internal/stats"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		slog.Warn("readiness check failed", "check", "postgres", "error", err)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "database unavailable")
		return
	}

	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			respondError(w, http.StatusServiceUnavailable, "not_ready", name+" unavailable")
			return
		}
	}

	if !s.catalog.Loaded() {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "catalog not loaded")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Catalog handlers

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.TaskFilters{
		Tag:   q.Get("tag"),
		Limit: 50, // default
	}

	if levelStr := q.Get("level"); levelStr != "" {
		level, err := models.ParseLevel(levelStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_level", err.Error())
			return
		}
		filters.Level = level
	}

	if originStr := q.Get("origin"); originStr != "" {
		filters.Origin = models.ParseOrigin(originStr)
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}

	if offsetStr := q.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	tasks := s.catalog.Tasks(filters)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, ok := s.catalog.Task(id)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags := s.catalog.Tags()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tags": tags,
		"rest": tags.Rest(),
	})
}

func (s *Server) handleGrouped(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.Grouped())
}

// handleLevelTasks returns a level's grouping. With ?tags=a,b it also
// returns the tasks visible under that tag filter.
func (s *Server) handleLevelTasks(w http.ResponseWriter, r *http.Request) {
	level, err := models.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_level", err.Error())
		return
	}

	group := s.catalog.Grouped().Level(level)

	tagsParam, filtered := r.URL.Query()["tags"]
	if !filtered {
		respondJSON(w, http.StatusOK, group)
		return
	}

	state := models.SelectionState{Level: level, ChosenTags: splitList(strings.Join(tagsParam, ","))}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"all":     group.All,
		"tags":    group.Tags,
		"buckets": group.Buckets,
		"visible": grouping.Filter(state, group, s.catalog.Tags()),
	})
}

func (s *Server) handleCatalogStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.Status())
}

func (s *Server) handleCatalogRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Refresh(r.Context()); err != nil {
		respondError(w, http.StatusBadGateway, "refresh_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, s.catalog.Status())
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		respondError(w, http.StatusServiceUnavailable, "stats_unavailable", "stats are not configured")
		return
	}

	userStats, err := s.stats.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, stats.ErrUpstream) {
			respondError(w, http.StatusBadGateway, "upstream_error", "failed to fetch user stats")
			return
		}
		slog.Error("failed to get user stats", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get user stats")
		return
	}

	respondJSON(w, http.StatusOK, userStats)
}

// splitList splits a comma separated query value, dropping blanks
func splitList(value string) []string {
	list := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
