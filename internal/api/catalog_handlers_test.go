package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/task-lobby/internal/models"
)

func TestUpsertTasks(t *testing.T) {
	env := newTestEnv(t, true)

	body := UpsertTasksRequest{Tasks: []models.Task{
		{ID: "10", Name: "Anagrams", Level: "Easy", Tags: []string{"strings", "strings"}, Origin: "GitHub"},
	}}
	rec := env.do(t, http.MethodPut, "/api/v1/catalog/tasks", adminKey, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored := env.repo.tasks["10"]
	assert.Equal(t, models.LevelEasy, stored.Level)
	assert.Equal(t, models.OriginGithub, stored.Origin)
	assert.Equal(t, []string{"strings"}, stored.Tags)

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty", UpsertTasksRequest{}},
		{"bad level", UpsertTasksRequest{Tasks: []models.Task{{ID: "11", Name: "x", Level: "legendary"}}}},
		{"missing id", UpsertTasksRequest{Tasks: []models.Task{{Name: "x", Level: models.LevelEasy}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/api/v1/catalog/tasks", adminKey, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	rec = env.do(t, http.MethodPut, "/api/v1/catalog/tasks", readerKey, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteStoredTask(t *testing.T) {
	env := newTestEnv(t, true)
	env.repo.tasks["7"] = models.Task{ID: "7", Name: "Old", Level: models.LevelEasy}

	rec := env.do(t, http.MethodDelete, "/api/v1/catalog/tasks/7", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, env.repo.tasks, "7")

	rec = env.do(t, http.MethodDelete, "/api/v1/catalog/tasks/7", adminKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetTags(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPut, "/api/v1/catalog/tags", adminKey, SetTagsRequest{Tags: []string{"math", " math", "misc"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.TagCatalog{"math", "misc"}, env.repo.tags)

	rec = env.do(t, http.MethodPut, "/api/v1/catalog/tags", adminKey, SetTagsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
