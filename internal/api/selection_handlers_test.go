package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/task-lobby/internal/models"
)

func optionIDs(view models.SelectionView) []string {
	ids := []string{}
	for _, opt := range view.Options {
		if opt.Random {
			ids = append(ids, "random")
			continue
		}
		ids = append(ids, opt.ID)
	}
	return ids
}

func viewOf(t *testing.T, rec *httptest.ResponseRecorder) models.SelectionView {
	t.Helper()

	var view models.SelectionView
	decode(t, rec, &view)
	return view
}

func createSelection(t *testing.T, env *testEnv, userID, level string) models.SelectionView {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/v1/selections", adminKey, models.CreateSelectionRequest{UserID: userID, Level: level})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := viewOf(t, rec)
	require.NotEmpty(t, view.ID)
	return view
}

func TestSelectionFlow(t *testing.T) {
	env := newTestEnv(t, true)

	view := createSelection(t, env, "u1", "easy")
	assert.Equal(t, []string{"random", "1", "2", "3"}, optionIDs(view))
	assert.Equal(t, models.IconAvatar, view.Options[2].Label.Icon)
	assert.Equal(t, "https://avatars/u1.png", view.Options[2].Label.AvatarURL)

	base := "/api/v1/selections/" + view.ID

	rec := env.do(t, http.MethodPost, base+"/tags/toggle", adminKey, models.ToggleTagRequest{Tag: "math"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = viewOf(t, rec)
	assert.Equal(t, []string{"math"}, view.State.ChosenTags)
	assert.Equal(t, []string{"random", "2"}, optionIDs(view))

	rec = env.do(t, http.MethodPost, base+"/task", adminKey, models.ChooseTaskRequest{TaskID: "1"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = viewOf(t, rec)
	assert.True(t, view.IsTaskChosen)
	assert.Equal(t, []string{"strings"}, view.State.ChosenTags)
	assert.Equal(t, []string{"random", "1", "2", "3"}, optionIDs(view))
	for _, button := range view.Tags {
		assert.True(t, button.Disabled, button.Name)
	}

	rec = env.do(t, http.MethodPost, base+"/tags/toggle", adminKey, models.ToggleTagRequest{Tag: "math"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "tags_locked", decode(t, rec, nil).Error.Code)

	rec = env.do(t, http.MethodPost, base+"/random", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = viewOf(t, rec)
	assert.False(t, view.IsTaskChosen)
	assert.Equal(t, []string{"strings"}, view.State.ChosenTags)
	assert.Equal(t, []string{"random", "1"}, optionIDs(view))

	rec = env.do(t, http.MethodGet, base+"/search?q=REV", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = viewOf(t, rec)
	assert.Equal(t, []string{"1"}, optionIDs(view))

	rec = env.do(t, http.MethodPut, base+"/level", adminKey, models.SetLevelRequest{Level: "hard"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = viewOf(t, rec)
	assert.Equal(t, models.LevelHard, view.State.Level)
	assert.Empty(t, view.State.ChosenTags)
	assert.Equal(t, []string{"random", "4"}, optionIDs(view))

	rec = env.do(t, http.MethodDelete, base, adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, base, adminKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectionErrors(t *testing.T) {
	env := newTestEnv(t, true)
	view := createSelection(t, env, "u2", "easy")
	base := "/api/v1/selections/" + view.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"missing user", http.MethodPost, "/api/v1/selections", models.CreateSelectionRequest{Level: "easy"}, http.StatusBadRequest, "validation_error"},
		{"bad level on create", http.MethodPost, "/api/v1/selections", models.CreateSelectionRequest{UserID: "u2", Level: "legendary"}, http.StatusBadRequest, "invalid_level"},
		{"unknown selection", http.MethodGet, "/api/v1/selections/missing", nil, http.StatusNotFound, "not_found"},
		{"task from another level", http.MethodPost, base + "/task", models.ChooseTaskRequest{TaskID: "4"}, http.StatusNotFound, "task_not_found"},
		{"empty tag", http.MethodPost, base + "/tags/toggle", models.ToggleTagRequest{}, http.StatusBadRequest, "validation_error"},
		{"bad level", http.MethodPut, base + "/level", models.SetLevelRequest{Level: "x"}, http.StatusBadRequest, "invalid_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, adminKey, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCatalogRefreshResetsSelections(t *testing.T) {
	env := newTestEnv(t, true)
	view := createSelection(t, env, "u1", "easy")
	base := "/api/v1/selections/" + view.ID

	rec := env.do(t, http.MethodPost, base+"/task", adminKey, models.ChooseTaskRequest{TaskID: "2"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, env.catalog.Refresh(context.Background()))

	rec = env.do(t, http.MethodGet, base, adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = viewOf(t, rec)
	assert.False(t, view.IsTaskChosen)
	assert.Empty(t, view.State.ChosenTags)
}
