package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terra-clan/task-lobby/internal/models"
)

func TestFilter(t *testing.T) {
	group := Group(scenarioTasks(), scenarioCatalog).Level(models.LevelEasy)
	chosen := scenarioTasks()[0]

	tests := []struct {
		name      string
		selection models.SelectionState
		want      []string
	}{
		{
			name:      "no tags shows everything",
			selection: models.SelectionState{},
			want:      []string{"1", "2", "3", "4"},
		},
		{
			name:      "union is de-duplicated",
			selection: models.SelectionState{ChosenTags: []string{"math", "strings"}},
			want:      []string{"1", "2"},
		},
		{
			name:      "chosen order drives output order",
			selection: models.SelectionState{ChosenTags: []string{"other", "math"}},
			want:      []string{"3", "4", "1", "2"},
		},
		{
			name:      "single tag returns its bucket",
			selection: models.SelectionState{ChosenTags: []string{"strings"}},
			want:      []string{"2"},
		},
		{
			name:      "tag without bucket contributes nothing",
			selection: models.SelectionState{ChosenTags: []string{"easy-filter"}},
			want:      []string{},
		},
		{
			name:      "unknown tag next to a known one",
			selection: models.SelectionState{ChosenTags: []string{"nope", "strings"}},
			want:      []string{"2"},
		},
		{
			name:      "full catalog in any order shows everything",
			selection: models.SelectionState{ChosenTags: []string{"other", "strings", "math", "easy-filter"}},
			want:      []string{"1", "2", "3", "4"},
		},
		{
			name:      "chosen task shows everything",
			selection: models.SelectionState{ChosenTask: &chosen, ChosenTags: []string{"math"}},
			want:      []string{"1", "2", "3", "4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(tt.selection, group, scenarioCatalog)))
		})
	}
}

func TestFilterFullCatalogEqualsNoTags(t *testing.T) {
	group := Group(scenarioTasks(), scenarioCatalog).Level(models.LevelEasy)

	all := Filter(models.SelectionState{ChosenTags: []string(scenarioCatalog)}, group, scenarioCatalog)
	none := Filter(models.SelectionState{}, group, scenarioCatalog)

	assert.Equal(t, ids(none), ids(all))
}

func TestFilterNilGroup(t *testing.T) {
	got := Filter(models.SelectionState{ChosenTags: []string{"math"}}, nil, scenarioCatalog)
	assert.Empty(t, got)
}

func TestSearch(t *testing.T) {
	tasks := []models.Task{
		{ID: "1", Name: "Éclair Layers"},
		{ID: "2", Name: "Sum of Digits"},
		{ID: "3", Name: "digit root"},
	}

	assert.Equal(t, []string{"1"}, ids(Search(tasks, "eclair")))
	assert.Equal(t, []string{"2", "3"}, ids(Search(tasks, "  DIGIT ")))
	assert.Equal(t, []string{"1", "2", "3"}, ids(Search(tasks, "")))
	assert.Empty(t, Search(tasks, "graph"))
}
