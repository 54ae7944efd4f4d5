package grouping

import (
	"github.com/terra-clan/task-lobby/internal/models"
)

// Filter returns the tasks of group visible under selection.
//
// The whole level is visible when a task is chosen, when no tag is chosen,
// or when the chosen tags are exactly the catalog. Otherwise the chosen
// tags' buckets are concatenated in chosen order with later repeats of a
// task id dropped. Tags without a bucket contribute nothing.
func Filter(selection models.SelectionState, group *models.LevelGroup, catalog models.TagCatalog) []models.Task {
	if group == nil {
		group = models.EmptyLevelGroup()
	}

	if selection.IsTaskChosen() || len(selection.ChosenTags) == 0 || catalog.SetEquals(selection.ChosenTags) {
		return group.All
	}

	seen := make(map[string]struct{})
	result := []models.Task{}
	for _, tag := range selection.ChosenTags {
		for _, task := range group.Bucket(tag) {
			if _, dup := seen[task.ID]; dup {
				continue
			}
			seen[task.ID] = struct{}{}
			result = append(result, task)
		}
	}

	return result
}
