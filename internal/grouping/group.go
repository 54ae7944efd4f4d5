// Package grouping splits the task catalog by level and tag and derives the
// task list visible for a selection. Everything here is pure: no errors, no
// shared state, absent input degrades to empty output.
package grouping

import (
	"github.com/terra-clan/task-lobby/internal/models"
)

// Group partitions tasks by level, then files each level's tasks under the
// catalog's tags.
//
// A task goes into a popular-tag bucket when it carries that tag. It goes
// into the rest bucket (the catalog's last entry) when it has no tags or
// carries at least one tag outside the popular set, so a task with both
// popular and unpopular tags lands in both. Empty buckets are dropped.
func Group(tasks []models.Task, catalog models.TagCatalog) *models.GroupedTasks {
	grouped := &models.GroupedTasks{
		ByLevel: make(map[models.Level]*models.LevelGroup),
		Order:   []models.Level{},
	}

	byLevel := make(map[models.Level][]models.Task)
	for _, task := range tasks {
		if _, seen := byLevel[task.Level]; !seen {
			grouped.Order = append(grouped.Order, task.Level)
		}
		byLevel[task.Level] = append(byLevel[task.Level], task)
	}

	for _, level := range grouped.Order {
		grouped.ByLevel[level] = GroupLevel(byLevel[level], catalog)
	}

	return grouped
}

// GroupLevel builds the tag buckets for tasks that share a level
func GroupLevel(tasks []models.Task, catalog models.TagCatalog) *models.LevelGroup {
	group := &models.LevelGroup{
		Buckets: make(map[string][]models.Task),
		All:     append([]models.Task{}, tasks...),
		Tags:    []string{},
	}

	popular := catalog.Popular()
	popularSet := make(map[string]struct{}, len(popular))
	for _, tag := range popular {
		popularSet[tag] = struct{}{}
	}

	for _, tag := range popular {
		var bucket []models.Task
		for i := range tasks {
			if tasks[i].HasTag(tag) {
				bucket = append(bucket, tasks[i])
			}
		}
		addBucket(group, tag, bucket)
	}

	if rest := catalog.Rest(); rest != "" {
		var bucket []models.Task
		for i := range tasks {
			if isRest(&tasks[i], popularSet) {
				bucket = append(bucket, tasks[i])
			}
		}
		addBucket(group, rest, bucket)
	}

	return group
}

func isRest(task *models.Task, popular map[string]struct{}) bool {
	if len(task.Tags) == 0 {
		return true
	}
	for _, tag := range task.Tags {
		if _, ok := popular[tag]; !ok {
			return true
		}
	}
	return false
}

func addBucket(group *models.LevelGroup, tag string, bucket []models.Task) {
	if len(bucket) == 0 {
		return
	}
	group.Buckets[tag] = bucket
	group.Tags = append(group.Tags, tag)
}
