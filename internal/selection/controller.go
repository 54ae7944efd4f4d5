package selection

import (
	"github.com/terra-clan/task-lobby/internal/grouping"
	"github.com/terra-clan/task-lobby/internal/models"
)

// Controller applies a player's picks to one SelectionState. It has a single
// writer; every method replaces the affected fields within the call.
type Controller struct {
	state models.SelectionState
}

// NewController starts an empty selection at level
func NewController(level models.Level) *Controller {
	return &Controller{state: models.SelectionState{
		ChosenTags: []string{},
		Level:      level,
	}}
}

// Restore resumes a controller from a saved state
func Restore(state models.SelectionState) *Controller {
	state = state.Clone()
	if state.ChosenTags == nil {
		state.ChosenTags = []string{}
	}
	return &Controller{state: state}
}

// State returns a copy of the current selection
func (c *Controller) State() models.SelectionState {
	return c.state.Clone()
}

// IsTaskChosen reports whether the tag filter is locked by a concrete task
func (c *Controller) IsTaskChosen() bool {
	return c.state.IsTaskChosen()
}

// ToggleTag adds tag to the filter or removes it if present. Does nothing
// while a task is chosen.
func (c *Controller) ToggleTag(tag string) {
	if c.state.IsTaskChosen() {
		return
	}

	tags := make([]string, 0, len(c.state.ChosenTags)+1)
	removed := false
	for _, chosen := range c.state.ChosenTags {
		if chosen == tag {
			removed = true
			continue
		}
		tags = append(tags, chosen)
	}
	if !removed {
		tags = append(tags, tag)
	}
	c.state.ChosenTags = tags
}

// ChooseTask picks task and replaces the tag filter with the task's own tags
func (c *Controller) ChooseTask(task models.Task) {
	task.Tags = append([]string{}, task.Tags...)
	c.state.ChosenTask = &task
	c.state.ChosenTags = append([]string{}, task.Tags...)
}

// ChooseRandom drops the chosen task and keeps the tag filter
func (c *Controller) ChooseRandom() {
	c.state.ChosenTask = nil
}

// SetLevel switches difficulty. A real change resets the selection.
func (c *Controller) SetLevel(level models.Level) {
	if level == c.state.Level {
		return
	}
	c.state.Level = level
	c.Reset()
}

// Reset clears the chosen task and tags, keeping the level
func (c *Controller) Reset() {
	c.state.ChosenTask = nil
	c.state.ChosenTags = []string{}
}

// Visible returns the tasks the current selection shows from grouped
func (c *Controller) Visible(grouped *models.GroupedTasks, catalog models.TagCatalog) []models.Task {
	return grouping.Filter(c.state, grouped.Level(c.state.Level), catalog)
}

// View renders the picker for the viewer: the random option followed by
// the visible tasks, and one button per non-empty tag bucket of the level.
func (c *Controller) View(id string, grouped *models.GroupedTasks, catalog models.TagCatalog, viewerID string, stats *models.UserStats) models.SelectionView {
	return c.render(id, grouped, catalog, viewerID, stats, "")
}

// Search is View with the options narrowed to names matching query
func (c *Controller) Search(id string, grouped *models.GroupedTasks, catalog models.TagCatalog, viewerID string, stats *models.UserStats, query string) models.SelectionView {
	return c.render(id, grouped, catalog, viewerID, stats, query)
}

func (c *Controller) render(id string, grouped *models.GroupedTasks, catalog models.TagCatalog, viewerID string, stats *models.UserStats, query string) models.SelectionView {
	group := grouped.Level(c.state.Level)
	visible := grouping.Filter(c.state, group, catalog)
	if query != "" {
		visible = grouping.Search(visible, query)
	}

	options := make([]models.TaskOption, 0, len(visible)+1)
	if grouping.MatchName(models.RandomTaskName, query) {
		options = append(options, models.TaskOption{
			Name:   models.RandomTaskName,
			Tags:   []string{},
			Random: true,
			Label:  models.TaskLabel{Text: models.RandomTaskName, Icon: models.IconShuffle},
		})
	}
	for i := range visible {
		options = append(options, models.TaskOption{
			ID:    visible[i].ID,
			Name:  visible[i].Name,
			Tags:  visible[i].Tags,
			Label: models.LabelFor(&visible[i], viewerID, stats),
		})
	}

	locked := c.state.IsTaskChosen()
	buttons := make([]models.TagButton, 0, len(group.Tags))
	for _, tag := range group.Tags {
		buttons = append(buttons, models.TagButton{
			Name:     tag,
			Chosen:   contains(c.state.ChosenTags, tag),
			Disabled: locked,
		})
	}

	return models.SelectionView{
		ID:           id,
		State:        c.State(),
		IsTaskChosen: locked,
		Options:      options,
		Tags:         buttons,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
