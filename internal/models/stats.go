package models

import "encoding/json"

// UserStats is the collaborator's per-user statistics payload.
// Only the user block is used here, for task labels; the rest is passed
// through as sent.
type UserStats struct {
	User  StatsUser       `json:"user"`
	Stats json.RawMessage `json:"stats,omitempty"`
}

// StatsUser identifies the player the stats belong to
type StatsUser struct {
	ID        FlexID `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// LabelIcon names the glyph shown next to a task name
type LabelIcon string

const (
	IconAvatar  LabelIcon = "avatar"
	IconUser    LabelIcon = "user"
	IconGithub  LabelIcon = "github"
	IconShuffle LabelIcon = "shuffle"
)

// TaskLabel is how a task is presented to a given viewer
type TaskLabel struct {
	Text      string    `json:"text"`
	Icon      LabelIcon `json:"icon"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// LabelFor renders the label of task for the viewer. Tasks the viewer
// authored show the viewer's avatar; others show an icon by origin.
func LabelFor(task *Task, viewerID string, stats *UserStats) TaskLabel {
	if task.IsCreatedBy(viewerID) {
		label := TaskLabel{Text: task.Name, Icon: IconAvatar}
		if stats != nil {
			label.AvatarURL = stats.User.AvatarURL
		}
		return label
	}

	switch task.Origin {
	case OriginUser:
		return TaskLabel{Text: task.Name, Icon: IconUser}
	case OriginGithub:
		return TaskLabel{Text: task.Name, Icon: IconGithub}
	default:
		return TaskLabel{Text: task.Name, Icon: IconShuffle}
	}
}
