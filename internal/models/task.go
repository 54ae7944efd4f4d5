package models

import (
	"fmt"
	"strings"
)

// Level is a difficulty label partitioning the catalog
type Level string

const (
	LevelElementary Level = "elementary"
	LevelEasy       Level = "easy"
	LevelMedium     Level = "medium"
	LevelHard       Level = "hard"
)

// Levels lists the known difficulty labels from easiest to hardest
var Levels = []Level{LevelElementary, LevelEasy, LevelMedium, LevelHard}

// IsValid reports whether l is one of the known levels
func (l Level) IsValid() bool {
	for _, known := range Levels {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLevel normalizes and validates a level string
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}

// Origin tells where a task came from
type Origin string

const (
	OriginUser   Origin = "user"
	OriginGithub Origin = "github"
	OriginOther  Origin = "other"
)

// ParseOrigin maps anything unrecognised to OriginOther
func ParseOrigin(s string) Origin {
	switch Origin(strings.ToLower(strings.TrimSpace(s))) {
	case OriginUser:
		return OriginUser
	case OriginGithub:
		return OriginGithub
	default:
		return OriginOther
	}
}

// Task is a single coding task of the catalog
type Task struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Level     Level    `json:"level" yaml:"level"`
	Tags      []string `json:"tags" yaml:"tags"`
	Origin    Origin   `json:"origin" yaml:"origin"`
	CreatorID *string  `json:"creator_id,omitempty" yaml:"creator_id,omitempty"`
}

// HasTag reports whether the task carries tag
func (t *Task) HasTag(tag string) bool {
	for _, own := range t.Tags {
		if own == tag {
			return true
		}
	}
	return false
}

// IsCreatedBy reports whether userID authored the task. Tasks without a
// creator belong to nobody.
func (t *Task) IsCreatedBy(userID string) bool {
	return t.CreatorID != nil && *t.CreatorID != "" && *t.CreatorID == userID
}

// Normalize trims the task fields and removes duplicate or blank tags,
// keeping the first occurrence of each.
func (t *Task) Normalize() error {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}

	level, err := ParseLevel(string(t.Level))
	if err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.Level = level
	t.Origin = ParseOrigin(string(t.Origin))
	t.Tags = UniqueTags(t.Tags)

	return nil
}

// UniqueTags returns tags without blanks and duplicates, order preserved
func UniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

// TagCatalog is the ordered list of tag names offered for filtering.
// The last entry labels the rest bucket, every entry before it is a
// popular tag. Order is popularity precedence.
type TagCatalog []string

// NewTagCatalog builds a catalog from raw names, dropping blanks and duplicates
func NewTagCatalog(names []string) TagCatalog {
	return TagCatalog(UniqueTags(names))
}

// Popular returns all entries but the rest label
func (c TagCatalog) Popular() []string {
	if len(c) == 0 {
		return nil
	}
	return c[:len(c)-1]
}

// Rest returns the rest bucket label, or "" for an empty catalog
func (c TagCatalog) Rest() string {
	if len(c) == 0 {
		return ""
	}
	return c[len(c)-1]
}

// SetEquals reports whether tags holds exactly the catalog entries,
// ignoring order and repeats.
func (c TagCatalog) SetEquals(tags []string) bool {
	want := make(map[string]struct{}, len(c))
	for _, tag := range c {
		want[tag] = struct{}{}
	}
	got := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, ok := want[tag]; !ok {
			return false
		}
		got[tag] = struct{}{}
	}
	return len(got) == len(want)
}

// Validate checks the catalog invariant
func (c TagCatalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("tag catalog must not be empty")
	}
	return nil
}

// TaskFilters narrows task listings
type TaskFilters struct {
	Level  Level
	Origin Origin
	Tag    string
	Limit  int
	Offset int
}
