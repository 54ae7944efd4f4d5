package models

// LevelGroup holds the tasks of one level split by tag.
// Buckets is keyed by tag name; Tags lists the non-empty buckets in
// catalog order and is the only ordering to rely on.
type LevelGroup struct {
	Buckets map[string][]Task `json:"buckets"`
	All     []Task            `json:"all"`
	Tags    []string          `json:"tags"`
}

// EmptyLevelGroup is what lookups of absent levels return
func EmptyLevelGroup() *LevelGroup {
	return &LevelGroup{
		Buckets: map[string][]Task{},
		All:     []Task{},
		Tags:    []string{},
	}
}

// Bucket returns the tasks filed under tag, nil when there is no such bucket
func (g *LevelGroup) Bucket(tag string) []Task {
	if g == nil {
		return nil
	}
	return g.Buckets[tag]
}

// GroupedTasks maps every level present in the catalog to its grouping.
// Order lists the levels in first-appearance order.
type GroupedTasks struct {
	ByLevel map[Level]*LevelGroup `json:"by_level"`
	Order   []Level               `json:"levels"`
}

// Level returns the grouping for level, or an empty one when absent
func (g *GroupedTasks) Level(level Level) *LevelGroup {
	if g == nil {
		return EmptyLevelGroup()
	}
	if group, ok := g.ByLevel[level]; ok {
		return group
	}
	return EmptyLevelGroup()
}
