package grouping

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/terra-clan/task-lobby/internal/models"
)

// foldName lowercases s and strips combining marks so "Éclair" matches "eclair"
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// MatchName reports whether query occurs anywhere in name, ignoring case,
// accents and surrounding whitespace. An empty query matches everything.
func MatchName(name, query string) bool {
	q := foldName(query)
	if q == "" {
		return true
	}
	return strings.Contains(foldName(name), q)
}

// Search keeps the tasks whose name matches query, order preserved
func Search(tasks []models.Task, query string) []models.Task {
	result := []models.Task{}
	for _, task := range tasks {
		if MatchName(task.Name, query) {
			result = append(result, task)
		}
	}
	return result
}
