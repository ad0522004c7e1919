package memory

import (
	"fmt"
	"strings"

	"github.com/becomeliminal/nim-memory/core"
)

// FormatContext renders recalled facts as a block for prompt injection.
// Facts are grouped by subject and multi-object facts are enumerated.
func FormatContext(facts []core.Fact, userName string) string {
	var parts []string
	if userName != "" {
		parts = append(parts, "=== USER CONTEXT ===\n", fmt.Sprintf("You are talking with %s.\n", userName))
	}
	if len(facts) > 0 {
		parts = append(parts, "=== RELEVANT MEMORIES ===\n")
		for _, group := range groupBySubject(facts) {
			for _, f := range group {
				parts = append(parts, fmt.Sprintf("- %s %s: %s", f.Subject, f.Predicate, strings.Join(f.Objects, ", ")))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Summary describes what is known about every subject, one line each:
// "About Paul: likes chocolate, pasta and tea; owns a cat."
func Summary(facts []core.Fact) string {
	var lines []string
	for _, group := range groupBySubject(facts) {
		clauses := make([]string, 0, len(group))
		for _, f := range group {
			clauses = append(clauses, f.Predicate+" "+enumerate(f.Objects))
		}
		lines = append(lines, fmt.Sprintf("About %s: %s.", group[0].Subject, strings.Join(clauses, "; ")))
	}
	return strings.Join(lines, "\n")
}

// groupBySubject groups facts by case-insensitive subject, keeping the
// order in which subjects first appear.
func groupBySubject(facts []core.Fact) [][]core.Fact {
	index := make(map[string]int)
	var groups [][]core.Fact
	for _, f := range facts {
		k := core.Fold(f.Subject)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], f)
	}
	return groups
}

func enumerate(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
