package core

import (
	"strings"
	"time"
)

// Fact is a stored subject-predicate-objects record in long-term memory.
//
// Subject and Predicate compare case-insensitively everywhere. Objects is a
// case-insensitive set that keeps insertion order for display and is never
// empty for a stored fact. Single-value facts hold exactly one object.
type Fact struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Predicate    string    `json:"predicate"`
	Objects      []string  `json:"objects"`
	IsMultiValue bool      `json:"isMultiValue"`
	Context      string    `json:"context,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Key returns the case-folded (subject, predicate) identity of the fact.
func (f Fact) Key() string {
	return FactKey(f.Subject, f.Predicate)
}

// FactKey builds the identity key used to enforce one fact per
// (subject, predicate) pair.
func FactKey(subject, predicate string) string {
	return Fold(subject) + "::" + Fold(predicate)
}

// Text is the serialized form fed to the embedding function.
func (f Fact) Text() string {
	return f.Subject + " " + f.Predicate + " " + strings.Join(f.Objects, ", ")
}

// HasObject reports whether object is already present, ignoring case.
func (f Fact) HasObject(object string) bool {
	return ContainsFold(f.Objects, object)
}

// Clone returns a deep copy so callers never share the Objects slice with
// the store.
func (f Fact) Clone() Fact {
	c := f
	c.Objects = append([]string(nil), f.Objects...)
	return c
}

// Fold normalizes a term for case-insensitive comparison: surrounding space
// trimmed, inner runs of whitespace collapsed, lower-cased.
func Fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ContainsFold reports whether values holds s under Fold equality.
func ContainsFold(values []string, s string) bool {
	target := Fold(s)
	for _, v := range values {
		if Fold(v) == target {
			return true
		}
	}
	return false
}

// DedupFold trims every value, drops empties and removes case-insensitive
// duplicates, keeping the first spelling seen.
func DedupFold(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := Fold(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
