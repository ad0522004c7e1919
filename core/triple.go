package core

import (
	"errors"
	"strings"
)

// ErrIncompleteTriple is returned when a triple lacks one of its three parts.
var ErrIncompleteTriple = errors.New("triple requires subject, predicate and object")

// Triple is a candidate (subject, predicate, object) extracted from an
// utterance and not yet committed to the store.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Validate checks that every part of the triple carries text.
func (t Triple) Validate() error {
	if strings.TrimSpace(t.Subject) == "" ||
		strings.TrimSpace(t.Predicate) == "" ||
		strings.TrimSpace(t.Object) == "" {
		return ErrIncompleteTriple
	}
	return nil
}

// String renders the triple the way facts are displayed.
func (t Triple) String() string {
	return t.Subject + " " + t.Predicate + " " + t.Object
}
