// Package migrate translates every historical on-disk fact shape into the
// current core.Fact shape.
//
// Three shapes have been written over time:
//   - key-value (oldest): {subject, key, value}
//   - single-object: {subject, predicate, object}
//   - multi-object (current): {subject, predicate, objects, isMultiValue}
//
// Records are decoded as a tagged variant: the value field that is present
// decides the shape. Records addressing the same (subject, predicate) pair
// are then merged with the store's multi-value and single-value rules.
package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/becomeliminal/nim-memory/core"
)

// Shape identifies the historical schema a record was written with.
type Shape string

const (
	ShapeKeyValue     Shape = "key-value"
	ShapeSingleObject Shape = "single-object"
	ShapeMultiObject  Shape = "multi-object"
)

// Report summarizes a normalization run.
type Report struct {
	Input      int           `json:"input"`
	Output     int           `json:"output"`
	Merged     int           `json:"merged"`
	Skipped    int           `json:"skipped"`
	Shapes     map[Shape]int `json:"shapes"`
	BackupPath string        `json:"backupPath,omitempty"`
}

var logger = log.Default().WithPrefix("migrate")

// Normalize decodes a JSON array of fact records in any historical shape and
// returns the merged facts in the current shape. Records without a usable
// predicate or object are skipped. now fills missing timestamps.
func Normalize(data []byte, vocab *core.Vocabulary, now time.Time) ([]core.Fact, Report, error) {
	report := Report{Shapes: make(map[Shape]int)}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, report, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, report, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, report, fmt.Errorf("expected a JSON array of facts, got %s", root.Type)
	}

	var decoded []core.Fact
	for i, r := range root.Array() {
		report.Input++
		f, shape, ok := decodeRecord(r, vocab, now)
		if !ok {
			report.Skipped++
			logger.Warn("skipping unusable record", "index", i, "record", truncate(r.Raw, 80))
			continue
		}
		report.Shapes[shape]++
		decoded = append(decoded, f)
	}

	facts, merges := Merge(decoded, vocab)
	report.Output = len(facts)
	report.Merged = merges
	return facts, report, nil
}

// decodeRecord reads one record. The presence of objects, object or value
// selects the shape; an empty value falls through to the older field.
func decodeRecord(r gjson.Result, vocab *core.Vocabulary, now time.Time) (core.Fact, Shape, bool) {
	if !r.IsObject() {
		return core.Fact{}, "", false
	}

	predicate := firstString(r, "predicate", "key")
	var (
		objects []string
		shape   Shape
	)
	switch {
	case r.Get("objects").IsArray():
		shape = ShapeMultiObject
		for _, o := range r.Get("objects").Array() {
			objects = append(objects, o.String())
		}
		objects = core.DedupFold(objects)
		if len(objects) == 0 {
			objects = core.DedupFold([]string{firstString(r, "object", "value")})
		}
	case r.Get("object").Exists():
		shape = ShapeSingleObject
		objects = core.DedupFold([]string{firstString(r, "object", "value")})
	default:
		shape = ShapeKeyValue
		objects = core.DedupFold([]string{r.Get("value").String()})
	}
	if predicate == "" || len(objects) == 0 {
		return core.Fact{}, shape, false
	}

	subject := strings.TrimSpace(r.Get("subject").String())
	if subject == "" {
		subject = vocab.Generic()
	}

	multi := vocab.IsMultiValue(predicate)
	if v := r.Get("isMultiValue"); v.Exists() {
		multi = v.Bool()
	}
	if !multi && len(objects) > 1 {
		objects = objects[len(objects)-1:]
	}

	id := strings.TrimSpace(r.Get("id").String())
	if id == "" {
		id = uuid.NewString()
	}
	created := parseTime(r.Get("createdAt"), now)
	updated := parseTime(r.Get("updatedAt"), created)

	return core.Fact{
		ID:           id,
		Subject:      subject,
		Predicate:    predicate,
		Objects:      objects,
		IsMultiValue: multi,
		Context:      r.Get("context").String(),
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, shape, true
}

// Merge collapses facts sharing a case-insensitive (subject, predicate)
// pair, in first-seen order, and returns how many facts were folded away.
//
// Multi-value groups take the union of their objects in input order.
// Single-value groups keep the value of the most recently updated record.
// The merged fact keeps the first id, the earliest CreatedAt and the latest
// UpdatedAt.
func Merge(facts []core.Fact, vocab *core.Vocabulary) ([]core.Fact, int) {
	index := make(map[string]int, len(facts))
	out := make([]core.Fact, 0, len(facts))
	merges := 0

	for _, f := range facts {
		f = f.Clone()
		i, seen := index[f.Key()]
		if !seen {
			index[f.Key()] = len(out)
			out = append(out, f)
			continue
		}
		merges++
		g := &out[i]
		g.IsMultiValue = g.IsMultiValue || f.IsMultiValue || vocab.IsMultiValue(g.Predicate)
		newer := !f.UpdatedAt.Before(g.UpdatedAt)
		if g.IsMultiValue {
			g.Objects = core.DedupFold(append(g.Objects, f.Objects...))
		} else if newer {
			g.Objects = f.Objects
		}
		if newer && f.Context != "" {
			g.Context = f.Context
		}
		if f.CreatedAt.Before(g.CreatedAt) {
			g.CreatedAt = f.CreatedAt
		}
		if f.UpdatedAt.After(g.UpdatedAt) {
			g.UpdatedAt = f.UpdatedAt
		}
	}

	for i := range out {
		if !out[i].IsMultiValue && len(out[i].Objects) > 1 {
			out[i].Objects = out[i].Objects[len(out[i].Objects)-1:]
		}
	}
	return out, merges
}

// Encode serializes facts in the current shape.
func Encode(facts []core.Fact) ([]byte, error) {
	if facts == nil {
		facts = []core.Fact{}
	}
	return json.MarshalIndent(facts, "", "  ")
}

func firstString(r gjson.Result, fields ...string) string {
	for _, field := range fields {
		if s := strings.TrimSpace(r.Get(field).String()); s != "" {
			return s
		}
	}
	return ""
}

// parseTime accepts RFC 3339 strings and Unix milliseconds.
func parseTime(v gjson.Result, fallback time.Time) time.Time {
	switch v.Type {
	case gjson.String:
		if t, err := time.Parse(time.RFC3339Nano, v.String()); err == nil {
			return t
		}
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC()
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
