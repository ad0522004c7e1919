// Package extract turns user utterances into candidate fact triples with a
// text generator.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/llm"
)

// Extractor finds a fact in an utterance. It returns nil when the utterance
// holds nothing worth remembering.
type Extractor interface {
	ExtractTriple(ctx context.Context, utterance, subjectHint string) (*core.Triple, error)
}

var (
	objectPattern = regexp.MustCompile(`\{[\s\S]*?\}`)
	arrayPattern  = regexp.MustCompile(`\[[\s\S]*\]`)
)

// LLMExtractor asks a Generator for a JSON triple at low temperature.
type LLMExtractor struct {
	generator      llm.Generator
	genericSubject string
	temperature    float64
	logger         *log.Logger
}

// New creates an extractor. genericSubject names the speaker when no
// subject hint is given (default "User").
func New(generator llm.Generator, genericSubject string) *LLMExtractor {
	if genericSubject == "" {
		genericSubject = "User"
	}
	return &LLMExtractor{
		generator:      generator,
		genericSubject: genericSubject,
		temperature:    0.1,
		logger:         log.Default().WithPrefix("extract"),
	}
}

// ExtractTriple returns the single fact stated by utterance. subjectHint is
// the known name of the speaker, used as subject for first-person facts.
// Generation failures are returned; an unparseable or incomplete answer
// means no fact.
func (e *LLMExtractor) ExtractTriple(ctx context.Context, utterance, subjectHint string) (*core.Triple, error) {
	subject := e.subject(subjectHint)
	reply, err := e.generator.Generate(ctx,
		[]core.Message{
			{Role: core.RoleSystem, Content: fmt.Sprintf(triplePrompt, subject)},
			{Role: core.RoleUser, Content: utterance},
		},
		llm.WithTemperature(e.temperature),
		llm.WithSchema(llm.Nullable(llm.TripleSchema())),
	)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	t, ok := parseTriple(reply)
	if !ok {
		e.logger.Debug("no fact in utterance", "reply", truncate(reply, 150))
		return nil, nil
	}
	e.logger.Info("extracted triple", "subject", t.Subject, "predicate", t.Predicate, "object", t.Object)
	return t, nil
}

// ExtractMultiple returns every fact stated by text. Incomplete entries are
// dropped.
func (e *LLMExtractor) ExtractMultiple(ctx context.Context, text, subjectHint string) ([]core.Triple, error) {
	subject := e.subject(subjectHint)
	reply, err := e.generator.Generate(ctx,
		[]core.Message{
			{Role: core.RoleSystem, Content: fmt.Sprintf(multiplePrompt, subject)},
			{Role: core.RoleUser, Content: text},
		},
		llm.WithTemperature(e.temperature),
		llm.WithSchema(llm.ArrayProperty("Facts stated in the text", llm.TripleSchema())),
	)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return parseTriples(reply), nil
}

func (e *LLMExtractor) subject(hint string) string {
	if s := strings.TrimSpace(hint); s != "" {
		return s
	}
	return e.genericSubject
}

// parseTriple reads the first JSON object of reply. "null" means no fact.
func parseTriple(reply string) (*core.Triple, bool) {
	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, "null") {
		return nil, false
	}
	raw := objectPattern.FindString(reply)
	if raw == "" {
		return nil, false
	}
	var t core.Triple
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, false
	}
	t = trimTriple(t)
	if t.Validate() != nil {
		return nil, false
	}
	return &t, true
}

func parseTriples(reply string) []core.Triple {
	raw := arrayPattern.FindString(reply)
	if raw == "" {
		return nil
	}
	var all []core.Triple
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil
	}
	out := make([]core.Triple, 0, len(all))
	for _, t := range all {
		t = trimTriple(t)
		if t.Validate() == nil {
			out = append(out, t)
		}
	}
	return out
}

func trimTriple(t core.Triple) core.Triple {
	return core.Triple{
		Subject:   strings.TrimSpace(t.Subject),
		Predicate: strings.TrimSpace(t.Predicate),
		Object:    strings.TrimSpace(t.Object),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
