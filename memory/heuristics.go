package memory

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/becomeliminal/nim-memory/core"
)

type expansionRule struct {
	re     *regexp.Regexp
	append string
}

// heuristics is the compiled form of a vocabulary's question patterns.
type heuristics struct {
	vocab      *core.Vocabulary
	identity   []*regexp.Regexp
	aboutMe    []*regexp.Regexp
	expansions []expansionRule
}

func compileHeuristics(vocab *core.Vocabulary) (*heuristics, error) {
	h := &heuristics{vocab: vocab}
	var err error
	if h.identity, err = compileAll(vocab.IdentityQuestions); err != nil {
		return nil, fmt.Errorf("identity questions: %w", err)
	}
	if h.aboutMe, err = compileAll(vocab.AboutMeQuestions); err != nil {
		return nil, fmt.Errorf("about-me questions: %w", err)
	}
	for _, e := range vocab.Expansions {
		re, err := regexp.Compile("(?i)" + e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("expansion %q: %w", e.Pattern, err)
		}
		h.expansions = append(h.expansions, expansionRule{re: re, append: e.Append})
	}
	return h, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// expand appends domain vocabulary to short queries that embed poorly.
func (h *heuristics) expand(query string) string {
	var extra []string
	for _, rule := range h.expansions {
		m := rule.re.FindStringSubmatchIndex(query)
		if m == nil {
			continue
		}
		extra = append(extra, string(rule.re.ExpandString(nil, rule.append, query, m)))
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}

func (h *heuristics) isIdentityQuestion(q string) bool {
	return matchAny(h.identity, q)
}

func (h *heuristics) isAboutMeQuestion(q string) bool {
	return matchAny(h.aboutMe, q)
}

// categoryTerms returns the fact terms of every category whose keywords
// appear among tokens.
func (h *heuristics) categoryTerms(tokens []string) []string {
	var terms []string
	for _, c := range h.vocab.Categories {
		for _, k := range c.Keywords {
			if containsToken(tokens, k) {
				terms = append(terms, c.Terms...)
				break
			}
		}
	}
	return terms
}

func (h *heuristics) mentionsSentiment(tokens []string) bool {
	for _, k := range h.vocab.SentimentKeywords {
		if containsToken(tokens, k) {
			return true
		}
	}
	return false
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// tokenize splits an utterance into lower-cased words. Apostrophes split
// words so that "j'aime" yields "aime".
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func containsToken(tokens []string, word string) bool {
	w := core.Fold(word)
	for _, t := range tokens {
		if t == w {
			return true
		}
	}
	return false
}

// mentionsAny reports whether the predicate or an object of f contains one
// of terms.
func mentionsAny(f core.Fact, terms []string) bool {
	for _, term := range terms {
		t := core.Fold(term)
		if t == "" {
			continue
		}
		if strings.Contains(core.Fold(f.Predicate), t) {
			return true
		}
		for _, o := range f.Objects {
			if strings.Contains(core.Fold(o), t) {
				return true
			}
		}
	}
	return false
}
