package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/nim-memory/core"
)

// Outcome describes what Remember did with a triple.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// RememberResult is the fact a triple ended up in and what happened to it.
type RememberResult struct {
	Fact    core.Fact `json:"fact"`
	Outcome Outcome   `json:"outcome"`
}

// Manager orchestrates the memory write and read paths.
//
// Write path: a triple from the extractor is checked against existing facts
// by similarity before it is stored, so an existing fact is extended or
// left alone rather than duplicated.
//
// Read path: an utterance is expanded, embedded and searched; when nothing
// clears the recall threshold, the vocabulary fallbacks are tried in order
// (identity, about-me, category, sentiment).
type Manager struct {
	store    *FactStore
	cache    *EmbeddingCache
	searcher *Searcher
	embedder Embedder // queries only; fact vectors go through cache
	config   *Config
	rules    *heuristics
	logger   *log.Logger
}

// NewManager creates a Manager over store and cache. It fails when the
// store's vocabulary holds an invalid pattern.
func NewManager(store *FactStore, cache *EmbeddingCache, embedder Embedder, config *Config, opts ...Option) (*Manager, error) {
	config = config.withDefaults()
	rules, err := compileHeuristics(store.Vocabulary())
	if err != nil {
		return nil, fmt.Errorf("compile vocabulary: %w", err)
	}
	o := buildOptions("memory", opts)
	return &Manager{
		store:    store,
		cache:    cache,
		searcher: NewSearcher(cache),
		embedder: embedder,
		config:   config,
		rules:    rules,
		logger:   o.logger,
	}, nil
}

// Store returns the fact store behind the manager.
func (m *Manager) Store() *FactStore {
	return m.store
}

// Warmup embeds every stored fact. Call it once after FactStore.Load.
func (m *Manager) Warmup(ctx context.Context) CacheStatus {
	facts := m.store.GetAll()
	generated := m.cache.EnsureAll(ctx, facts)
	recovered := m.cache.RegenerateDegraded(ctx, facts)
	st := m.cache.Status(facts)
	m.logger.Info("embedding cache warm",
		"facts", st.TotalFacts, "generated", generated, "recovered", recovered, "degraded", st.DegradedVectors)
	return st
}

// Remember commits a triple. The triple's subject is resolved like
// FactStore.Add resolves it; a similar fact with the same subject and
// predicate is extended (multi-value) or overwritten (single-value), and an
// object it already holds is only re-affirmed. The merge itself happens
// under the store lock, so concurrent calls never lose an object.
func (m *Manager) Remember(ctx context.Context, t core.Triple, factContext string) (RememberResult, error) {
	if err := t.Validate(); err != nil {
		return RememberResult{}, fmt.Errorf("%w: %v", ErrInvalidFact, err)
	}
	subject := m.store.ResolveSubject(t.Subject, t.Predicate)

	if existing, ok := m.findDuplicate(ctx, subject, t.Predicate); ok {
		res, found, err := m.store.AddObject(ctx, existing.ID, t.Object, factContext)
		if err != nil || found {
			return res, err
		}
	}
	return m.store.add(ctx, t.Predicate, t.Object, t.Subject, factContext)
}

// findDuplicate looks among the top similar facts for one filed under
// subject and predicate.
func (m *Manager) findDuplicate(ctx context.Context, subject, predicate string) (core.Fact, bool) {
	vec, err := m.embedder.Embed(ctx, subject+" "+predicate)
	if err != nil {
		m.logger.Warn("failed to embed triple, skipping duplicate detection", "error", err)
		return core.Fact{}, false
	}
	scored, err := m.searcher.Search(ctx, m.store.GetAll(), vec, m.config.DuplicateThreshold)
	if err != nil {
		m.logger.Warn("duplicate search failed", "error", err)
		return core.Fact{}, false
	}
	key := core.FactKey(subject, predicate)
	for i, s := range scored {
		if i >= m.config.DuplicateCandidates {
			break
		}
		if s.Fact.Key() == key {
			return s.Fact, true
		}
	}
	return core.Fact{}, false
}

// Recall selects the facts relevant to an utterance, at most
// Config.MaxResults of them. An empty result is not an error.
func (m *Manager) Recall(ctx context.Context, utterance string) ([]core.Fact, error) {
	facts := m.store.GetAll()
	if len(facts) == 0 {
		return nil, nil
	}

	query := m.rules.expand(utterance)
	var results []core.Fact

	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		m.logger.Warn("failed to embed query, using fallbacks only", "error", err)
	} else {
		scored, err := m.searcher.Search(ctx, facts, vec, m.config.RecallThreshold)
		if err != nil {
			return nil, fmt.Errorf("similarity search: %w", err)
		}
		for _, s := range scored {
			results = append(results, s.Fact)
		}
	}

	if len(results) == 0 {
		results = m.fallback(utterance, facts)
	}
	if len(results) > m.config.MaxResults {
		results = results[:m.config.MaxResults]
	}

	m.logger.Info("recalled facts", "count", len(results), "query", truncateLog(utterance, 50))
	return results, nil
}

// fallback applies the vocabulary rules in order and returns the first
// non-empty selection.
func (m *Manager) fallback(utterance string, facts []core.Fact) []core.Fact {
	vocab := m.store.Vocabulary()
	tokens := tokenize(utterance)

	if m.rules.isIdentityQuestion(utterance) {
		if out := filterFacts(facts, func(f core.Fact) bool { return vocab.IsIdentity(f.Predicate) }); len(out) > 0 {
			m.logger.Debug("fallback matched", "rule", "identity", "count", len(out))
			return out
		}
	}

	if m.rules.isAboutMeQuestion(utterance) {
		name := core.Fold(m.store.UserName())
		out := filterFacts(facts, func(f core.Fact) bool {
			return (name != "" && core.Fold(f.Subject) == name) || vocab.IsGenericSubject(f.Subject)
		})
		if len(out) > 0 {
			m.logger.Debug("fallback matched", "rule", "about-me", "count", len(out))
			return out
		}
	}

	if terms := m.rules.categoryTerms(tokens); len(terms) > 0 {
		if out := filterFacts(facts, func(f core.Fact) bool { return mentionsAny(f, terms) }); len(out) > 0 {
			m.logger.Debug("fallback matched", "rule", "category", "count", len(out))
			return out
		}
	}

	if m.rules.mentionsSentiment(tokens) {
		if out := filterFacts(facts, func(f core.Fact) bool { return vocab.IsSentiment(f.Predicate) }); len(out) > 0 {
			m.logger.Debug("fallback matched", "rule", "sentiment", "count", len(out))
			return out
		}
	}

	return nil
}

// GenerateEmbedding embeds arbitrary text with the query embedder.
func (m *Manager) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidFact)
	}
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vec, nil
}

// VectorSearch ranks every stored fact against vector.
func (m *Manager) VectorSearch(ctx context.Context, vector []float32, threshold float64) ([]ScoredFact, error) {
	return m.searcher.Search(ctx, m.store.GetAll(), vector, threshold)
}

// CacheStatus reports embedding coverage of the stored facts.
func (m *Manager) CacheStatus() CacheStatus {
	return m.cache.Status(m.store.GetAll())
}

func filterFacts(facts []core.Fact, keep func(core.Fact) bool) []core.Fact {
	var out []core.Fact
	for _, f := range facts {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Config holds Manager configuration.
type Config struct {
	// RecallThreshold is the minimum similarity for the read path [0.0-1.0].
	// Default: 0.35 (small local models score related text low)
	RecallThreshold float64

	// DuplicateThreshold is the minimum similarity for a fact to be
	// considered the same as an incoming triple.
	// Default: 0.7
	DuplicateThreshold float64

	// DuplicateCandidates caps how many similar facts are inspected on write.
	// Default: 5
	DuplicateCandidates int

	// MaxResults caps the facts returned by Recall.
	// Default: 5 (prompt-size control)
	MaxResults int
}

// DefaultConfig returns sensible defaults for local models.
var DefaultConfig = &Config{
	RecallThreshold:     0.35,
	DuplicateThreshold:  0.7,
	DuplicateCandidates: 5,
	MaxResults:          5,
}

// withDefaults returns a copy of c with unset or out-of-range fields taken
// from DefaultConfig.
func (c *Config) withDefaults() *Config {
	out := *DefaultConfig
	if c == nil {
		return &out
	}
	if c.RecallThreshold > 0 && c.RecallThreshold <= 1 {
		out.RecallThreshold = c.RecallThreshold
	}
	if c.DuplicateThreshold > 0 && c.DuplicateThreshold <= 1 {
		out.DuplicateThreshold = c.DuplicateThreshold
	}
	if c.DuplicateCandidates > 0 {
		out.DuplicateCandidates = c.DuplicateCandidates
	}
	if c.MaxResults > 0 {
		out.MaxResults = c.MaxResults
	}
	return &out
}
