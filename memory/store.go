package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory/migrate"
)

// FactStore owns the fact collection and is its only writer.
//
// Every mutation (Add, Update, Delete, Clear) runs its full
// read-modify-write sequence under one lock: the fact is changed, its
// embedding regenerated and the whole collection persisted before the lock
// is released.
type FactStore struct {
	mu    sync.Mutex
	facts map[string]*core.Fact // by id
	byKey map[string]string     // (subject, predicate) key -> id
	order []string              // insertion order

	persister Persister
	vocab     *core.Vocabulary
	cache     *EmbeddingCache
	logger    *log.Logger
	now       func() time.Time
}

// NewFactStore creates an empty store. A nil persister keeps facts in memory
// only; a nil cache disables embedding regeneration; a nil vocabulary uses
// core.DefaultVocabulary.
func NewFactStore(persister Persister, vocab *core.Vocabulary, cache *EmbeddingCache, opts ...Option) *FactStore {
	o := buildOptions("memory", opts)
	if vocab == nil {
		vocab = core.DefaultVocabulary()
	}
	return &FactStore{
		facts:     make(map[string]*core.Fact),
		byKey:     make(map[string]string),
		persister: persister,
		vocab:     vocab,
		cache:     cache,
		logger:    o.logger,
		now:       o.now,
	}
}

// Vocabulary returns the classification table the store was built with.
func (s *FactStore) Vocabulary() *core.Vocabulary {
	return s.vocab
}

// Load replaces the in-memory collection with the persisted one. Records
// sharing a (subject, predicate) pair are merged.
func (s *FactStore) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	loaded, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load facts: %w", err)
	}
	merged, merges := migrate.Merge(loaded, s.vocab)
	if merges > 0 {
		s.logger.Warn("merged duplicate facts on load", "merges", merges)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = make(map[string]*core.Fact, len(merged))
	s.byKey = make(map[string]string, len(merged))
	s.order = s.order[:0]
	for i := range merged {
		f := merged[i]
		if _, taken := s.facts[f.ID]; taken || f.ID == "" {
			id := uuid.NewString()
			if f.ID != "" {
				s.logger.Warn("duplicate fact id on load, assigned a new one", "id", f.ID, "new", id, "subject", f.Subject, "predicate", f.Predicate)
			}
			f.ID = id
		}
		s.insertLocked(&f)
	}
	s.logger.Info("loaded facts", "count", len(s.order))
	return nil
}

// Add records object for (subject, predicate).
//
// A generic subject ("User") is filed under the user's learned name when an
// identity fact exists. Multi-value facts gain the object unless it is
// already present; single-value facts are overwritten. UpdatedAt is
// refreshed in every case, including a re-affirmation that changes nothing.
func (s *FactStore) Add(ctx context.Context, predicate, object, subject, factContext string) (core.Fact, error) {
	res, err := s.add(ctx, predicate, object, subject, factContext)
	return res.Fact, err
}

func (s *FactStore) add(ctx context.Context, predicate, object, subject, factContext string) (RememberResult, error) {
	predicate = strings.TrimSpace(predicate)
	object = strings.TrimSpace(object)
	subject = strings.TrimSpace(subject)
	if predicate == "" {
		return RememberResult{}, fmt.Errorf("%w: predicate is required", ErrInvalidFact)
	}
	if object == "" {
		return RememberResult{}, fmt.Errorf("%w: object is required", ErrInvalidFact)
	}
	if subject == "" {
		subject = s.vocab.Generic()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subject = s.resolveSubjectLocked(subject, predicate)
	now := s.now()

	fact, exists := s.lookupLocked(subject, predicate)
	outcome := OutcomeCreated
	if exists {
		outcome = s.mergeLocked(fact, object, factContext, now)
	} else {
		fact = &core.Fact{
			ID:           uuid.NewString(),
			Subject:      subject,
			Predicate:    predicate,
			Objects:      []string{object},
			IsMultiValue: s.vocab.IsMultiValue(predicate),
			Context:      factContext,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.insertLocked(fact)
		s.logger.Info("created fact", "subject", subject, "predicate", predicate, "object", object)
	}

	out := fact.Clone()
	s.refreshLocked(ctx, out)
	return RememberResult{Fact: out, Outcome: outcome}, s.persistLocked(ctx, "add")
}

// AddObject records object on the fact with the given id, under the same
// rules as Add. ok is false when no such fact exists.
func (s *FactStore) AddObject(ctx context.Context, id, object, factContext string) (res RememberResult, ok bool, err error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return RememberResult{}, false, fmt.Errorf("%w: object is required", ErrInvalidFact)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fact, found := s.facts[id]
	if !found {
		return RememberResult{}, false, nil
	}
	outcome := s.mergeLocked(fact, object, factContext, s.now())

	out := fact.Clone()
	s.refreshLocked(ctx, out)
	return RememberResult{Fact: out, Outcome: outcome}, true, s.persistLocked(ctx, "add")
}

// mergeLocked folds object into an existing fact.
func (s *FactStore) mergeLocked(fact *core.Fact, object, factContext string, now time.Time) Outcome {
	outcome := OutcomeUpdated
	switch {
	case fact.IsMultiValue && fact.HasObject(object),
		!fact.IsMultiValue && len(fact.Objects) == 1 && fact.Objects[0] == object:
		outcome = OutcomeUnchanged
		s.logger.Debug("re-affirmed fact", "subject", fact.Subject, "predicate", fact.Predicate, "object", object)
	case fact.IsMultiValue:
		fact.Objects = append(fact.Objects, object)
		s.logger.Info("appended object", "subject", fact.Subject, "predicate", fact.Predicate, "object", object)
	default:
		fact.Objects = []string{object}
		s.logger.Info("overwrote fact", "subject", fact.Subject, "predicate", fact.Predicate, "object", object)
	}
	fact.UpdatedAt = now
	if factContext != "" {
		fact.Context = factContext
	}
	return outcome
}

// Update overwrites predicate, objects and, when subject is not empty, the
// subject of the fact with the given id. No subject resolution or merging is
// applied. ok is false when no such fact exists.
func (s *FactStore) Update(ctx context.Context, id, predicate string, objects []string, subject string) (fact core.Fact, ok bool, err error) {
	predicate = strings.TrimSpace(predicate)
	objects = core.DedupFold(objects)
	subject = strings.TrimSpace(subject)
	if predicate == "" {
		return core.Fact{}, false, fmt.Errorf("%w: predicate is required", ErrInvalidFact)
	}
	if len(objects) == 0 {
		return core.Fact{}, false, fmt.Errorf("%w: at least one object is required", ErrInvalidFact)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.facts[id]
	if !found {
		return core.Fact{}, false, nil
	}
	if subject == "" {
		subject = current.Subject
	}

	multi := s.vocab.IsMultiValue(predicate) ||
		(core.Fold(predicate) == core.Fold(current.Predicate) && current.IsMultiValue)
	if !multi && len(objects) > 1 {
		return core.Fact{}, true, fmt.Errorf("%w: %q holds a single value, got %d", ErrInvalidFact, predicate, len(objects))
	}

	newKey := core.FactKey(subject, predicate)
	if other, taken := s.byKey[newKey]; taken && other != id {
		return core.Fact{}, true, fmt.Errorf("%w: %s %s", ErrConflict, subject, predicate)
	}

	delete(s.byKey, current.Key())
	current.Subject = subject
	current.Predicate = predicate
	current.Objects = objects
	current.IsMultiValue = multi
	current.UpdatedAt = s.now()
	s.byKey[newKey] = id
	s.logger.Info("updated fact", "id", id, "subject", subject, "predicate", predicate, "objects", len(objects))

	out := current.Clone()
	s.refreshLocked(ctx, out)
	return out, true, s.persistLocked(ctx, "update")
}

// Delete removes the fact and its cached vector. It reports whether
// anything was removed; the store is persisted only in that case.
func (s *FactStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fact, found := s.facts[id]
	if !found {
		return false, nil
	}
	delete(s.facts, id)
	delete(s.byKey, fact.Key())
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	s.logger.Info("deleted fact", "id", id, "subject", fact.Subject, "predicate", fact.Predicate)
	return true, s.persistLocked(ctx, "delete")
}

// Clear removes every fact.
func (s *FactStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		for _, id := range s.order {
			s.cache.Invalidate(ctx, id)
		}
	}
	n := len(s.order)
	s.facts = make(map[string]*core.Fact)
	s.byKey = make(map[string]string)
	s.order = nil
	s.logger.Info("cleared long-term memory", "removed", n)
	return s.persistLocked(ctx, "clear")
}

// Get returns the fact with the given id.
func (s *FactStore) Get(id string) (core.Fact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.facts[id]
	if !ok {
		return core.Fact{}, false
	}
	return f.Clone(), true
}

// Find returns the fact for (subject, predicate) without subject resolution.
func (s *FactStore) Find(subject, predicate string) (core.Fact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.lookupLocked(subject, predicate)
	if !ok {
		return core.Fact{}, false
	}
	return f.Clone(), true
}

// ResolveSubject returns the subject Add would file a fact for predicate under.
func (s *FactStore) ResolveSubject(subject, predicate string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = s.vocab.Generic()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveSubjectLocked(subject, predicate)
}

// UserName returns the learned name of the generic subject, or "".
func (s *FactStore) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userNameLocked()
}

// Len returns the number of stored facts.
func (s *FactStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// GetAll returns every fact, most recently updated first. Ties are broken
// by id.
func (s *FactStore) GetAll() []core.Fact {
	s.mu.Lock()
	out := s.snapshotLocked()
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetFactsForSubject returns the facts about name plus every fact still
// filed under the generic subject.
func (s *FactStore) GetFactsForSubject(name string) []core.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := core.Fold(name)
	var out []core.Fact
	for _, id := range s.order {
		f := s.facts[id]
		if core.Fold(f.Subject) == target || s.vocab.IsGenericSubject(f.Subject) {
			out = append(out, f.Clone())
		}
	}
	return out
}

// Search returns, in insertion order, the facts whose subject, predicate or
// any object contains query, ignoring case.
func (s *FactStore) Search(query string) []core.Fact {
	q := core.Fold(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Fact
	for _, id := range s.order {
		f := s.facts[id]
		if matchesFold(*f, q) {
			out = append(out, f.Clone())
		}
	}
	return out
}

func matchesFold(f core.Fact, q string) bool {
	if strings.Contains(core.Fold(f.Subject), q) || strings.Contains(core.Fold(f.Predicate), q) {
		return true
	}
	for _, o := range f.Objects {
		if strings.Contains(core.Fold(o), q) {
			return true
		}
	}
	return false
}

func (s *FactStore) lookupLocked(subject, predicate string) (*core.Fact, bool) {
	id, ok := s.byKey[core.FactKey(subject, predicate)]
	if !ok {
		return nil, false
	}
	return s.facts[id], true
}

func (s *FactStore) insertLocked(f *core.Fact) {
	s.facts[f.ID] = f
	s.byKey[f.Key()] = f.ID
	s.order = append(s.order, f.ID)
}

// resolveSubjectLocked maps the generic subject and its aliases to the
// learned user name. Identity facts stay on the generic subject so that a
// new name overwrites the old one.
func (s *FactStore) resolveSubjectLocked(subject, predicate string) string {
	if !s.vocab.IsGenericSubject(subject) {
		return subject
	}
	if !s.vocab.IsIdentity(predicate) {
		if name := s.userNameLocked(); name != "" {
			return name
		}
	}
	return s.vocab.Generic()
}

func (s *FactStore) userNameLocked() string {
	var (
		name   string
		latest time.Time
	)
	for _, id := range s.order {
		f := s.facts[id]
		if !s.vocab.IsGenericSubject(f.Subject) || !s.vocab.IsIdentity(f.Predicate) || len(f.Objects) == 0 {
			continue
		}
		if name == "" || f.UpdatedAt.After(latest) {
			name, latest = f.Objects[0], f.UpdatedAt
		}
	}
	return name
}

func (s *FactStore) snapshotLocked() []core.Fact {
	out := make([]core.Fact, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.facts[id].Clone())
	}
	return out
}

func (s *FactStore) refreshLocked(ctx context.Context, f core.Fact) {
	if s.cache == nil {
		return
	}
	s.cache.Ensure(ctx, f)
}

func (s *FactStore) persistLocked(ctx context.Context, op string) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(ctx, s.snapshotLocked()); err != nil {
		s.logger.Error("failed to persist facts", "op", op, "error", err)
		return &PersistError{Op: op, Err: err}
	}
	return nil
}
