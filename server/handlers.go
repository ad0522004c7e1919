package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory"
)

type handlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

func (s *Server) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"facts.list":         s.listFacts,
		"facts.search":       s.searchFacts,
		"facts.subject":      s.subjectFacts,
		"facts.add":          s.addFact,
		"facts.update":       s.updateFact,
		"facts.delete":       s.deleteFact,
		"embedding.generate": s.generateEmbedding,
		"vector.search":      s.vectorSearch,
		"cache.status":       s.cacheStatus,
		"memory.recall":      s.recall,
		"memory.remember":    s.remember,
		"memory.learn":       s.learn,
		"memory.summary":     s.summary,
	}
}

func decode(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func nonNil(facts []core.Fact) []core.Fact {
	if facts == nil {
		return []core.Fact{}
	}
	return facts
}

func (s *Server) listFacts(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return nonNil(s.facts.GetAll()), nil
}

func (s *Server) searchFacts(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Query string `json:"query"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return nonNil(s.facts.Search(p.Query)), nil
}

func (s *Server) subjectFacts(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Name string `json:"name"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "name is required"}
	}
	return nonNil(s.facts.GetFactsForSubject(p.Name)), nil
}

func (s *Server) addFact(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Subject   string `json:"subject"`
		Predicate string `json:"predicate"`
		Object    string `json:"object"`
		Context   string `json:"context"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.facts.Add(ctx, p.Predicate, p.Object, p.Subject, p.Context)
}

func (s *Server) updateFact(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		ID        string   `json:"id"`
		Subject   string   `json:"subject"`
		Predicate string   `json:"predicate"`
		Objects   []string `json:"objects"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	fact, ok, err := s.facts.Update(ctx, p.ID, p.Predicate, p.Objects, p.Subject)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: "no fact with id " + p.ID}
	}
	return fact, nil
}

func (s *Server) deleteFact(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	deleted, err := s.facts.Delete(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": deleted}, nil
}

func (s *Server) generateEmbedding(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Text string `json:"text"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	vec, err := s.memory.GenerateEmbedding(ctx, p.Text)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"embedding": vec, "dimensions": len(vec)}, nil
}

func (s *Server) vectorSearch(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Vector    []float32 `json:"vector"`
		Threshold *float64  `json:"threshold"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if len(p.Vector) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "vector is required"}
	}
	threshold := memory.DefaultConfig.RecallThreshold
	if p.Threshold != nil {
		threshold = *p.Threshold
	}
	scored, err := s.memory.VectorSearch(ctx, p.Vector, threshold)
	if err != nil {
		return nil, err
	}
	if scored == nil {
		scored = []memory.ScoredFact{}
	}
	return scored, nil
}

func (s *Server) cacheStatus(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return s.memory.CacheStatus(), nil
}

func (s *Server) recall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		Utterance string `json:"utterance"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	facts, err := s.memory.Recall(ctx, p.Utterance)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"facts":   nonNil(facts),
		"context": memory.FormatContext(facts, s.facts.UserName()),
	}, nil
}

func (s *Server) remember(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		core.Triple
		Context string `json:"context"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.memory.Remember(ctx, p.Triple, p.Context)
}

func (s *Server) learn(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.extractor == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "no extractor configured"}
	}
	var p struct {
		Utterance string `json:"utterance"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	triple, err := s.extractor.ExtractTriple(ctx, p.Utterance, s.facts.UserName())
	if err != nil {
		return nil, err
	}
	if triple == nil {
		return map[string]interface{}{"triple": nil}, nil
	}
	result, err := s.memory.Remember(ctx, *triple, p.Utterance)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"triple": triple, "result": result}, nil
}

func (s *Server) summary(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return map[string]string{"summary": memory.Summary(s.facts.GetAll())}, nil
}
