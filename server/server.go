// Package server exposes the fact memory over a websocket JSON protocol for
// the conversation loop and administrative tools.
//
// Each websocket message is a Request; every Request gets exactly one
// Response carrying the same id. Requests on one connection are handled in
// order.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/extract"
	"github.com/becomeliminal/nim-memory/memory"
)

// Facts is the fact store surface the server exposes.
type Facts interface {
	GetAll() []core.Fact
	Search(query string) []core.Fact
	GetFactsForSubject(name string) []core.Fact
	Add(ctx context.Context, predicate, object, subject, factContext string) (core.Fact, error)
	Update(ctx context.Context, id, predicate string, objects []string, subject string) (core.Fact, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	UserName() string
}

// Memory is the retrieval surface the server exposes.
type Memory interface {
	Recall(ctx context.Context, utterance string) ([]core.Fact, error)
	Remember(ctx context.Context, t core.Triple, factContext string) (memory.RememberResult, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	VectorSearch(ctx context.Context, vector []float32, threshold float64) ([]memory.ScoredFact, error)
	CacheStatus() memory.CacheStatus
}

// Config configures the server.
type Config struct {
	Facts  Facts
	Memory Memory

	// Extractor enables memory.learn. Optional.
	Extractor extract.Extractor

	// Logger defaults to the "server" prefixed default logger.
	Logger *log.Logger
}

// Server serves /ws and /health.
type Server struct {
	facts     Facts
	memory    Memory
	extractor extract.Extractor
	upgrader  websocket.Upgrader
	handlers  map[string]handlerFunc
	logger    *log.Logger
	mux       *http.ServeMux
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("server")
	}
	s := &Server{
		facts:     cfg.Facts,
		memory:    cfg.Memory,
		extractor: cfg.Extractor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.handlers = s.routes()
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/health", s.handleHealth)
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.memory.CacheStatus()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"facts":  status.TotalFacts,
		"cache":  status,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	s.logger.Debug("client connected", "remote", r.RemoteAddr)

	ctx := r.Context()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read failed", "error", err)
			}
			return
		}
		resp := s.dispatch(ctx, req)
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Warn("write failed", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	h, ok := s.handlers[req.Method]
	if !ok {
		return Response{ID: req.ID, Error: &Error{Code: CodeUnknownMethod, Message: "unknown method " + req.Method}}
	}
	result, err := h(ctx, req.Params)
	if err != nil {
		rpcErr := toError(err)
		if rpcErr.Code == CodeInternal || rpcErr.Code == CodePersistFailed {
			s.logger.Error("request failed", "method", req.Method, "error", err)
		}
		return Response{ID: req.ID, Error: rpcErr}
	}
	return Response{ID: req.ID, Result: result}
}
