package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory"
	"github.com/becomeliminal/nim-memory/memory/embedder/mock"
	"github.com/becomeliminal/nim-memory/server"
)

type fakeExtractor struct {
	triple *core.Triple
}

func (e *fakeExtractor) ExtractTriple(ctx context.Context, utterance, subjectHint string) (*core.Triple, error) {
	return e.triple, nil
}

type response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *server.Error   `json:"error"`
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
	seq  int
}

func (c *client) call(method string, params interface{}) response {
	c.t.Helper()
	c.seq++
	req := map[string]interface{}{"id": strconv.Itoa(c.seq), "method": method}
	if params != nil {
		req["params"] = params
	}
	require.NoError(c.t, c.conn.WriteJSON(req))

	var resp response
	require.NoError(c.t, c.conn.ReadJSON(&resp))
	assert.Equal(c.t, req["id"], resp.ID)
	return resp
}

func newTestServer(t *testing.T, extractor *fakeExtractor) (*httptest.Server, *memory.FactStore) {
	t.Helper()
	emb := mock.NewBagOfWords(256)
	cache := memory.NewEmbeddingCache(emb, nil)
	store := memory.NewFactStore(nil, nil, cache)
	mgr, err := memory.NewManager(store, cache, emb, nil)
	require.NoError(t, err)

	cfg := server.Config{Facts: store, Memory: mgr}
	if extractor != nil {
		cfg.Extractor = extractor
	}
	srv := httptest.NewServer(server.New(cfg).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func dial(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

func TestServer_FactsCRUD(t *testing.T) {
	srv, store := newTestServer(t, nil)
	c := dial(t, srv)

	resp := c.call("facts.add", map[string]string{"predicate": "likes", "object": "tea"})
	require.Nil(t, resp.Error)
	var added core.Fact
	require.NoError(t, json.Unmarshal(resp.Result, &added))
	assert.Equal(t, "User", added.Subject)
	assert.Equal(t, []string{"tea"}, added.Objects)

	resp = c.call("facts.list", nil)
	var all []core.Fact
	require.NoError(t, json.Unmarshal(resp.Result, &all))
	assert.Len(t, all, 1)

	resp = c.call("facts.search", map[string]string{"query": "TEA"})
	require.NoError(t, json.Unmarshal(resp.Result, &all))
	assert.Len(t, all, 1)

	resp = c.call("facts.update", map[string]interface{}{"id": added.ID, "predicate": "likes", "objects": []string{"tea", "coffee"}})
	require.Nil(t, resp.Error)
	var updated core.Fact
	require.NoError(t, json.Unmarshal(resp.Result, &updated))
	assert.Equal(t, []string{"tea", "coffee"}, updated.Objects)

	resp = c.call("facts.update", map[string]interface{}{"id": "missing", "predicate": "likes", "objects": []string{"x"}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, server.CodeNotFound, resp.Error.Code)

	resp = c.call("facts.delete", map[string]string{"id": added.ID})
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"deleted": true}`, string(resp.Result))
	assert.Zero(t, store.Len())

	resp = c.call("facts.list", nil)
	assert.JSONEq(t, `[]`, string(resp.Result))
}

func TestServer_Errors(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	c := dial(t, srv)

	resp := c.call("facts.explode", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, server.CodeUnknownMethod, resp.Error.Code)

	resp = c.call("facts.add", map[string]string{"predicate": "likes", "object": " "})
	require.NotNil(t, resp.Error)
	assert.Equal(t, server.CodeInvalidFact, resp.Error.Code)

	resp = c.call("facts.search", "not an object")
	require.NotNil(t, resp.Error)
	assert.Equal(t, server.CodeInvalidParams, resp.Error.Code)

	resp = c.call("facts.subject", map[string]string{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, server.CodeInvalidParams, resp.Error.Code)

	resp = c.call("vector.search", map[string]interface{}{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, server.CodeInvalidParams, resp.Error.Code)

	resp = c.call("memory.learn", map[string]string{"utterance": "I like tea"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, server.CodeUnavailable, resp.Error.Code)

	add := func(subject, predicate, object string) {
		r := c.call("facts.add", map[string]string{"subject": subject, "predicate": predicate, "object": object})
		require.Nil(t, r.Error)
	}
	add("User", "likes", "tea")
	add("User", "lives in", "Lyon")
	var facts []core.Fact
	require.NoError(t, json.Unmarshal(c.call("facts.list", nil).Result, &facts))
	var livesIn core.Fact
	for _, f := range facts {
		if f.Predicate == "lives in" {
			livesIn = f
		}
	}
	resp = c.call("facts.update", map[string]interface{}{"id": livesIn.ID, "predicate": "likes", "objects": []string{"Lyon"}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, server.CodeConflict, resp.Error.Code)
}

func TestServer_RememberAndRecall(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	c := dial(t, srv)

	resp := c.call("memory.remember", map[string]string{"subject": "User", "predicate": "is named", "object": "Paul"})
	require.Nil(t, resp.Error)
	var result memory.RememberResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, memory.OutcomeCreated, result.Outcome)

	resp = c.call("memory.remember", map[string]string{"subject": "User", "predicate": "owns", "object": "a cat"})
	require.Nil(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "Paul", result.Fact.Subject)

	resp = c.call("memory.recall", map[string]string{"utterance": "What is my name?"})
	require.Nil(t, resp.Error)
	var recalled struct {
		Facts   []core.Fact `json:"facts"`
		Context string      `json:"context"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &recalled))
	require.NotEmpty(t, recalled.Facts)
	assert.Equal(t, "is named", recalled.Facts[0].Predicate)
	assert.Contains(t, recalled.Context, "You are talking with Paul.")

	resp = c.call("memory.summary", nil)
	var summary map[string]string
	require.NoError(t, json.Unmarshal(resp.Result, &summary))
	assert.Contains(t, summary["summary"], "About Paul: owns a cat.")

	resp = c.call("facts.subject", map[string]string{"name": "paul"})
	var forPaul []core.Fact
	require.NoError(t, json.Unmarshal(resp.Result, &forPaul))
	assert.Len(t, forPaul, 2)
}

func TestServer_EmbeddingAndVectorSearch(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	c := dial(t, srv)

	require.Nil(t, c.call("facts.add", map[string]string{"predicate": "likes", "object": "tea"}).Error)

	resp := c.call("embedding.generate", map[string]string{"text": "User likes tea"})
	require.Nil(t, resp.Error)
	var emb struct {
		Embedding  []float32 `json:"embedding"`
		Dimensions int       `json:"dimensions"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &emb))
	assert.Equal(t, 256, emb.Dimensions)

	resp = c.call("vector.search", map[string]interface{}{"vector": emb.Embedding, "threshold": 0.9})
	require.Nil(t, resp.Error)
	var scored []memory.ScoredFact
	require.NoError(t, json.Unmarshal(resp.Result, &scored))
	require.Len(t, scored, 1)
	assert.InDelta(t, 1.0, scored[0].Score, 1e-5)

	resp = c.call("cache.status", nil)
	var status memory.CacheStatus
	require.NoError(t, json.Unmarshal(resp.Result, &status))
	assert.Equal(t, memory.CacheStatus{TotalFacts: 1, CachedVectors: 1}, status)

	resp = c.call("embedding.generate", map[string]string{"text": ""})
	require.NotNil(t, resp.Error)
	assert.Equal(t, server.CodeInvalidFact, resp.Error.Code)
}

func TestServer_Learn(t *testing.T) {
	ext := &fakeExtractor{triple: &core.Triple{Subject: "User", Predicate: "lives in", Object: "Lyon"}}
	srv, store := newTestServer(t, ext)
	c := dial(t, srv)

	resp := c.call("memory.learn", map[string]string{"utterance": "I live in Lyon"})
	require.Nil(t, resp.Error)
	assert.Equal(t, 1, store.Len())
	f, ok := store.Find("User", "lives in")
	require.True(t, ok)
	assert.Equal(t, "I live in Lyon", f.Context)

	ext.triple = nil
	resp = c.call("memory.learn", map[string]string{"utterance": "what time is it?"})
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"triple": null}`, string(resp.Result))
	assert.Equal(t, 1, store.Len())
}

func TestServer_Health(t *testing.T) {
	srv, store := newTestServer(t, nil)
	_, err := store.Add(context.Background(), "likes", "tea", "User", "")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Status string             `json:"status"`
		Facts  int                `json:"facts"`
		Cache  memory.CacheStatus `json:"cache"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Facts)
	assert.Equal(t, 1, body.Cache.CachedVectors)
}
