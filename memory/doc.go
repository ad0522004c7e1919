// Package memory provides the long-term fact memory of the assistant.
//
// Facts are subject-predicate-objects records. Exactly one fact exists per
// case-insensitive (subject, predicate) pair; multi-value predicates such as
// "likes" accumulate objects while single-value predicates such as
// "is named" are overwritten.
//
// Architecture:
//   - FactStore: sole owner of the fact collection, serializes every mutation
//     and persists the full collection after each one
//   - EmbeddingCache: fact id -> vector, regenerated whenever fact content changes
//   - Searcher: cosine similarity ranking over a VectorIndex
//   - Manager: write path (duplicate detection) and read path (recall with
//     fallback heuristics)
//
// Backends:
//   - Persister: persist/jsonfile (default), persist/sqlite
//   - VectorIndex: LinearIndex (default), index/chromem
//   - Embedder: embedder/ollama, embedder/onnx, embedder/mock, embedder/memo
//
// Vectors are never persisted. The cache starts empty and Manager.Warmup
// sweeps every stored fact before first use.
package memory
