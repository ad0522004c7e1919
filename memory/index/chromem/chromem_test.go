package chromem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-memory/memory/index/chromem"
)

func TestIndex_Score(t *testing.T) {
	ctx := context.Background()
	idx, err := chromem.New(0)
	require.NoError(t, err)

	scores, err := idx.Score(ctx, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Empty(t, scores, "empty index")

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1, 0}))
	require.NoError(t, idx.Upsert(ctx, "c", []float32{1, 1, 0}))
	assert.Equal(t, 3, idx.Dimensions())

	scores, err = idx.Score(ctx, []float32{2, 0, 0})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores["a"], 1e-5)
	assert.InDelta(t, 0.0, scores["b"], 1e-5)
	assert.InDelta(t, 0.7071, scores["c"], 1e-3)
}

func TestIndex_SkipsUnscorableVectors(t *testing.T) {
	ctx := context.Background()
	idx, err := chromem.New(3)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}))
	require.NoError(t, idx.Upsert(ctx, "zero", []float32{0, 0, 0}))
	require.NoError(t, idx.Upsert(ctx, "short", []float32{1, 0}))

	scores, err := idx.Score(ctx, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Len(t, scores, 1)
	assert.Contains(t, scores, "a")

	scores, err = idx.Score(ctx, []float32{1, 0})
	require.NoError(t, err)
	assert.Empty(t, scores)

	scores, err = idx.Score(ctx, []float32{0, 0, 0})
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestIndex_UpsertReplacesAndRemove(t *testing.T) {
	ctx := context.Background()
	idx, err := chromem.New(0)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1}))
	require.NoError(t, idx.Upsert(ctx, "a", []float32{0, 1}))

	scores, err := idx.Score(ctx, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scores["a"], 1e-5)

	// A degraded vector evicts the previous one.
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 0}))
	require.NoError(t, idx.Remove(ctx, "a"))
	require.NoError(t, idx.Remove(ctx, "missing"))

	scores, err = idx.Score(ctx, []float32{0, 1})
	require.NoError(t, err)
	assert.Empty(t, scores)
}
