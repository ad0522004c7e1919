package memo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-memory/memory/embedder/memo"
)

type counter struct {
	calls int
	err   error
}

func (c *counter) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *counter) Dimensions() int { return 2 }

func TestMemoEmbedder_CachesVectors(t *testing.T) {
	ctx := context.Background()
	inner := &counter{}
	m, err := memo.New(inner, 16)
	require.NoError(t, err)
	defer m.Close()

	first, err := m.Embed(ctx, "who am i")
	require.NoError(t, err)
	second, err := m.Embed(ctx, "who am i")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 2, m.Dimensions())

	// Callers get their own copy.
	second[0] = 42
	third, err := m.Embed(ctx, "who am i")
	require.NoError(t, err)
	assert.Equal(t, first, third)

	_, err = m.Embed(ctx, "something else")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestMemoEmbedder_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &counter{err: errors.New("down")}
	m, err := memo.New(inner, 0)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Embed(ctx, "hello")
	assert.Error(t, err)
	inner.err = nil
	_, err = m.Embed(ctx, "hello")
	assert.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
