package jsonfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory/persist/jsonfile"
)

func TestLoad_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "memories.json")
	p := jsonfile.New(path, nil)

	facts, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, facts)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := jsonfile.New(filepath.Join(t.TempDir(), "memories.json"), nil)

	created := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	want := []core.Fact{
		{ID: "1", Subject: "Paul", Predicate: "likes", Objects: []string{"tea", "chocolate"}, IsMultiValue: true, Context: "I like tea", CreatedAt: created, UpdatedAt: created.Add(time.Hour)},
		{ID: "2", Subject: "User", Predicate: "is named", Objects: []string{"Paul"}, CreatedAt: created, UpdatedAt: created},
	}
	require.NoError(t, p.Save(ctx, want))

	got, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Objects, got[i].Objects)
		assert.Equal(t, want[i].IsMultiValue, got[i].IsMultiValue)
		assert.Equal(t, want[i].Context, got[i].Context)
		assert.True(t, want[i].UpdatedAt.Equal(got[i].UpdatedAt))
	}
}

func TestLoad_LegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memories.json")
	legacy := `[
		{"subject": "User", "key": "likes", "value": "tea"},
		{"subject": "User", "predicate": "likes", "object": "coffee"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	facts, err := jsonfile.New(path, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, []string{"tea", "coffee"}, facts[0].Objects)

	// Loading never rewrites the file.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, legacy, string(data))
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memories.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := jsonfile.New(path, nil).Load(context.Background())
	assert.Error(t, err)
}
