package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-memory/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	c, err := config.Load("")
	require.NoError(t, err)
	c.Storage.Path = filepath.Join(t.TempDir(), "memories.json")
	return c
}

func TestNewRuntime_Reload(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		path    string
		index   string
	}{
		{"json linear", "json", "memories.json", "linear"},
		{"sqlite chromem", "sqlite", "facts.db", "chromem"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := testConfig(t)
			c.Storage.Backend = tt.backend
			c.Storage.Path = filepath.Join(t.TempDir(), tt.path)
			c.Embedding.Index = tt.index

			rt, err := newRuntime(ctx, c)
			require.NoError(t, err)
			_, err = rt.store.Add(ctx, "likes", "tea", "User", "")
			require.NoError(t, err)
			rt.Close()

			rt, err = newRuntime(ctx, c)
			require.NoError(t, err)
			defer rt.Close()
			assert.Equal(t, 1, rt.store.Len())
			st := rt.manager.Warmup(ctx)
			assert.Equal(t, 1, st.CachedVectors)

			got, err := rt.manager.Recall(ctx, "User likes tea")
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}
}

func TestNewRuntime_UnknownBackends(t *testing.T) {
	ctx := context.Background()

	c := testConfig(t)
	c.Embedding.Provider = "word2vec"
	_, err := newRuntime(ctx, c)
	assert.ErrorContains(t, err, "embedding provider")

	c = testConfig(t)
	c.Embedding.Index = "faiss"
	_, err = newRuntime(ctx, c)
	assert.ErrorContains(t, err, "vector index")

	c = testConfig(t)
	c.Storage.Backend = "postgres"
	_, err = newRuntime(ctx, c)
	assert.ErrorContains(t, err, "storage backend")

	c = testConfig(t)
	c.Generation.Provider = "gpt"
	_, err = newRuntime(ctx, c)
	assert.ErrorContains(t, err, "generation provider")
}

func TestCommands_FactsAndRecall(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yml")
	store := filepath.Join(dir, "memories.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  path: "+store+"\n"), 0o644))

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
		require.NoError(t, rootCmd.Execute())
		return out.String()
	}

	assert.Contains(t, run("facts", "add", "User", "is named", "Paul"), "Paul")
	run("facts", "add", "User", "likes", "tea")
	run("facts", "add", "User", "likes", "coffee")

	list := run("facts", "list")
	assert.Contains(t, list, "SUBJECT")
	assert.Contains(t, list, "tea, coffee")

	assert.Contains(t, run("facts", "summary"), "About Paul: likes tea and coffee.")
	assert.Contains(t, run("recall", "who am I"), "You are talking with Paul.")

	assert.Contains(t, run("status"), "user:     Paul")

	migrated := run("migrate")
	assert.Contains(t, migrated, "backup:")
	assert.Contains(t, migrated, "output:  2 facts")

	_, err := os.Stat(store)
	assert.NoError(t, err)
	backups, err := filepath.Glob(filepath.Join(dir, "memories.backup.*.json"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
