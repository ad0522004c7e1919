package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Storage.Backend)
	assert.Equal(t, "data/memories.json", cfg.Storage.Path)
	assert.Equal(t, "bow", cfg.Embedding.Provider)
	assert.Equal(t, "linear", cfg.Embedding.Index)
	assert.Equal(t, "ollama", cfg.Generation.Provider)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, memory.DefaultConfig, cfg.ManagerConfig())
	assert.Equal(t, *core.DefaultVocabulary(), cfg.Vocabulary)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NIM_MEMORY_STORAGE_PATH", "/var/lib/nim/facts.json")
	t.Setenv("NIM_MEMORY_MEMORY_MAX_RESULTS", "3")
	t.Setenv("NIM_MEMORY_EMBEDDING_INDEX", "chromem")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/nim/facts.json", cfg.Storage.Path)
	assert.Equal(t, 3, cfg.Memory.MaxResults)
	assert.Equal(t, "chromem", cfg.Embedding.Index)
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: sqlite
  path: facts.db
vocabulary:
  generic_subject: Moi
  multi_value_predicates: [aime, collectionne]
  categories:
    - name: sport
      keywords: [sport, sports]
      terms: [football, tennis]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "facts.db", cfg.Storage.Path)
	assert.Equal(t, "bow", cfg.Embedding.Provider, "untouched sections keep their defaults")

	v := cfg.Vocabulary
	assert.Equal(t, "Moi", v.GenericSubject)
	assert.Equal(t, []string{"aime", "collectionne"}, v.MultiValuePredicates)
	require.Len(t, v.Categories, 1)
	assert.Equal(t, []string{"football", "tennis"}, v.Categories[0].Terms)
	assert.Equal(t, core.DefaultVocabulary().IdentityPredicates, v.IdentityPredicates)
	assert.True(t, v.IsMultiValue("Aime"))
	assert.False(t, v.IsMultiValue("likes"))
}

func TestLoad_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".nim-memory"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".nim-memory", "config.yml"), []byte("server:\n  addr: \":9090\"\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
