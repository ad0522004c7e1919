package migrate_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory/migrate"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

const mixedShapes = `[
	{"subject": "User", "key": "likes", "value": "tea", "createdAt": 1700000000000},
	{"subject": "user", "predicate": "likes", "object": "coffee", "createdAt": "2024-01-02T00:00:00Z"},
	{"subject": "User", "predicate": "Likes", "objects": ["Tea", "chocolate"], "isMultiValue": true},
	{"subject": "User", "predicate": "lives in", "object": "Paris", "updatedAt": "2024-01-01T00:00:00Z"},
	{"subject": "User", "predicate": "lives in", "object": "London", "updatedAt": "2024-03-01T00:00:00Z"},
	{"subject": "User", "predicate": "", "object": "x"},
	{"subject": "User", "key": "likes"},
	42
]`

func TestNormalize_MergesAllShapes(t *testing.T) {
	facts, report, err := migrate.Normalize([]byte(mixedShapes), core.DefaultVocabulary(), now)
	require.NoError(t, err)
	require.Len(t, facts, 2)

	likes := facts[0]
	assert.Equal(t, "User", likes.Subject)
	assert.Equal(t, "likes", likes.Predicate)
	assert.True(t, likes.IsMultiValue)
	assert.Equal(t, []string{"tea", "coffee", "chocolate"}, likes.Objects)
	assert.True(t, likes.CreatedAt.Equal(time.UnixMilli(1700000000000)), "earliest createdAt is kept")
	assert.NotEmpty(t, likes.ID)

	livesIn := facts[1]
	assert.False(t, livesIn.IsMultiValue)
	assert.Equal(t, []string{"London"}, livesIn.Objects)

	assert.Equal(t, 8, report.Input)
	assert.Equal(t, 2, report.Output)
	assert.Equal(t, 3, report.Merged)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, map[migrate.Shape]int{
		migrate.ShapeKeyValue:     1,
		migrate.ShapeSingleObject: 3,
		migrate.ShapeMultiObject:  1,
	}, report.Shapes)
}

func TestNormalize_SingleValueKeepsLastObject(t *testing.T) {
	data := `[{"subject": "User", "predicate": "lives in", "objects": ["Paris", "Lyon"], "isMultiValue": false}]`
	facts, _, err := migrate.Normalize([]byte(data), core.DefaultVocabulary(), now)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, []string{"Lyon"}, facts[0].Objects)
	assert.True(t, facts[0].CreatedAt.Equal(now), "missing timestamps default to now")
}

func TestNormalize_TieGoesToLaterRecord(t *testing.T) {
	data := `[
		{"id": "a", "subject": "User", "predicate": "is named", "object": "Paul", "updatedAt": "2024-01-01T00:00:00Z"},
		{"id": "b", "subject": "User", "predicate": "is named", "object": "Paula", "updatedAt": "2024-01-01T00:00:00Z"}
	]`
	facts, _, err := migrate.Normalize([]byte(data), core.DefaultVocabulary(), now)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "a", facts[0].ID)
	assert.Equal(t, []string{"Paula"}, facts[0].Objects)
}

func TestNormalize_Errors(t *testing.T) {
	facts, _, err := migrate.Normalize([]byte("  "), core.DefaultVocabulary(), now)
	assert.NoError(t, err)
	assert.Empty(t, facts)

	_, _, err = migrate.Normalize([]byte(`{"subject": "User"}`), core.DefaultVocabulary(), now)
	assert.Error(t, err)

	_, _, err = migrate.Normalize([]byte(`[{"subject": `), core.DefaultVocabulary(), now)
	assert.Error(t, err)
}

func TestMigrateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memories.json")
	require.NoError(t, os.WriteFile(path, []byte(mixedShapes), 0o644))

	report, err := migrate.MigrateFile(path, core.DefaultVocabulary(), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "memories.backup.1717200000000.json"), report.BackupPath)

	backup, err := os.ReadFile(report.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, mixedShapes, string(backup))

	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	facts, second, err := migrate.Normalize(rewritten, core.DefaultVocabulary(), now)
	require.NoError(t, err)
	assert.Len(t, facts, 2)
	assert.Zero(t, second.Merged)
	assert.Equal(t, 2, second.Shapes[migrate.ShapeMultiObject])
}

func TestMigrateFile_Missing(t *testing.T) {
	_, err := migrate.MigrateFile(filepath.Join(t.TempDir(), "nope.json"), core.DefaultVocabulary(), now)
	assert.Error(t, err)
}

func TestBackupPath(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, filepath.Join("data", "memories.backup.1700000000123.json"), migrate.BackupPath(filepath.Join("data", "memories.json"), at))
	assert.Equal(t, "facts.backup.1700000000123", migrate.BackupPath("facts", at))
}

func TestEncode_Nil(t *testing.T) {
	out, err := migrate.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestNormalize_LegacyAndCurrentShapeMerge(t *testing.T) {
	data := `[
		{"subject": "User", "key": "likes", "value": "tea"},
		{"subject": "User", "predicate": "likes", "objects": ["coffee"], "isMultiValue": true}
	]`
	facts, report, err := migrate.Normalize([]byte(data), core.DefaultVocabulary(), now)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "User", facts[0].Subject)
	assert.Equal(t, "likes", facts[0].Predicate)
	assert.ElementsMatch(t, []string{"tea", "coffee"}, facts[0].Objects)
	assert.Equal(t, 1, report.Merged)
}
