package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStoreEmptyStart(t *testing.T) {
	s, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "", s.GetString("general.editor"))
	assert.False(t, s.GetBool("general.verbose"))
	assert.Equal(t, 0, s.GetInt("search.limit"))
}

func TestConfigStoreLoadsFlattenedTables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[general]
verbose = true

[search]
type = "messages"
limit = 50
`), 0600))

	s, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.True(t, s.GetBool("general.verbose"))
	assert.Equal(t, "messages", s.GetString("search.type"))
	assert.Equal(t, 50, s.GetInt("search.limit"))
}

func TestConfigStoreSetAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewConfigStore(dir)
	require.NoError(t, err)

	s.Set("general.verbose", true)
	s.Set("merge.output", "merged.db")
	require.NoError(t, s.Save())

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.True(t, reloaded.GetBool("general.verbose"))
	assert.Equal(t, "merged.db", reloaded.GetString("merge.output"))
}

func TestConfigStoreEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[search]
type = "messages"
`), 0600))
	t.Setenv("TALKVAULT_SEARCH_TYPE", "contacts")
	t.Setenv("TALKVAULT_VERBOSE", "true")

	s, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "contacts", s.GetString("search.type"))
	assert.True(t, s.GetBool("general.verbose"))
}

func TestConfigStoreWrongTypeIsZeroValue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[search]
limit = "many"
`), 0600))

	s, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 0, s.GetInt("search.limit"))
	assert.False(t, s.GetBool("search.limit"))
}

func TestConfigStoreMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [toml"), 0600))

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}
