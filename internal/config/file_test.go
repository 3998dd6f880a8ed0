package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docarchive/internal/archive"
	"docarchive/internal/model"
)

func writeFile(t *testing.T, dir string, name string, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadArchiveFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("top level keys", func(t *testing.T) {
		path := writeFile(t, dir, "flat.toml", `
name = "bin"
overrideRemove = false
exclude = ["audit"]
`)
		opts, err := LoadArchiveFile(path)
		require.NoError(t, err)
		require.NotNil(t, opts.Name)
		assert.Equal(t, "bin", *opts.Name)
		require.NotNil(t, opts.InterceptDelete)
		assert.False(t, *opts.InterceptDelete)
		assert.Equal(t, []string{"audit"}, opts.Exclude)
		assert.Nil(t, opts.RestoreOriginalID)
	})

	t.Run("archive table", func(t *testing.T) {
		path := writeFile(t, dir, "table.toml", `
[archive]
restoreOriginalId = false
`)
		opts, err := LoadArchiveFile(path)
		require.NoError(t, err)
		require.NotNil(t, opts.RestoreOriginalID)
		assert.False(t, *opts.RestoreOriginalID)
	})

	t.Run("wrong type", func(t *testing.T) {
		path := writeFile(t, dir, "bad.toml", `overrideRemove = "yes"`)
		_, err := LoadArchiveFile(path)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeFile(t, dir, "unknown.toml", `collection = "x"`)
		_, err := LoadArchiveFile(path)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("syntax error", func(t *testing.T) {
		path := writeFile(t, dir, "syntax.toml", `name = `)
		_, err := LoadArchiveFile(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadArchiveFile(filepath.Join(dir, "nope.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestApplyArchiveFile(t *testing.T) {
	settings := archive.NewSettings(archive.DefaultConfig())
	path := writeFile(t, t.TempDir(), "archive.toml", `exclude = []`)

	cfg, err := ApplyArchiveFile(path, settings)
	require.NoError(t, err)
	assert.Empty(t, cfg.Exclude)
	assert.Equal(t, archive.DefaultName, cfg.Name)
	assert.Empty(t, settings.Get().Exclude)
}
