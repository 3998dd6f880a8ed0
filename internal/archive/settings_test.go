package archive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docarchive/internal/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "archives", cfg.Name)
	assert.True(t, cfg.InterceptDelete)
	assert.True(t, cfg.RestoreOriginalID)
	assert.Equal(t, []string{"roles", "role-assignment"}, cfg.Exclude)
	assert.True(t, cfg.Excludes("roles"))
	assert.False(t, cfg.Excludes("things"))
}

func TestParseOptions(t *testing.T) {
	t.Run("all keys", func(t *testing.T) {
		opts, err := ParseOptions(map[string]any{
			"name":              "trash",
			"overrideRemove":    false,
			"exclude":           []any{"audit"},
			"restoreOriginalId": false,
		})
		require.NoError(t, err)
		require.NotNil(t, opts.Name)
		assert.Equal(t, "trash", *opts.Name)
		require.NotNil(t, opts.InterceptDelete)
		assert.False(t, *opts.InterceptDelete)
		assert.Equal(t, []string{"audit"}, opts.Exclude)
		require.NotNil(t, opts.RestoreOriginalID)
		assert.False(t, *opts.RestoreOriginalID)
	})

	t.Run("empty map leaves everything unset", func(t *testing.T) {
		opts, err := ParseOptions(map[string]any{})
		require.NoError(t, err)
		assert.Nil(t, opts.Name)
		assert.Nil(t, opts.InterceptDelete)
		assert.Nil(t, opts.Exclude)
		assert.Nil(t, opts.RestoreOriginalID)
	})

	invalid := []struct {
		name  string
		raw   map[string]any
		field string
	}{
		{"name not a string", map[string]any{"name": 42}, "name"},
		{"bad collection name", map[string]any{"name": "a/b"}, "name"},
		{"override not a bool", map[string]any{"overrideRemove": "yes"}, "overrideRemove"},
		{"exclude not a list", map[string]any{"exclude": "roles"}, "exclude"},
		{"exclude entry not a string", map[string]any{"exclude": []any{"roles", 3}}, "exclude"},
		{"exclude entry empty", map[string]any{"exclude": []string{" "}}, "exclude"},
		{"unknown key", map[string]any{"archiveName": "x"}, "archiveName"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseOptions(tc.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestSettings_Configure(t *testing.T) {
	s := NewSettings(DefaultConfig())

	name := "trash"
	cfg, err := s.Configure(Options{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "trash", cfg.Name)
	assert.True(t, cfg.InterceptDelete, "unspecified options are kept")
	assert.Equal(t, DefaultExclude, cfg.Exclude)

	cfg, err = s.Configure(Options{Exclude: []string{}})
	require.NoError(t, err)
	assert.Empty(t, cfg.Exclude)

	bad := ""
	_, err = s.Configure(Options{Name: &bad})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, "trash", s.Get().Name, "rejected options leave the config unchanged")
}

func TestSettings_GetReturnsCopy(t *testing.T) {
	s := NewSettings(DefaultConfig())

	cfg := s.Get()
	cfg.Exclude[0] = "mutated"
	cfg.Name = "mutated"

	again := s.Get()
	assert.Equal(t, "roles", again.Exclude[0])
	assert.Equal(t, DefaultName, again.Name)
}

func TestSettings_ConcurrentAccess(t *testing.T) {
	s := NewSettings(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(on bool) {
			defer wg.Done()
			_, _ = s.Configure(Options{InterceptDelete: &on})
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			cfg := s.Get()
			assert.Equal(t, DefaultName, cfg.Name)
		}()
	}
	wg.Wait()
}
