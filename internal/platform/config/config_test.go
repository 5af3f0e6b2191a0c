package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "formcheck/pkg/domain-errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://viacep.com.br", cfg.Lookup.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 18, cfg.Form.MinAge)
	assert.Equal(t, "lines", cfg.Form.Input)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("FORMCHECK_LOOKUP_TIMEOUT", "750ms")
	t.Setenv("FORMCHECK_CACHE_BACKEND", "redis")
	t.Setenv("FORMCHECK_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("FORMCHECK_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Lookup.Timeout)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
lookup:
  base_url: http://localhost:8081
cache:
  backend: none
form:
  input: prompt
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8081", cfg.Lookup.BaseURL)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
	assert.Equal(t, "prompt", cfg.Form.Input)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"FORMCHECK_CACHE_BACKEND": "memcached"}},
		{"redis without url", map[string]string{"FORMCHECK_CACHE_BACKEND": "redis"}},
		{"postgres without dsn", map[string]string{"FORMCHECK_CACHE_BACKEND": "postgres"}},
		{"bad base url", map[string]string{"FORMCHECK_LOOKUP_BASE_URL": "not a url"}},
		{"unknown log level", map[string]string{"FORMCHECK_LOG_LEVEL": "trace"}},
		{"unknown input mode", map[string]string{"FORMCHECK_FORM_INPUT": "gui"}},
		{"missing catalog file", map[string]string{"FORMCHECK_MESSAGES_CATALOG": "/nonexistent/catalog.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidConfig))
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidConfig))
}
