package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/awakeconnect/awake/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(Options{
		ConfigPath: writeFile(t, "config.yaml", "{}\n"),
		EnvFile:    writeFile(t, ".env", ""),
		Getenv:     mapEnv(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultDatabasePath, cfg.DatabasePath)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.False(t, cfg.EnableRedis)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	yml := `database_path: from-yaml.db
redis_url: redis://yaml:6379
enable_redis: true
cache_ttl_seconds: 60
debug: true
`
	cfg, err := Load(Options{
		ConfigPath: writeFile(t, "config.yaml", yml),
		EnvFile:    writeFile(t, ".env", ""),
		Getenv: mapEnv(map[string]string{
			"DATABASE_PATH":     "from-env.db",
			"JWT_SECRET":        "  spaced secret  ",
			"CACHE_TTL_SECONDS": "120",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DatabasePath)
	assert.Equal(t, "redis://yaml:6379", cfg.RedisURL)
	assert.True(t, cfg.EnableRedis)
	assert.True(t, cfg.IsDebug)
	assert.Equal(t, 120, cfg.CacheTTLSeconds)
	assert.Equal(t, "  spaced secret  ", cfg.JWTSecret)
}

func TestLoad_EnvFilePopulatesProcess(t *testing.T) {
	envFile := writeFile(t, ".env", "AWAKE_CFG_TEST_DB=dotenv.db\n")
	t.Cleanup(func() { _ = os.Unsetenv("AWAKE_CFG_TEST_DB") })

	_, err := Load(Options{ConfigPath: writeFile(t, "config.yaml", "{}"), EnvFile: envFile, Getenv: mapEnv(nil)})
	require.NoError(t, err)
	assert.Equal(t, "dotenv.db", os.Getenv("AWAKE_CFG_TEST_DB"))
}

func TestLoad_EnvFileReachesInjectedGetenv(t *testing.T) {
	// present but empty in the process, so the file never lands there
	for _, k := range []string{"JWT_SECRET", "DATABASE_PATH", "HTTP_ADDR"} {
		t.Setenv(k, "")
	}
	envFile := writeFile(t, ".env", "JWT_SECRET=from-dotenv-file-secret\nDATABASE_PATH=dotenv.db\nHTTP_ADDR=:9000\n")

	cfg, err := Load(Options{
		ConfigPath: writeFile(t, "config.yaml", "{}"),
		EnvFile:    envFile,
		Getenv:     mapEnv(map[string]string{"HTTP_ADDR": ":7000"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv-file-secret", cfg.JWTSecret)
	assert.Equal(t, "dotenv.db", cfg.DatabasePath)
	assert.Equal(t, ":7000", cfg.HTTPAddr, "injected values win over the file")
}

func TestLoad_Errors(t *testing.T) {
	empty := writeFile(t, "config.yaml", "{}")
	tests := []struct {
		name string
		opts Options
	}{
		{"bad yaml", Options{ConfigPath: writeFile(t, "bad.yaml", "database_path: [unterminated"), Getenv: mapEnv(nil)}},
		{"missing explicit config", Options{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"), Getenv: mapEnv(nil)}},
		{"missing explicit env file", Options{ConfigPath: empty, EnvFile: filepath.Join(t.TempDir(), "absent.env"), Getenv: mapEnv(nil)}},
		{"bad bool", Options{ConfigPath: empty, Getenv: mapEnv(map[string]string{"ENABLE_REDIS": "maybe"})}},
		{"bad int", Options{ConfigPath: empty, Getenv: mapEnv(map[string]string{"CACHE_TTL_SECONDS": "soon"})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrConfig), "got %v", err)
		})
	}
}

func TestFirstExistingPath(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, "config.yaml", "{}")
	assert.Equal(t, file, FirstExistingPath("", dir, filepath.Join(dir, "none"), file))
	assert.Equal(t, "", FirstExistingPath(dir))
}
