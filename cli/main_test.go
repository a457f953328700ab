package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gateway "github.com/awakeconnect/awake/apigateway"
	"github.com/awakeconnect/awake/cache"
	"github.com/awakeconnect/awake/config"
	"github.com/awakeconnect/awake/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "cli-test-secret-0123456789"

// runCLI executes the root command with fresh flag values and captured output.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	configPath, envFile, debugFlag = "", "", false
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	code = run(args)
	return code, out.String(), errOut.String()
}

// writeFixtures writes a config.yaml pointing at a fresh sqlite file and an empty env file.
func writeFixtures(t *testing.T) (cfgPath, envPath string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_PATH", "")
	cfgPath = filepath.Join(dir, "config.yaml")
	envPath = filepath.Join(dir, ".env")
	cfg := "database_driver: sqlite\ndatabase_path: " + filepath.Join(dir, "awake.db") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	require.NoError(t, os.WriteFile(envPath, nil, 0o600))
	return cfgPath, envPath
}

func TestCountsCommand(t *testing.T) {
	cfgPath, envPath := writeFixtures(t)

	code, stdout, stderr := runCLI(t, "counts", "--config", cfgPath, "--env-file", envPath)
	assert.Equal(t, 0, code, "count failures are reported, not escalated")
	assert.Empty(t, stdout)
	assert.True(t, strings.HasPrefix(stderr, "Error: count users:"), stderr)

	code, _, stderr = runCLI(t, "migrate", "--config", cfgPath, "--env-file", envPath)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr = runCLI(t, "counts", "--config", cfgPath, "--env-file", envPath)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Current counts:\nUsers: 0\nApplications: 0\n", stdout)
	assert.Empty(t, stderr)
}

func TestAuthCheckCommand(t *testing.T) {
	_, envPath := writeFixtures(t)

	t.Setenv("JWT_SECRET", testSecret)
	code, stdout, _ := runCLI(t, "auth-check", "--env-file", envPath)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Auth middleware loaded successfully!")

	t.Setenv("JWT_SECRET", "")
	code, stdout, stderr := runCLI(t, "auth-check", "--env-file", envPath)
	assert.Equal(t, 1, code)
	assert.Equal(t, "Loading auth middleware with JWT_SECRET from .env...\n", stdout)
	assert.Contains(t, stderr, "Failed to load auth middleware:\nFATAL: JWT_SECRET environment variable is required.")
}

func TestMissingExplicitEnvFile(t *testing.T) {
	code, _, stderr := runCLI(t, "stats", "--env-file", filepath.Join(t.TempDir(), "nope.env"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error: load env file")
}

func TestEnvCheckCommand(t *testing.T) {
	_, envPath := writeFixtures(t)
	testEnv := filepath.Join(t.TempDir(), ".env.test")
	require.NoError(t, os.WriteFile(testEnv, []byte("AWAKE_CLI_ZETA=1\nAWAKE_CLI_ALPHA=2\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("AWAKE_CLI_ZETA")
		os.Unsetenv("AWAKE_CLI_ALPHA")
	})

	code, stdout, stderr := runCLI(t, "env-check", testEnv, "--env-file", envPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "(2 keys)\n   AWAKE_CLI_ALPHA\n   AWAKE_CLI_ZETA\n")
	assert.Contains(t, stdout, "Started at ")
	assert.Equal(t, "2", os.Getenv("AWAKE_CLI_ALPHA"))

	code, stdout, _ = runCLI(t, "env-check", filepath.Join(t.TempDir(), "missing.env"), "--env-file", envPath)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "(0 keys)")
}

func Test_durationFromMs(t *testing.T) {
	tests := []struct {
		name string
		ms   int
		def  time.Duration
		want time.Duration
	}{
		{"zero uses default", 0, time.Second, time.Second},
		{"negative uses default", -5, time.Second, time.Second},
		{"positive", 250, time.Second, 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := durationFromMs(tt.ms, tt.def); got != tt.want {
				t.Fatalf("durationFromMs(%d) = %v, want %v", tt.ms, got, tt.want)
			}
		})
	}
}

func Test_configureLogger(t *testing.T) {
	var out bytes.Buffer
	configureLogger(config.Config{LogSamplingTickMs: 40}, &out)
	t.Cleanup(func() { logrusLogger.Out = os.Stderr })

	logrusLogger.Debug("hidden")
	logrusLogger.Info("visible")

	if strings.Contains(out.String(), "hidden") {
		t.Fatalf("debug entry written at info level: %s", out.String())
	}
	if !strings.Contains(out.String(), `"msg":"visible"`) {
		t.Fatalf("info entry missing from writer: %q", out.String())
	}
	if logSampling.Tick != 40*time.Millisecond || logSampling.After != defaultLogSamplingAfter {
		t.Fatalf("logSampling = %+v", logSampling)
	}

	out.Reset()
	configureLogger(config.Config{IsDebug: true}, &out)
	logrusLogger.Debug("now shown")
	if !strings.Contains(out.String(), "now shown") {
		t.Fatalf("debug entry missing in debug mode: %q", out.String())
	}
}

func TestGetMainEngine(t *testing.T) {
	db, err := store.OpenFromConfig("", filepath.Join(t.TempDir(), "engine.db"), "sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx, db))
	s := store.New(db)
	auth, err := gateway.New(testSecret)
	require.NoError(t, err)

	admin := &store.User{Email: "admin@awake.com", Role: store.RoleAdmin}
	donor := &store.User{Email: "donor@awake.com", Role: store.RoleDonor}
	require.NoError(t, s.CreateUser(ctx, admin))
	require.NoError(t, s.CreateUser(ctx, donor))

	adminToken, err := auth.Sign(admin.ID, admin.Role, admin.Email)
	require.NoError(t, err)
	donorToken, err := auth.Sign(donor.ID, donor.Role, donor.Email)
	require.NoError(t, err)

	app, err := GetMainEngine(engineDeps{
		Store:    s,
		Cache:    cache.New(cache.Options{}, logrusLogger),
		Auth:     auth,
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"health", "/health", "", http.StatusOK},
		{"public statistics", "/api/statistics", "", http.StatusOK},
		{"admin counts without token", "/api/admin/counts", "", http.StatusUnauthorized},
		{"admin counts as donor", "/api/admin/counts", donorToken, http.StatusForbidden},
		{"admin counts as admin", "/api/admin/counts", adminToken, http.StatusOK},
		{"metrics", "/metrics", "", http.StatusOK},
		{"unknown route", "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/counts", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var got struct {
		Success bool `json:"success"`
		Data    struct {
			Users        int64 `json:"users"`
			Applications int64 `json:"applications"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Success)
	assert.Equal(t, int64(2), got.Data.Users)
	assert.Equal(t, int64(0), got.Data.Applications)
}

func TestStatsCommand(t *testing.T) {
	cfgPath, envPath := writeFixtures(t)
	code, _, stderr := runCLI(t, "migrate", "--config", cfgPath, "--env-file", envPath)
	require.Equal(t, 0, code, stderr)

	code, stdout, _ := runCLI(t, "stats", "--config", cfgPath, "--env-file", envPath)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Current database statistics:\nStudents: 0\n")

	code, stdout, _ = runCLI(t, "stats", "Donors", "users", "--config", cfgPath, "--env-file", envPath)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Donors: 0\nUsers: 0\n", stdout)

	code, _, stderr = runCLI(t, "stats", "pets", "--config", cfgPath, "--env-file", envPath)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `Error: unknown collection "pets"`)
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	code, _, stderr := runCLI(t, "counts", "--no-such-flag")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown flag")
}
