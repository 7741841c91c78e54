package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{Path: "/some/path"},
		Server: ServerConfig{RateLimitPerMinute: 100},
		Auth: AuthConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 720 * time.Hour,
			LoginRatePerMinute:   10,
		},
	}
}

// isolateEnv clears every variable Load reads so the host environment
// cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "DATA_PATH", "SERVER_PORT", "SERVER_READ_TIMEOUT",
		"SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT", "CORS_ALLOWED_ORIGINS", "HTTP_RATE_LIMIT",
		"ACCESS_TOKEN_DURATION", "REFRESH_TOKEN_DURATION", "LOGIN_RATE_PER_MINUTE",
		"SHELF_SETTLE_DELAY", "SHELF_DEMO_SEED", "ACTIVITY_BUFFER", "ACTIVITY_RETRIES", "CATALOG_PATH",
	} {
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, prev) }) //nolint:errcheck // Test cleanup
		} else {
			t.Cleanup(func() { os.Unsetenv(key) }) //nolint:errcheck // Test cleanup
		}
		os.Unsetenv(key) //nolint:errcheck // Test setup
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Environments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_LogLevels(t *testing.T) {
	for level, valid := range map[string]bool{"debug": true, "INFO": true, "warn": true, "error": true, "trace": false, "": false} {
		cfg := validConfig()
		cfg.Logger.Level = level
		assert.Equal(t, valid, cfg.Validate() == nil, "level %q", level)
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data path cannot be empty")
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, filepath.Join(homeDir, "Shelfwise", "data"), cfg.Data.Path)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 720*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, 3*time.Second, cfg.Shelf.SettleDelay)
	assert.False(t, cfg.Shelf.DemoSeed)
	assert.Equal(t, 256, cfg.Activity.Buffer)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SHELF_SETTLE_DELAY", "10s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load([]string{"-port", "9100", "-settle-delay", "1s", "-data-path", "/srv/shelfwise"})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logger.Level, "env applies when no flag is passed")
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Shelf.SettleDelay)
	assert.Equal(t, "/srv/shelfwise", cfg.Data.Path)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# local overrides\nENV=staging\nLOG_LEVEL=debug\nSHELF_DEMO_SEED=true\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "error", cfg.Logger.Level)
	assert.True(t, cfg.Shelf.DemoSeed)
}

func TestLoad_InvalidDuration(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ACCESS_TOKEN_DURATION", "soon")

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	isolateEnv(t)

	_, err := Load([]string{"-env", "qa"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup

	got, err := expandPath("~/my-data", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "my-data"), got)

	got, err = expandPath("/absolute/path/../data", "")
	require.NoError(t, err)
	assert.Equal(t, "/absolute/data", got)

	got, err = expandPath("relative/path", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))

	got, err = expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)
}
