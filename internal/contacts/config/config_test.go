package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"GRPC_PORT", "HTTP_PORT", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"KAFKA_BROKERS", "TOPIC", "CONSUMER_GROUP", "AUTH_MODE", "JWT_SECRET", "AUTH_URL", "AUTH_API_KEY",
	"AUTH_TIMEOUT", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CANDIDATE_TTL", "ALLOWED_ORIGINS",
	"DETAILED_ERROR_STATUS",
}

// clearEnv unsets the override variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Bundled(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, 5*time.Minute, cfg.CandidateTTL)
	assert.False(t, cfg.DetailedErrorStatus)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=contacts sslmode=disable", cfg.Database().DSN())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "DB_HOST: db\nDB_NAME: contacts\nJWT_SECRET: s\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, "contacts", cfg.Topic)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, 5*time.Second, cfg.AuthTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "DB_HOST: localhost\nDB_NAME: contacts\nJWT_SECRET: file-secret\nHTTP_PORT: 8080\n")
	t.Setenv("DB_HOST", "postgres.internal")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CANDIDATE_TTL", "90s")
	t.Setenv("DETAILED_ERROR_STATUS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres.internal", cfg.DBHost)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.DetailedErrorStatus)
	assert.Equal(t, 90*time.Second, cfg.CandidateTTL)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "jwt mode without secret",
			content: "DB_HOST: db\nDB_NAME: contacts\n",
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "remote mode without url",
			content: "DB_HOST: db\nDB_NAME: contacts\nAUTH_MODE: remote\n",
			wantErr: "AUTH_URL is required",
		},
		{
			name:    "unknown auth mode",
			content: "DB_HOST: db\nDB_NAME: contacts\nAUTH_MODE: saml\n",
			wantErr: `unknown AUTH_MODE "saml"`,
		},
		{
			name:    "missing database",
			content: "JWT_SECRET: s\n",
			wantErr: "DB_HOST and DB_NAME are required",
		},
		{
			name:    "bad port override",
			content: "DB_HOST: db\nDB_NAME: contacts\nJWT_SECRET: s\n",
			env:     map[string]string{"DB_PORT": "five"},
			wantErr: `invalid DB_PORT "five"`,
		},
		{
			name:    "bad flag override",
			content: "DB_HOST: db\nDB_NAME: contacts\nJWT_SECRET: s\n",
			env:     map[string]string{"DETAILED_ERROR_STATUS": "sometimes"},
			wantErr: `invalid DETAILED_ERROR_STATUS "sometimes"`,
		},
		{
			name:    "malformed yaml",
			content: "DB_HOST: [db\n",
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPath(t *testing.T) {
	t.Setenv("CONTACTS_CONFIG", "/etc/contacts.yaml")
	assert.Equal(t, "/etc/contacts.yaml", Path())

	t.Setenv("CONTACTS_CONFIG", "")
	assert.Equal(t, filepath.Join("internal", "contacts", "config", "config.yaml"), Path())
}
