package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PRESENCE_WINDOW", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "socialmedia", cfg.MongoDatabase)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Minute, cfg.PresenceWindow)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: \"9000\"\nADMIN_TOKEN: from-file\nALLOWED_ORIGINS: \"https://a.example, https://b.example\"\n"), 0o600))

	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "from-file", cfg.AdminToken)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidPresenceWindow(t *testing.T) {
	t.Setenv("PRESENCE_WINDOW", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tcases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing postgres", cfg: Config{JWTSecret: "s"}, wantErr: true},
		{name: "no identity source", cfg: Config{PostgresConnStr: "dsn"}, wantErr: true},
		{name: "jwt in development", cfg: Config{PostgresConnStr: "dsn", JWTSecret: "s", Env: "development"}},
		{name: "jwt only in production", cfg: Config{PostgresConnStr: "dsn", JWTSecret: "s", Env: "production"}, wantErr: true},
		{name: "firebase in production", cfg: Config{PostgresConnStr: "dsn", FirebaseCredentialsPath: "/creds.json", Env: "production"}},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
