package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
env: dev
http:
  port: "8081"
auth:
  addr: http://identity:50081
  timeout: 2s
routes:
  allow_list:
    - /auth/login
    - /auth/register
    - /public/**
upstreams:
  identity: http://identity:50081
  posts: http://posts:50082
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "0.0.0.0:8081", cfg.HTTP.Addr())
	require.Equal(t, "http://identity:50081", cfg.Auth.Addr)
	require.Equal(t, 2*time.Second, cfg.Auth.Timeout)
	require.Equal(t, "jwt", cfg.Auth.CookieName)
	require.Equal(t, []string{"/auth/login", "/auth/register", "/public/**"}, cfg.Routes.AllowList)
	require.Equal(t, "http://posts:50082", cfg.Upstreams.Posts)
	require.Empty(t, cfg.Upstreams.Chat)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  addr: http://identity:50081
upstreams:
  identity: http://identity:50081
`)

	t.Setenv("AUTH_ADDR", "http://other:9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://other:9000", cfg.Auth.Addr)
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load(writeConfig(t, `env: dev`))
	require.Error(t, err)
}
