package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	env := map[string]string{"UPSTREAM_HOST": "app.internal"}
	cfg := Default()
	err := Decode([]byte(`
http:
  port: 9000
upstream: "http://${UPSTREAM_HOST}:8080"
routes:
  - prefix: /static
    upstream: "http://${UPSTREAM_HOST}:8081"
    public: true
  - prefix: /
    upstream: "http://${UNSET_VAR}backend:8080"
stream:
  upstream: "ws://${UPSTREAM_HOST}:8082"
session:
  secure: true
`), func(k string) string { return env[k] }, &cfg)
	require.NoError(t, err)

	assert.Equal(t, "localhost:9000", cfg.HTTP.Addr())
	assert.Equal(t, "http://app.internal:8080", cfg.Upstream)
	assert.Equal(t, "localhost:7443", cfg.Stream.Addr(), "defaults survive partial files")
	assert.True(t, cfg.StreamEnabled())
	assert.Equal(t, "turnstile_session", cfg.Session.Cookie)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, []Route{
		{Prefix: "/static", Upstream: "http://app.internal:8081", Public: true},
		{Prefix: "/", Upstream: "http://backend:8080"},
	}, cfg.RouteTable())
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "turnstile.yaml")
	require.NoError(t, os.WriteFile(file, []byte("upstream: http://localhost:8080\n"), 0644))
	cfg := Default()
	require.NoError(t, Load(file, &cfg))
	assert.Equal(t, []Route{{Prefix: "/", Upstream: "http://localhost:8080"}}, cfg.RouteTable())
	assert.False(t, cfg.StreamEnabled())

	assert.Error(t, Load(filepath.Join(dir, "missing.yaml"), &cfg))
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"no upstream", func(c *Config) { c.Upstream = "" }},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"bad prefix", func(c *Config) { c.Routes = []Route{{Prefix: "app", Upstream: "http://x"}} }},
		{"stream without tls", func(c *Config) { c.Stream.Upstream = "ws://x"; c.Stream.TLS = TLS{} }},
		{"empty cookie", func(c *Config) { c.Session.Cookie = "" }},
		{"empty storage", func(c *Config) { c.Storage.Path = "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Upstream = "http://localhost:8080"
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
