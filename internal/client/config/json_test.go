package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "client.json", map[string]any{
		"server_endpoint_addr":  "shop.local:50051",
		"ping_url":              "http://shop.local:8080/api/ping",
		"online_check_interval": "30s",
		"probe_timeout":         "2s",
		"call_timeout":          int64(5 * time.Second),
		"refresh":               false,
		"log_level":             "debug",
	})

	t.Run("overlays present keys", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{DBPath: "keep.db", Refresh: true}
		parseJson(cfg)

		assert.Equal(t, "shop.local:50051", cfg.ServerEndpointAddr)
		assert.Equal(t, "http://shop.local:8080/api/ping", cfg.PingURL)
		assert.Equal(t, 30*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
		assert.Equal(t, 5*time.Second, cfg.CallTimeout, "integer nanoseconds")
		assert.False(t, cfg.Refresh)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "keep.db", cfg.DBPath, "absent keys keep their value")
	})

	t.Run("token is ignored", func(t *testing.T) {
		p := writeTempJSON(t, dir, "token.json", map[string]any{"token": "from-file"})
		os.Args = []string{"testbin", "-c", p}

		cfg := &Config{Token: "from-env"}
		parseJson(cfg)

		assert.Equal(t, "from-env", cfg.Token)
	})

	t.Run("no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		want := Config{ServerEndpointAddr: "localhost:50051", OnlineCheckInterval: 42 * time.Second}
		cfg := want
		parseJson(&cfg)

		assert.Equal(t, want, cfg)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"server_endpoint_addr": `), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "missing.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
