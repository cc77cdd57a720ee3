package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PRONTOTV_SERVER_URL", "PRONTOTV_DEVICE_NAME", "PRONTOTV_DEVICE_ID_FILE",
		"PRONTOTV_ALLOW_AUDIO", "PRONTOTV_PREVIEW", "PRONTOTV_MQTT_ENABLED",
		"PRONTOTV_MQTT_HOST", "PRONTOTV_MQTT_PORT", "PRONTOTV_MQTT_USERNAME",
		"PRONTOTV_MQTT_PASSWORD", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "player.toml")

	cfg, resolved, exists, err := Load(path)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, "http://localhost:8080", cfg.Server.URL)
	assert.Equal(t, 10*time.Second, cfg.Playback.Sync())
	assert.Equal(t, 120*time.Second, cfg.Playback.IdleSync())
	assert.Equal(t, 3, cfg.Playback.MaxRetries)
	assert.True(t, filepath.IsAbs(cfg.Device.IDFile))
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "player.toml")
	body := `
[server]
url = "https://signage.example.com/"

[device]
name = "Lobby"
id_file = "` + filepath.Join(dir, "id") + `"

[playback]
sync_interval = 30
allow_audio = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("PRONTOTV_DEVICE_NAME", "Front Desk")
	t.Setenv("PRONTOTV_ALLOW_AUDIO", "false")

	cfg, _, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "https://signage.example.com", cfg.Server.URL)
	assert.Equal(t, "wss://signage.example.com/ws", cfg.SocketURL())
	assert.Equal(t, "Front Desk", cfg.Device.Name)
	assert.Equal(t, 30*time.Second, cfg.Playback.Sync())
	assert.False(t, cfg.Playback.AllowAudio)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "player.toml")

	require.NoError(t, os.WriteFile(path, []byte("[server]\nurl = \"ftp://x\"\n"), 0o600))
	_, _, _, err := Load(path)
	assert.ErrorContains(t, err, "server.url")

	require.NoError(t, os.WriteFile(path, []byte("[playback]\nmax_retries = 0\n"), 0o600))
	_, _, _, err = Load(path)
	assert.ErrorContains(t, err, "playback.max_retries")

	require.NoError(t, os.WriteFile(path, []byte("[server\n"), 0o600))
	_, _, _, err = Load(path)
	assert.ErrorContains(t, err, "parse config")

	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))
	t.Setenv("PRONTOTV_PREVIEW", "maybe")
	_, _, _, err = Load(path)
	assert.ErrorContains(t, err, "PRONTOTV_PREVIEW")
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, toml.Unmarshal([]byte(SampleConfig()), &cfg))

	def := Default()
	assert.Equal(t, def.Playback, cfg.Playback)
	assert.Equal(t, def.Server, cfg.Server)
	assert.True(t, strings.HasPrefix(SampleConfig(), "#"))
}

func TestCreateSampleLoads(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "player.toml")
	require.NoError(t, CreateSample(path))

	_, _, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
}
