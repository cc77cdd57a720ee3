package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/prontotv/internal/player"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PRONTOTV_SERVER_URL", "")
	t.Setenv("PRONTOTV_DEVICE_ID_FILE", "")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	idFile := filepath.Join(dir, "device_id")
	path := filepath.Join(dir, "player.toml")
	body := "[server]\nurl = \"http://signage.local:3000\"\n\n[device]\nid_file = \"" + idFile + "\"\n\n[mqtt]\npassword = \"hunter2\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path, idFile
}

func TestConfigShow(t *testing.T) {
	path, _ := writeConfig(t)

	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "http://signage.local:3000")
	assert.Contains(t, out, "ws://signage.local:3000/ws")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.toml")

	_, err := execute(t, "config", "init", "--path", path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, "config", "init", "--path", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestDeviceID(t *testing.T) {
	path, idFile := writeConfig(t)

	_, err := execute(t, "--config", path, "device-id")
	assert.ErrorContains(t, err, "no device id")

	out, err := execute(t, "--config", path, "device-id", "--create")
	require.NoError(t, err)
	stored, err := player.ReadDeviceID(idFile)
	require.NoError(t, err)
	assert.Equal(t, stored+"\n", out)
	assert.True(t, player.ValidDeviceID(stored))
}
