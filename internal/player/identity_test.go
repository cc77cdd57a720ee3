package player

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeviceID(t *testing.T) {
	id, err := NewDeviceID(time.UnixMilli(1760000000000))
	require.NoError(t, err)
	assert.True(t, ValidDeviceID(id), id)
	assert.Contains(t, id, "tv_1760000000000_")
	assert.False(t, ValidDeviceID("tv_abc"))
}

func TestLoadOrCreateDeviceID_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "device_id")

	first, err := LoadOrCreateDeviceID(path)
	require.NoError(t, err)
	second, err := LoadOrCreateDeviceID(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := ReadDeviceID(path)
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestLoadOrCreateDeviceID_ConcurrentCallersAgree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := LoadOrCreateDeviceID(path)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestLoadOrCreateDeviceID_KeepsHandWrittenID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")
	require.NoError(t, os.WriteFile(path, []byte("lobby-screen\n"), 0o644))

	id, err := LoadOrCreateDeviceID(path)
	require.NoError(t, err)
	assert.Equal(t, "lobby-screen", id)
}
