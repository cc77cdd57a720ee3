package db

import (
	"database/sql"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

func TestMain(m *testing.M) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		os.Exit(m.Run())
	}
	if err := InitTestDB("../../migrations"); err != nil {
		panic("could not init test database: " + err.Error())
	}
	os.Exit(m.Run())
}

func requireDB(t *testing.T) Store {
	t.Helper()
	if TestStore == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, ResetTestDB())
	return TestStore
}

func intp(i int) *int { return &i }

// TestStoreIntegration exercises the store against a real database.
func TestStoreIntegration(t *testing.T) {
	store := requireDB(t)

	t.Run("User Management", func(t *testing.T) {
		userID, err := store.CreateUser("test@example.com", "hashedpassword", nil, model.RoleEditor)
		require.NoError(t, err)
		assert.Greater(t, userID, 0)

		user, err := store.GetUserByEmail("test@example.com")
		require.NoError(t, err)
		assert.Equal(t, model.RoleEditor, user.Role)

		require.NoError(t, store.UpdateUserRole(userID, model.RoleAdmin))
		user, _ = store.GetUserByID(userID)
		assert.Equal(t, model.RoleAdmin, user.Role)

		assert.ErrorIs(t, store.UpdateUserRole(9999, model.RoleAdmin), sql.ErrNoRows)
	})

	t.Run("TV Registration", func(t *testing.T) {
		tv, err := store.RegisterTV("tv_1_abcdef", "TV-abcdef", nil)
		require.NoError(t, err)
		assert.Equal(t, model.StatusOnline, tv.Status)
		assert.Equal(t, model.AspectLandscape, tv.AspectRatio)

		renamed := "Lobby"
		require.NoError(t, store.UpdateTV(tv.ID, &renamed, nil))

		version := "2.1.0"
		again, err := store.RegisterTV("tv_1_abcdef", "TV-abcdef", &version)
		require.NoError(t, err)
		assert.Equal(t, tv.ID, again.ID)
		assert.Equal(t, "Lobby", again.Name)
		assert.Equal(t, "2.1.0", *again.Version)
	})

	t.Run("Schedules", func(t *testing.T) {
		tv, err := store.RegisterTV("tv_2", "TV-tv_2", nil)
		require.NoError(t, err)

		a := &model.Video{Name: "A", URL: "https://cdn/a.mp4", Type: model.TypeVideo, Duration: intp(30)}
		b := &model.Video{Name: "B", URL: "https://cdn/b.mp4", Type: model.TypeVideo}
		require.NoError(t, store.CreateVideo(a))
		require.NoError(t, store.CreateVideo(b))

		created, err := store.CreateSchedules([]model.Schedule{
			{TVID: tv.ID, VideoID: a.ID, StartTime: "09:00", IsActive: 1, SequenceOrder: intp(0)},
			{TVID: tv.ID, VideoID: b.ID, StartTime: "09:00", IsActive: 1, SequenceOrder: intp(1)},
			{TVID: tv.ID, VideoID: a.ID, StartTime: "12:00", IsActive: 1},
		})
		require.NoError(t, err)
		require.Len(t, created, 3)

		groups, err := store.ListScheduleGroups()
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, 2, groups[0].Count)

		n, err := store.DeleteScheduleGroup(created[1].ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		rows, err := store.ListActiveSchedulesForTV(tv.ID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "12:00", rows[0].StartTime)

		now := time.Now()
		imm, err := store.PlayNow(tv.ID, b.ID, "10:15", now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, imm.IsImmediate)
		assert.Equal(t, 999, imm.Priority)

		rows, _ = store.ListActiveSchedulesForTV(tv.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, imm.ID, rows[0].ID)

		devices, err := store.ReactivatePausedSchedules(now.Add(2 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{"tv_2"}, devices)

		devices, err = store.ExpireImmediateSchedules(now.Add(2 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{"tv_2"}, devices)

		rows, _ = store.ListActiveSchedulesForTV(tv.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, "12:00", rows[0].StartTime)
	})

	t.Run("Durations and playback", func(t *testing.T) {
		tv, _ := store.RegisterTV("tv_3", "TV-tv_3", nil)
		v := &model.Video{Name: "C", URL: "https://cdn/c.mp4", Type: model.TypeVideo}
		require.NoError(t, store.CreateVideo(v))

		n, err := store.SetDurationByURL("https://cdn/c.mp4", 42)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = store.SetDurationByURL("https://cdn/c.mp4", 7)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		seq, _ := json.Marshal([]model.SequenceItem{{ID: v.ID, URL: v.URL, Name: v.Name}})
		require.NoError(t, store.RecordCurrentPlayback(tv.ID, &v.ID, seq))
		require.NoError(t, store.RecordCurrentPlayback(tv.ID, &v.ID, nil))

		require.NoError(t, store.DeleteTV(tv.ID))
		_, err = store.GetTVByID(tv.ID)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}
