// exposes a Store interface that is passed to API calls w/ param requirements
package db

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

type Store interface {
	// user functions
	CreateUser(email, hashedPassword string, name *string, role string) (int, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByID(id int) (*model.User, error)
	UpdateUserProfile(id int, email string, name *string) error
	ListUsers() ([]model.User, error)
	UpdateUserRole(id int, role string) error

	// tv functions
	RegisterTV(deviceID, name string, version *string) (*model.TV, error)
	GetTVByID(id int) (*model.TV, error)
	GetTVByDeviceID(deviceID string) (*model.TV, error)
	ListTVs() ([]model.TV, error)
	UpdateTV(id int, name, aspectRatio *string) error
	DeleteTV(id int) error
	TouchTVByDeviceID(deviceID string) (bool, error)

	// video functions
	CreateVideo(v *model.Video) error
	GetVideoByID(id int) (*model.Video, error)
	GetVideosByIDs(ids []int) ([]model.Video, error)
	ListVideos() ([]model.Video, error)
	UpdateVideo(id int, name, url *string, duration *int) error
	DeleteVideo(id int) error
	SetDurationByURL(url string, duration int) (int64, error)

	// schedule functions
	CreateSchedules(rows []model.Schedule) ([]model.Schedule, error)
	GetSchedule(id int) (*model.Schedule, error)
	ListSchedules() ([]model.ScheduleDetail, error)
	ListTVSchedules(tvID int) ([]model.ScheduleDetail, error)
	ListActiveSchedulesForTV(tvID int) ([]model.Schedule, error)
	ListScheduleGroups() ([]model.ScheduleGroup, error)
	DeleteSchedule(id int) error
	DeleteScheduleGroup(id int) (int64, error)
	PlayNow(tvID, videoID int, startTime string, pausedUntil time.Time) (*model.Schedule, error)
	ReactivatePausedSchedules(now time.Time) ([]string, error)
	ExpireImmediateSchedules(createdBefore time.Time) ([]string, error)

	// playback functions
	RecordCurrentPlayback(tvID int, videoID *int, sequence []byte) error
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore(db *sqlx.DB) Store {
	return &pgStore{db: db}
}
