package endpoints

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/db"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

type ScheduleController struct {
	store db.Store
	hooks Hooks
}

func NewScheduleController(store db.Store, hooks Hooks) *ScheduleController {
	return &ScheduleController{store: store, hooks: hooks}
}

func ScheduleModule(store db.Store, hooks Hooks) api.Module {
	ctl := NewScheduleController(store, hooks)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/schedules", ctl.listSchedules)
		c.POST("/schedules", ctl.createSchedule)
		c.POST("/schedules/sequence", ctl.createSequence)
		c.GET("/schedules/groups", ctl.listGroups)
		c.GET("/schedules/tv/:tv_id", ctl.listTVSchedules)
		c.DELETE("/schedules/:id", ctl.deleteSchedule)
		c.DELETE("/schedules/:id/group", ctl.deleteGroup)
	})
}

// days expands the day selection of a create request into one entry per row.
// nil means every day.
func days(list []int, single *int) []*int {
	if len(list) == 0 {
		return []*int{single}
	}
	seen := make(map[int]bool, len(list))
	out := make([]*int, 0, len(list))
	for _, d := range list {
		if seen[d] {
			continue
		}
		seen[d] = true
		day := d
		out = append(out, &day)
	}
	return out
}

func flag(f *packets.Flag, def int) int {
	if f == nil {
		return def
	}
	return int(*f)
}

// window normalises start and end. Without an explicit end, the end is
// derived from the summed asset durations when any are known.
func window(start string, end *string, videos []model.Video) (string, *string, *api.APIError) {
	s, ok := content.NormalizeClock(start)
	if !ok {
		return "", nil, api.BadRequest("start_time must be HH:MM")
	}
	if end != nil && *end != "" {
		e, ok := content.NormalizeClock(*end)
		if !ok {
			return "", nil, api.BadRequest("end_time must be HH:MM")
		}
		return s, &e, nil
	}

	total := 0
	for _, v := range videos {
		if v.Duration != nil && *v.Duration > 0 {
			total += *v.Duration
		}
	}
	if total == 0 {
		return s, nil, nil
	}
	if e, ok := content.EndAfter(s, total); ok {
		return s, &e, nil
	}
	return s, nil, nil
}

// GET /api/schedules
func (s *ScheduleController) listSchedules(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	list, err := s.store.ListSchedules()
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	return list, nil
}

// GET /api/schedules/groups
func (s *ScheduleController) listGroups(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	groups, err := s.store.ListScheduleGroups()
	if err != nil {
		return nil, storeError(err, "schedule group")
	}
	return groups, nil
}

// GET /api/schedules/tv/:tv_id accepts the numeric id or the device id.
func (s *ScheduleController) listTVSchedules(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	ref := ctx.Param("tv_id")
	var (
		tv  *model.TV
		err error
	)
	if id, convErr := strconv.Atoi(ref); convErr == nil {
		tv, err = s.store.GetTVByID(id)
	} else {
		tv, err = s.store.GetTVByDeviceID(ref)
	}
	if err != nil {
		return nil, storeError(err, "tv")
	}

	list, err := s.store.ListTVSchedules(tv.ID)
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	return list, nil
}

// POST /api/schedules
func (s *ScheduleController) createSchedule(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.CreateScheduleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	tv, err := s.store.GetTVByID(request.TVID)
	if err != nil {
		return nil, storeError(err, "tv")
	}
	video, err := s.store.GetVideoByID(request.VideoID)
	if err != nil {
		return nil, storeError(err, "video")
	}

	start, end, apiErr := window(request.StartTime, request.EndTime, []model.Video{*video})
	if apiErr != nil {
		return nil, apiErr
	}

	var rows []model.Schedule
	for _, day := range days(request.Days, request.DayOfWeek) {
		rows = append(rows, model.Schedule{
			TVID:          tv.ID,
			VideoID:       video.ID,
			StartTime:     start,
			EndTime:       end,
			DayOfWeek:     day,
			IsActive:      flag(request.IsActive, 1),
			SequenceOrder: request.SequenceOrder,
			IsLoop:        flag(request.IsLoop, 0),
		})
	}

	created, err := s.store.CreateSchedules(rows)
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	s.hooks.changed(ctx.Request.Context(), tv.DeviceID)

	log.Info().Int("tv_id", tv.ID).Int("video_id", video.ID).Int("rows", len(created)).Int("user_id", user.ID).Msg("schedule created")
	if len(created) == 1 {
		return created[0], nil
	}
	return packets.ScheduleBatchResponse{Success: true, Count: len(created), Schedules: created}, nil
}

// POST /api/schedules/sequence creates one sequence group per selected day.
func (s *ScheduleController) createSequence(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.CreateSequenceRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	tv, err := s.store.GetTVByID(request.TVID)
	if err != nil {
		return nil, storeError(err, "tv")
	}
	found, err := s.store.GetVideosByIDs(request.VideoIDs)
	if err != nil {
		return nil, storeError(err, "video")
	}
	byID := make(map[int]model.Video, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}
	ordered := make([]model.Video, 0, len(request.VideoIDs))
	for _, id := range request.VideoIDs {
		v, ok := byID[id]
		if !ok {
			return nil, api.NotFound(fmt.Sprintf("video %d not found", id))
		}
		ordered = append(ordered, v)
	}

	start, end, apiErr := window(request.StartTime, request.EndTime, ordered)
	if apiErr != nil {
		return nil, apiErr
	}

	var rows []model.Schedule
	for _, day := range days(request.Days, nil) {
		for i, v := range ordered {
			order := i
			rows = append(rows, model.Schedule{
				TVID:          tv.ID,
				VideoID:       v.ID,
				StartTime:     start,
				EndTime:       end,
				DayOfWeek:     day,
				IsActive:      flag(request.IsActive, 1),
				SequenceOrder: &order,
				IsLoop:        flag(request.IsLoop, 0),
			})
		}
	}

	created, err := s.store.CreateSchedules(rows)
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	s.hooks.changed(ctx.Request.Context(), tv.DeviceID)

	log.Info().Int("tv_id", tv.ID).Int("items", len(ordered)).Int("rows", len(created)).Int("user_id", user.ID).Msg("sequence created")
	return packets.ScheduleBatchResponse{Success: true, Count: len(created), Schedules: created}, nil
}

// DELETE /api/schedules/:id
func (s *ScheduleController) deleteSchedule(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid schedule id")
	}
	sc, err := s.store.GetSchedule(id)
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	if err := s.store.DeleteSchedule(id); err != nil {
		return nil, storeError(err, "schedule")
	}
	s.notifyTV(ctx, sc.TVID)
	return gin.H{"success": true}, nil
}

// DELETE /api/schedules/:id/group removes every row of the row's sequence group.
func (s *ScheduleController) deleteGroup(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid schedule id")
	}
	sc, err := s.store.GetSchedule(id)
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	n, err := s.store.DeleteScheduleGroup(id)
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	s.notifyTV(ctx, sc.TVID)
	return gin.H{"success": true, "deleted": n}, nil
}

func (s *ScheduleController) notifyTV(ctx *gin.Context, tvID int) {
	tv, err := s.store.GetTVByID(tvID)
	if err != nil {
		log.Warn().Err(err).Int("tv_id", tvID).Msg("schedule changed for unknown tv")
		s.hooks.changed(ctx.Request.Context())
		return
	}
	s.hooks.changed(ctx.Request.Context(), tv.DeviceID)
}
