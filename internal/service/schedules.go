package service

import (
	"context"
	"net/http"
	"strings"

	"venue_control/internal/logger"
	"venue_control/internal/models"
	"venue_control/internal/repository"
)

type ScheduleInput struct {
	Venue  string
	Device string
	Time   string
	Action string
}

type ScheduleView struct {
	Venue  string `json:"venue"`
	Device string `json:"device"`
	Time   string `json:"time"`
	Action string `json:"action"`
	Status bool   `json:"status"`
}

// ScheduleService writes the schedules the scheduler evaluates.
type ScheduleService struct {
	tree repository.TreeStore
	log  *logger.Logger
}

func NewScheduleService(tree repository.TreeStore, log *logger.Logger) *ScheduleService {
	if log == nil {
		log = logger.Nop()
	}
	return &ScheduleService{tree: tree, log: log}
}

// SetSchedule stores the time string exactly as given, apart from
// surrounding whitespace. It merges into an existing schedule, so a
// previous lastNotified is kept.
func (s *ScheduleService) SetSchedule(ctx context.Context, uid string, in ScheduleInput) (ScheduleView, error) {
	if !models.ValidKey(in.Venue) || !models.ValidKey(in.Device) {
		return ScheduleView{}, newAppError(http.StatusBadRequest, "Invalid venue or device name", nil)
	}
	timeString := strings.TrimSpace(in.Time)
	if timeString == "" {
		return ScheduleView{}, newAppError(http.StatusBadRequest, "Schedule time required", nil)
	}
	action, ok := models.NormalizeState(in.Action)
	if !ok {
		return ScheduleView{}, newAppError(http.StatusBadRequest, "Invalid action; must be 'on', 'off', or '1-5'", nil)
	}
	venue, device := strings.TrimSpace(in.Venue), strings.TrimSpace(in.Device)

	err := s.tree.Update(ctx, userPath(uid, models.KeySchedules, venue, device), map[string]any{
		models.KeyTime:   timeString,
		models.KeyAction: action,
		models.KeyStatus: models.ScheduleEnabled,
	})
	if err != nil {
		s.log.Errorw("set_schedule_failed", "uid", uid, "venue", venue, "device", device, "err", err)
		return ScheduleView{}, newAppError(http.StatusInternalServerError, "Unable to set schedule", err)
	}
	s.log.Infow("schedule_set", "uid", uid, "venue", venue, "device", device, "time", timeString)
	return ScheduleView{Venue: venue, Device: device, Time: timeString, Action: action, Status: true}, nil
}

func (s *ScheduleService) ListSchedules(ctx context.Context, uid string) (map[string]any, error) {
	raw, err := s.tree.Get(ctx, userPath(uid, models.KeySchedules))
	if err != nil {
		s.log.Errorw("get_schedules_failed", "uid", uid, "err", err)
		return nil, newAppError(http.StatusInternalServerError, "Unable to fetch schedules", err)
	}
	out, _ := raw.(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func (s *ScheduleService) DeleteSchedule(ctx context.Context, uid, venue, device string) error {
	if !models.ValidKey(venue) || !models.ValidKey(device) {
		return newAppError(http.StatusBadRequest, "Invalid venue or device name", nil)
	}
	venue, device = strings.TrimSpace(venue), strings.TrimSpace(device)
	if err := s.tree.Delete(ctx, userPath(uid, models.KeySchedules, venue, device)); err != nil {
		s.log.Errorw("delete_schedule_failed", "uid", uid, "venue", venue, "device", device, "err", err)
		return newAppError(http.StatusInternalServerError, "Unable to delete schedule", err)
	}
	s.log.Infow("schedule_deleted", "uid", uid, "venue", venue, "device", device)
	return nil
}

func (s *ScheduleService) UpdateScheduleStatus(ctx context.Context, uid, venue, device, status string) error {
	if !models.ValidKey(venue) || !models.ValidKey(device) ||
		(status != models.ScheduleEnabled && status != models.ScheduleDisabled) {
		return newAppError(http.StatusBadRequest, "venue, device and valid status required", nil)
	}
	venue, device = strings.TrimSpace(venue), strings.TrimSpace(device)
	err := s.tree.Update(ctx, userPath(uid, models.KeySchedules, venue, device), map[string]any{models.KeyStatus: status})
	if err != nil {
		s.log.Errorw("update_schedule_status_failed", "uid", uid, "venue", venue, "device", device, "err", err)
		return newAppError(http.StatusInternalServerError, "Unable to update schedule status", err)
	}
	s.log.Infow("schedule_status_updated", "uid", uid, "venue", venue, "device", device, "status", status)
	return nil
}
