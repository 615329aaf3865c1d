package service

import (
	"context"
	"net/http"
	"strings"

	"venue_control/internal/logger"
	"venue_control/internal/models"
	"venue_control/internal/repository"
)

// MonitoringService keeps read-only sensor venues under monitoring_venues.
// Sensors start at "0" and are written by the field devices.
type MonitoringService struct {
	tree repository.TreeStore
	log  *logger.Logger
}

func NewMonitoringService(tree repository.TreeStore, log *logger.Logger) *MonitoringService {
	if log == nil {
		log = logger.Nop()
	}
	return &MonitoringService{tree: tree, log: log}
}

func (s *MonitoringService) AddMonitoringVenue(ctx context.Context, uid, venue string, sensors []string) (map[string]any, error) {
	if strings.TrimSpace(venue) == "" {
		return nil, newAppError(http.StatusBadRequest, "Venue required", nil)
	}
	if len(sensors) == 0 {
		return nil, newAppError(http.StatusBadRequest, "Sensor list required", nil)
	}
	if !models.ValidKey(venue) {
		return nil, newAppError(http.StatusBadRequest, "Invalid venue name", nil)
	}
	fields := make(map[string]any, len(sensors))
	for _, sensor := range sensors {
		if !models.ValidKey(sensor) {
			return nil, newAppError(http.StatusBadRequest, "Invalid sensor name", nil)
		}
		fields[strings.TrimSpace(sensor)] = "0"
	}
	venue = strings.TrimSpace(venue)
	p := userPath(uid, models.KeyMonitoring, venue)
	if err := s.tree.Update(ctx, p, fields); err != nil {
		s.log.Errorw("add_monitoring_venue_failed", "uid", uid, "venue", venue, "err", err)
		return nil, newAppError(http.StatusInternalServerError, "Unable to add monitoring venue", err)
	}
	raw, err := s.tree.Get(ctx, p)
	if err != nil {
		return nil, newAppError(http.StatusInternalServerError, "Unable to add monitoring venue", err)
	}
	out, _ := raw.(map[string]any)
	s.log.Infow("monitoring_venue_added", "uid", uid, "venue", venue, "sensors", len(fields))
	return out, nil
}

func (s *MonitoringService) MonitoringData(ctx context.Context, uid string) (map[string]any, error) {
	raw, err := s.tree.Get(ctx, userPath(uid, models.KeyMonitoring))
	if err != nil {
		s.log.Errorw("get_monitoring_failed", "uid", uid, "err", err)
		return nil, newAppError(http.StatusInternalServerError, "Unable to fetch monitoring data", err)
	}
	out, _ := raw.(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func (s *MonitoringService) DeleteMonitoringVenue(ctx context.Context, uid, venue string) error {
	if strings.TrimSpace(venue) == "" {
		return newAppError(http.StatusBadRequest, "Venue required", nil)
	}
	if !models.ValidKey(venue) {
		return newAppError(http.StatusBadRequest, "Invalid venue name", nil)
	}
	venue = strings.TrimSpace(venue)
	if err := s.tree.Delete(ctx, userPath(uid, models.KeyMonitoring, venue)); err != nil {
		s.log.Errorw("delete_monitoring_venue_failed", "uid", uid, "venue", venue, "err", err)
		return newAppError(http.StatusInternalServerError, "Unable to delete monitoring venue", err)
	}
	s.log.Infow("monitoring_venue_deleted", "uid", uid, "venue", venue)
	return nil
}
