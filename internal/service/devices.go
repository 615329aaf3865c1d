package service

import (
	"context"
	"net/http"
	"strings"

	"venue_control/internal/logger"
	"venue_control/internal/models"
	"venue_control/internal/repository"

	"github.com/spf13/cast"
)

// DeviceService manages the venues tree and profile of a user.
type DeviceService struct {
	tree repository.TreeStore
	log  *logger.Logger
}

func NewDeviceService(tree repository.TreeStore, log *logger.Logger) *DeviceService {
	if log == nil {
		log = logger.Nop()
	}
	return &DeviceService{tree: tree, log: log}
}

func userPath(uid string, segs ...string) string {
	return repository.JoinPath(append([]string{usersRoot, uid}, segs...)...)
}

func (s *DeviceService) Profile(ctx context.Context, uid string) (models.Profile, error) {
	raw, err := s.tree.Get(ctx, userPath(uid))
	if err != nil {
		s.log.Errorw("get_profile_failed", "uid", uid, "err", err)
		return models.Profile{}, newAppError(http.StatusInternalServerError, "Unable to fetch profile", err)
	}
	data, _ := raw.(map[string]any)
	venues, _ := data[models.KeyVenues].(map[string]any)
	if venues == nil {
		venues = map[string]any{}
	}
	return models.Profile{
		UID:            uid,
		Email:          cast.ToString(data[models.KeyEmail]),
		Name:           cast.ToString(data[models.KeyName]),
		Venues:         venues,
		Faults:         models.FirstFaultOf(venues),
		VerifiedAccess: cast.ToBool(data[models.KeyVerifiedAccess]),
	}, nil
}

func (s *DeviceService) SaveFCMToken(ctx context.Context, uid, token string) error {
	if strings.TrimSpace(token) == "" {
		return newAppError(http.StatusBadRequest, "FCM token required", nil)
	}
	if err := s.tree.Update(ctx, userPath(uid), map[string]any{models.KeyFCMToken: token}); err != nil {
		s.log.Errorw("save_fcm_token_failed", "uid", uid, "err", err)
		return newAppError(http.StatusInternalServerError, "Unable to save FCM token", err)
	}
	s.log.Infow("fcm_token_saved", "uid", uid)
	return nil
}

// AddVenue creates an empty venue. The creation marker keeps the node from
// being pruned before it has devices.
func (s *DeviceService) AddVenue(ctx context.Context, uid, venue string) (string, error) {
	if !models.ValidKey(venue) {
		return "", newAppError(http.StatusBadRequest, "Invalid venue name", nil)
	}
	venue = strings.TrimSpace(venue)
	venues := userPath(uid, models.KeyVenues)
	if err := s.tree.Update(ctx, venues, map[string]any{venue: map[string]any{models.KeyCreated: true}}); err != nil {
		s.log.Errorw("add_venue_failed", "uid", uid, "venue", venue, "err", err)
		return "", newAppError(http.StatusInternalServerError, "Unable to create venue", err)
	}
	got, err := s.tree.Get(ctx, repository.JoinPath(venues, venue))
	if err != nil || got == nil {
		s.log.Errorw("add_venue_not_persisted", "uid", uid, "venue", venue, "err", err)
		return "", newAppError(http.StatusInternalServerError, "Venue creation failed (persistence check)", err)
	}
	s.log.Infow("venue_added", "uid", uid, "venue", venue)
	return venue, nil
}

// AddDevice adds a device to an existing venue. An invalid state falls back
// to "off".
func (s *DeviceService) AddDevice(ctx context.Context, uid, venue, device, state string) (string, error) {
	st, ok := models.NormalizeState(state)
	if !ok {
		st = "off"
	}
	if !models.ValidKey(venue) || !models.ValidKey(device) {
		return "", newAppError(http.StatusBadRequest, "Invalid venue or device name", nil)
	}
	venue, device = strings.TrimSpace(venue), strings.TrimSpace(device)
	venuePath := userPath(uid, models.KeyVenues, venue)

	existing, err := s.tree.Get(ctx, venuePath)
	if err != nil {
		s.log.Errorw("add_device_failed", "uid", uid, "venue", venue, "err", err)
		return "", newAppError(http.StatusInternalServerError, "Unable to add device", err)
	}
	if existing == nil {
		return "", newAppError(http.StatusNotFound, "Venue does not exist", nil)
	}
	if err := s.tree.Update(ctx, venuePath, map[string]any{device: st}); err != nil {
		s.log.Errorw("add_device_failed", "uid", uid, "venue", venue, "device", device, "err", err)
		return "", newAppError(http.StatusInternalServerError, "Unable to add device", err)
	}
	s.log.Infow("device_added", "uid", uid, "venue", venue, "device", device)
	return device, nil
}

func (s *DeviceService) UpdateDeviceState(ctx context.Context, uid, venue, device, value string) (string, error) {
	st, ok := models.NormalizeState(value)
	if !ok {
		return "", newAppError(http.StatusBadRequest, "Invalid device state; must be 'on', 'off', or '1-5'", nil)
	}
	if !models.ValidKey(venue) || !models.ValidKey(device) {
		return "", newAppError(http.StatusBadRequest, "Invalid venue or device name", nil)
	}
	venue, device = strings.TrimSpace(venue), strings.TrimSpace(device)
	if err := s.tree.Update(ctx, userPath(uid, models.KeyVenues, venue), map[string]any{device: st}); err != nil {
		s.log.Errorw("update_device_state_failed", "uid", uid, "venue", venue, "device", device, "err", err)
		return "", newAppError(http.StatusInternalServerError, "Unable to update state", err)
	}
	s.log.Infow("device_state_updated", "uid", uid, "venue", venue, "device", device, "state", st)
	return st, nil
}

func (s *DeviceService) DeleteVenue(ctx context.Context, uid, venue string) (string, error) {
	if !models.ValidKey(venue) {
		return "", newAppError(http.StatusBadRequest, "Invalid venue name", nil)
	}
	venue = strings.TrimSpace(venue)
	if err := s.tree.Delete(ctx, userPath(uid, models.KeyVenues, venue)); err != nil {
		s.log.Errorw("delete_venue_failed", "uid", uid, "venue", venue, "err", err)
		return "", newAppError(http.StatusInternalServerError, "Unable to delete venue", err)
	}
	s.log.Infow("venue_deleted", "uid", uid, "venue", venue)
	return venue, nil
}

func (s *DeviceService) DeleteDevice(ctx context.Context, uid, venue, device string) (string, error) {
	if !models.ValidKey(venue) || !models.ValidKey(device) {
		return "", newAppError(http.StatusBadRequest, "Invalid venue or device name", nil)
	}
	venue, device = strings.TrimSpace(venue), strings.TrimSpace(device)
	if err := s.tree.Delete(ctx, userPath(uid, models.KeyVenues, venue, device)); err != nil {
		s.log.Errorw("delete_device_failed", "uid", uid, "venue", venue, "device", device, "err", err)
		return "", newAppError(http.StatusInternalServerError, "Unable to delete device", err)
	}
	s.log.Infow("device_deleted", "uid", uid, "venue", venue, "device", device)
	return device, nil
}
