package service

import (
	"context"
	"net/http"
	"time"

	"venue_control/internal/config"
	"venue_control/internal/logger"
	"venue_control/internal/metrics"
	"venue_control/internal/models"
	"venue_control/internal/remote"
	"venue_control/internal/repository"
)

type Identity interface {
	Login(ctx context.Context, email, password string) (map[string]any, error)
	SignUp(ctx context.Context, in SignUpInput) (string, error)
	Refresh(ctx context.Context, refreshToken string) (RefreshResult, error)
	VerifyToken(ctx context.Context, header string) (string, error)
}

// Devices exposes the profile and the venue/device tree.
type Devices interface {
	Profile(ctx context.Context, uid string) (models.Profile, error)
	SaveFCMToken(ctx context.Context, uid, token string) error
	AddVenue(ctx context.Context, uid, venue string) (string, error)
	AddDevice(ctx context.Context, uid, venue, device, state string) (string, error)
	UpdateDeviceState(ctx context.Context, uid, venue, device, value string) (string, error)
	DeleteVenue(ctx context.Context, uid, venue string) (string, error)
	DeleteDevice(ctx context.Context, uid, venue, device string) (string, error)
}

type Schedules interface {
	SetSchedule(ctx context.Context, uid string, in ScheduleInput) (ScheduleView, error)
	ListSchedules(ctx context.Context, uid string) (map[string]any, error)
	DeleteSchedule(ctx context.Context, uid, venue, device string) error
	UpdateScheduleStatus(ctx context.Context, uid, venue, device, status string) error
}

// Monitoring exposes sensor venues.
type Monitoring interface {
	AddMonitoringVenue(ctx context.Context, uid, venue string, sensors []string) (map[string]any, error)
	MonitoringData(ctx context.Context, uid string) (map[string]any, error)
	DeleteMonitoringVenue(ctx context.Context, uid, venue string) error
}

type Voice interface {
	SetVoiceKey(ctx context.Context, uid, key string) error
	VoiceKeyExists(ctx context.Context, uid string) (bool, error)
	VoiceCommand(ctx context.Context, uid, text string) (VoiceCommand, error)
}

type Admin interface {
	Bootstrap(ctx context.Context, username, password string) error
	SignIn(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
	ListAccessTokens(ctx context.Context) ([]models.AccessToken, error)
	AddAccessToken(ctx context.Context, token string) (models.AccessToken, error)
	DeleteAccessToken(ctx context.Context, token string) (bool, error)
}

// Scheduler runs the background evaluation loop.
// Stop via context cancellation in main() for graceful shutdown.
type Scheduler interface {
	Run(ctx context.Context)
	Tick(ctx context.Context, now time.Time) TickReport
}

// Service aggregates the sub-services consumed by the handlers.
type Service struct {
	Identity
	Devices
	Schedules
	Monitoring
	Voice
	Admin
	Scheduler
}

// Options carries the shared collaborators of every sub-service.
type Options struct {
	Config   config.Config
	Executor *remote.Executor
	Client   *http.Client
	Metrics  metrics.Recorder
	Log      *logger.Logger
	// Verifier overrides the ID token verifier built from Config.Identity.
	Verifier TokenVerifier
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, opts Options) (*Service, error) {
	cfg := opts.Config
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	exec := opts.Executor
	if exec == nil {
		exec = remote.New(remote.Config{
			MaxAttempts: cfg.Remote.Attempts,
			BaseDelay:   cfg.Remote.BaseDelay,
			Timeout:     cfg.Remote.Timeout,
		}, nil, opts.Log)
	}
	verifier := opts.Verifier
	if verifier == nil {
		verifier = NewFirebaseVerifier(client, cfg.Identity.CertsURL, cfg.Identity.ProjectID)
	}

	notifier := NewPushNotifier(repos.Tree, exec, client, cfg.Notify.Endpoint, cfg.Notify.ServerKey, opts.Log)
	identity := NewIdentityService(IdentityConfig{
		APIKey:     cfg.Identity.APIKey,
		SignInURL:  cfg.Identity.SignInURL,
		SignUpURL:  cfg.Identity.SignUpURL,
		RefreshURL: cfg.Identity.RefreshURL,
	}, repos.Tree, repos.AccessTokens, verifier, exec, client, opts.Log)

	return &Service{
		Identity:   identity,
		Devices:    NewDeviceService(repos.Tree, opts.Log),
		Schedules:  NewScheduleService(repos.Tree, opts.Log),
		Monitoring: NewMonitoringService(repos.Tree, opts.Log),
		Voice:      NewVoiceService(repos.Tree, exec, client, cfg.Voice.Endpoint, cfg.Voice.Timeout, opts.Log),
		Admin:      NewAdminService(repos.Admins, repos.AccessTokens, cfg.Admin.SigningKey, opts.Log),
		Scheduler: NewSchedulerService(repos.Tree, notifier, opts.Metrics, opts.Log, SchedulerConfig{
			Interval: cfg.Scheduler.Interval,
			Workers:  cfg.Scheduler.Workers,
			Cooldown: cfg.Scheduler.Cooldown,
			Location: loc,
		}),
	}, nil
}
