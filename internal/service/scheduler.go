package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"venue_control/internal/logger"
	"venue_control/internal/metrics"
	"venue_control/internal/models"
	"venue_control/internal/repository"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// ClockLayout renders the wall-clock minute that schedule times are compared
// against. Comparison is on the rendered string, so "2:30 PM" never matches.
const ClockLayout = "03:04 PM"

const (
	TitleScheduleCompleted = "Schedule Completed"
	TitleFaultDetected     = "Fault Detected"
)

const (
	DefaultTickInterval = 5 * time.Second
	DefaultWorkers      = 4
	DefaultCooldown     = time.Hour
)

const usersRoot = "users"

// Notifier delivers a push message to a user.
type Notifier interface {
	Send(ctx context.Context, uid, title, body string) error
}

type SchedulerConfig struct {
	Interval time.Duration
	Workers  int
	Cooldown time.Duration
	Location *time.Location
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultTickInterval
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// TickReport summarizes one pass over all users.
type TickReport struct {
	TickID              string        `json:"tick_id"`
	At                  time.Time     `json:"at"`
	Clock               string        `json:"clock"`
	Users               int           `json:"users"`
	SchedulesFired      int           `json:"schedules_fired"`
	AlertsSent          int           `json:"alerts_sent"`
	NotificationsFailed int           `json:"notifications_failed"`
	EntriesSkipped      int           `json:"entries_skipped"`
	Errors              int           `json:"errors"`
	Duration            time.Duration `json:"duration"`
}

type userOutcome struct {
	fired        int
	alerts       int
	notifyFailed int
	skipped      int
	errors       int
}

// SchedulerService fires due schedules and fault alerts on a fixed delay.
type SchedulerService struct {
	store    repository.TreeStore
	notifier Notifier
	metrics  metrics.Recorder
	log      *logger.Logger
	cfg      SchedulerConfig
	now      func() time.Time
}

func NewSchedulerService(store repository.TreeStore, notifier Notifier, rec metrics.Recorder, log *logger.Logger, cfg SchedulerConfig) *SchedulerService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SchedulerService{
		store:    store,
		notifier: notifier,
		metrics:  rec,
		log:      log,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// Run ticks until ctx is canceled. The next tick starts Interval after the
// previous one completes. A tick in flight when ctx is canceled runs to the
// end.
func (s *SchedulerService) Run(ctx context.Context) {
	s.log.Infow("scheduler_started", "interval", s.cfg.Interval, "workers", s.cfg.Workers, "cooldown", s.cfg.Cooldown)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("scheduler_stopped")
			return
		case <-timer.C:
			s.Tick(context.WithoutCancel(ctx), s.now())
			timer.Reset(s.cfg.Interval)
		}
	}
}

// Tick evaluates every user against now. Per-user failures are counted in
// the report and never stop the pass.
func (s *SchedulerService) Tick(ctx context.Context, now time.Time) TickReport {
	start := time.Now()
	rep := TickReport{
		TickID: uuid.NewString(),
		At:     now,
		Clock:  now.In(s.cfg.Location).Format(ClockLayout),
	}
	defer func() {
		rep.Duration = time.Since(start)
		s.report(rep)
	}()

	raw, err := s.store.Get(ctx, usersRoot)
	if err != nil {
		s.log.Errorw("scheduler_read_users_failed", "tick_id", rep.TickID, "err", err)
		rep.Errors++
		return rep
	}
	if raw == nil {
		return rep
	}
	users, ok := raw.(map[string]any)
	if !ok {
		s.log.Errorw("scheduler_users_malformed", "tick_id", rep.TickID, "type", fmt.Sprintf("%T", raw))
		rep.Errors++
		return rep
	}

	uids := make([]string, 0, len(users))
	for uid := range users {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	rep.Users = len(uids)

	epoch := now.Unix()
	p := pool.NewWithResults[userOutcome]().WithMaxGoroutines(s.cfg.Workers)
	for _, uid := range uids {
		data := users[uid]
		p.Go(func() userOutcome {
			return s.processUser(ctx, rep.TickID, uid, data, rep.Clock, epoch)
		})
	}
	for _, o := range p.Wait() {
		rep.SchedulesFired += o.fired
		rep.AlertsSent += o.alerts
		rep.NotificationsFailed += o.notifyFailed
		rep.EntriesSkipped += o.skipped
		rep.Errors += o.errors
	}
	return rep
}

func (s *SchedulerService) processUser(ctx context.Context, tickID, uid string, raw any, clock string, epoch int64) (out userOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("scheduler_user_panic", "tick_id", tickID, "uid", uid, "panic", r)
			out.errors++
		}
	}()

	u, err := models.DecodeUser(uid, raw)
	if err != nil {
		s.log.Warnw("scheduler_user_malformed", "tick_id", tickID, "uid", uid, "err", err)
		out.errors++
		return out
	}
	if len(u.Skipped) > 0 {
		s.log.Warnw("scheduler_entries_skipped", "tick_id", tickID, "uid", uid, "paths", u.Skipped)
		out.skipped += len(u.Skipped)
	}

	window := int64(s.cfg.Cooldown / time.Second)
	for _, venue := range sortedKeys(u.Schedules) {
		devices := u.Schedules[venue]
		for _, device := range sortedKeys(devices) {
			sch := devices[device]
			if !sch.Enabled() || sch.Time != clock || !models.CooledDown(sch.LastNotified, epoch, window) {
				continue
			}
			s.fireSchedule(ctx, tickID, uid, venue, device, sch, epoch, &out)
		}
	}

	if venue, faults, ok := u.FirstFault(); ok && models.CooledDown(u.LastFaultNotification, epoch, window) {
		if err := s.notifier.Send(ctx, uid, TitleFaultDetected, faults); err != nil {
			s.log.Warnw("scheduler_fault_notify_failed", "tick_id", tickID, "uid", uid, "venue", venue, "err", err)
			out.notifyFailed++
		} else {
			out.alerts++
		}
		if err := s.store.Update(ctx, repository.JoinPath(usersRoot, uid), map[string]any{models.KeyLastFault: epoch}); err != nil {
			s.log.Errorw("scheduler_fault_timestamp_failed", "tick_id", tickID, "uid", uid, "err", err)
			out.errors++
		}
	}
	return out
}

// fireSchedule applies the action, notifies and stamps lastNotified, in that
// order. A failed state write stops before the stamp so the schedule can
// fire again.
func (s *SchedulerService) fireSchedule(ctx context.Context, tickID, uid, venue, device string, sch models.Schedule, epoch int64, out *userOutcome) {
	if sch.Action == nil {
		s.log.Warnw("scheduler_schedule_without_action", "tick_id", tickID, "uid", uid, "venue", venue, "device", device)
		out.skipped++
		return
	}
	statePath := repository.JoinPath(usersRoot, uid, models.KeyVenues, venue, device)
	if err := s.store.Set(ctx, statePath, sch.Action); err != nil {
		s.log.Errorw("scheduler_state_write_failed", "tick_id", tickID, "uid", uid, "venue", venue, "device", device, "err", err)
		out.errors++
		return
	}
	out.fired++

	body := fmt.Sprintf("%s in %s set to %v", device, venue, sch.Action)
	if err := s.notifier.Send(ctx, uid, TitleScheduleCompleted, body); err != nil {
		s.log.Warnw("scheduler_schedule_notify_failed", "tick_id", tickID, "uid", uid, "venue", venue, "device", device, "err", err)
		out.notifyFailed++
	}

	schedulePath := repository.JoinPath(usersRoot, uid, models.KeySchedules, venue, device)
	if err := s.store.Update(ctx, schedulePath, map[string]any{models.KeyLastNotified: epoch}); err != nil {
		s.log.Errorw("scheduler_timestamp_write_failed", "tick_id", tickID, "uid", uid, "venue", venue, "device", device, "err", err)
		out.errors++
	}
}

func (s *SchedulerService) report(rep TickReport) {
	s.metrics.Gauge("scheduler.tick.users", float64(rep.Users))
	s.metrics.Gauge("scheduler.tick.duration_ms", float64(rep.Duration.Milliseconds()))
	s.metrics.Count("scheduler.schedules_fired", int64(rep.SchedulesFired))
	s.metrics.Count("scheduler.alerts_sent", int64(rep.AlertsSent))
	s.metrics.Count("scheduler.notifications_failed", int64(rep.NotificationsFailed))
	s.metrics.Count("scheduler.errors", int64(rep.Errors))

	kv := []any{
		"tick_id", rep.TickID, "clock", rep.Clock, "users", rep.Users,
		"fired", rep.SchedulesFired, "alerts", rep.AlertsSent,
		"notify_failed", rep.NotificationsFailed, "skipped", rep.EntriesSkipped,
		"errors", rep.Errors, "duration", rep.Duration,
	}
	if rep.SchedulesFired+rep.AlertsSent+rep.Errors > 0 {
		s.log.Infow("scheduler_tick", kv...)
		return
	}
	s.log.Debugw("scheduler_tick", kv...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
