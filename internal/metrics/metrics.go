// Package metrics ships scheduler counters to a DogStatsD agent.
package metrics

import (
	"fmt"

	"github.com/DataDog/datadog-go/statsd"

	"venue_control/internal/logger"
)

// Recorder is the sink the scheduler and notifier report to.
type Recorder interface {
	Gauge(name string, value float64, tags ...string)
	Count(name string, value int64, tags ...string)
	Close() error
}

// Statsd sends metrics over UDP. Send errors are logged and dropped.
type Statsd struct {
	client *statsd.Client
	log    *logger.Logger
}

func NewStatsd(addr, namespace string, tags []string, log *logger.Logger) (*Statsd, error) {
	client, err := statsd.New(addr)
	if err != nil {
		return nil, fmt.Errorf("create statsd client for %s: %w", addr, err)
	}
	client.Namespace = namespace
	client.Tags = tags
	if log == nil {
		log = logger.Nop()
	}
	return &Statsd{client: client, log: log}, nil
}

func (s *Statsd) Gauge(name string, value float64, tags ...string) {
	if err := s.client.Gauge(name, value, tags, 1); err != nil {
		s.log.Warnw("metrics_gauge_failed", "metric", name, "err", err)
	}
}

func (s *Statsd) Count(name string, value int64, tags ...string) {
	if err := s.client.Count(name, value, tags, 1); err != nil {
		s.log.Warnw("metrics_count_failed", "metric", name, "err", err)
	}
}

func (s *Statsd) Close() error { return s.client.Close() }

// Nop discards everything.
type Nop struct{}

func (Nop) Gauge(string, float64, ...string) {}
func (Nop) Count(string, int64, ...string)   {}
func (Nop) Close() error                     { return nil }
