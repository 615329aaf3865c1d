package remote

import (
	"context"
	"fmt"
	"time"

	"venue_control/internal/logger"
)

// Defaults match the call budget of the identity and push endpoints.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultTimeout     = 5 * time.Second
)

// Attempt performs one try of an outbound call. ctx carries the per-attempt
// timeout.
type Attempt func(ctx context.Context) Result

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Executor runs attempts with bounded retries and exponential backoff.
// It keeps no state between Execute calls.
type Executor struct {
	cfg      Config
	classify Classifier
	sleep    func(ctx context.Context, d time.Duration) error
	log      *logger.Logger
}

// New returns an executor. A nil classifier means IsTransient.
func New(cfg Config, classify Classifier, log *logger.Logger) *Executor {
	if classify == nil {
		classify = IsTransient
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{cfg: cfg.withDefaults(), classify: classify, sleep: sleepCtx, log: log}
}

// WithSleep replaces the backoff sleeper; tests use it to skip real delays.
func (e *Executor) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Executor {
	cp := *e
	cp.sleep = fn
	return &cp
}

// Option tunes a single Execute call.
type Option func(*callOptions)

type callOptions struct {
	timeout time.Duration
}

// WithTimeout overrides the per-attempt timeout for one call.
func WithTimeout(d time.Duration) Option {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Backoff returns the delay before the attempt following attempt n (1-based):
// base, 2*base, 4*base, ...
func (e *Executor) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return e.cfg.BaseDelay << (n - 1)
}

// Execute runs attempt until it succeeds, fails terminally, or the attempt
// budget is spent. The returned error is always an *Error.
func (e *Executor) Execute(ctx context.Context, op string, attempt Attempt, opts ...Option) ([]byte, error) {
	o := callOptions{timeout: e.cfg.Timeout}
	for _, fn := range opts {
		fn(&o)
	}

	var lastErr error
	for n := 1; n <= e.cfg.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Op: op, Class: ClassTerminal, Attempts: n - 1, Err: err}
		}

		res := e.runOnce(ctx, o.timeout, attempt)
		switch res.Kind {
		case KindOK:
			return res.Body, nil
		case KindRemoteError:
			e.log.Warnw("remote_call_rejected", "op", op, "attempt", n, "message", res.Message)
			return nil, &Error{Op: op, Class: ClassRemote, Message: res.Message, Attempts: n}
		}

		lastErr = res.Err
		if lastErr == nil {
			lastErr = fmt.Errorf("attempt returned failure without error")
		}
		if ctx.Err() != nil || !e.classify(lastErr) {
			e.log.Errorw("remote_call_failed", "op", op, "attempt", n, "err", lastErr)
			return nil, &Error{Op: op, Class: ClassTerminal, Attempts: n, Err: lastErr}
		}
		if n == e.cfg.MaxAttempts {
			break
		}

		delay := e.Backoff(n)
		e.log.Infow("remote_call_retry", "op", op, "attempt", n, "max_attempts", e.cfg.MaxAttempts, "delay", delay, "err", lastErr)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, &Error{Op: op, Class: ClassTerminal, Attempts: n, Err: err}
		}
	}

	e.log.Errorw("remote_call_unavailable", "op", op, "attempts", e.cfg.MaxAttempts, "err", lastErr)
	return nil, &Error{
		Op:       op,
		Class:    ClassUnavailable,
		Message:  "external service unreachable",
		Attempts: e.cfg.MaxAttempts,
		Err:      lastErr,
	}
}

func (e *Executor) runOnce(ctx context.Context, timeout time.Duration, attempt Attempt) Result {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return attempt(actx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
