package sync

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultRetryInitialInterval = 1 * time.Second
	DefaultRetryMultiplier      = 1.2
	DefaultRetryJitter          = 0.5
	DefaultRetryMaxInterval     = 15 * time.Second
	DefaultRetryBudget          = 5 * time.Minute
)

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetryable
	outcomeFatal
)

// Outcome is the classified result of a single remote call.
type Outcome struct {
	kind outcomeKind
	err  error
}

// Success reports that the call completed.
func Success() Outcome { return Outcome{kind: outcomeSuccess} }

// Retryable reports a failure worth trying again (5xx, 429, connectivity).
func Retryable(err error) Outcome { return Outcome{kind: outcomeRetryable, err: err} }

// Fatal reports a failure that must surface to the caller as is.
func Fatal(err error) Outcome { return Outcome{kind: outcomeFatal, err: err} }

func (o Outcome) IsSuccess() bool   { return o.kind == outcomeSuccess }
func (o Outcome) IsRetryable() bool { return o.kind == outcomeRetryable }
func (o Outcome) IsFatal() bool     { return o.kind == outcomeFatal }
func (o Outcome) Err() error        { return o.err }

// Call is a single attempt at a remote operation.
type Call func(ctx context.Context) Outcome

// Dispatcher retries a Call with jittered exponential backoff until it succeeds,
// fails fatally, or the total elapsed time would exceed Budget.
// It knows nothing about what the call does.
type Dispatcher struct {
	InitialInterval     time.Duration
	Multiplier          float64
	RandomizationFactor float64
	MaxInterval         time.Duration
	Budget              time.Duration

	Clock  backoff.Clock
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *zap.Logger
}

// NewDispatcher returns a Dispatcher with the default retry policy.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		InitialInterval:     DefaultRetryInitialInterval,
		Multiplier:          DefaultRetryMultiplier,
		RandomizationFactor: DefaultRetryJitter,
		MaxInterval:         DefaultRetryMaxInterval,
		Budget:              DefaultRetryBudget,
		Clock:               backoff.SystemClock,
		Sleep:               sleepContext,
		Logger:              logger,
	}
}

func (d *Dispatcher) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.InitialInterval
	b.Multiplier = d.Multiplier
	b.RandomizationFactor = d.RandomizationFactor
	b.MaxInterval = d.MaxInterval
	b.MaxElapsedTime = d.Budget
	if d.Clock != nil {
		b.Clock = d.Clock
	}
	b.Reset()
	return b
}

// Do runs call until it stops being retryable.
// Fatal outcomes are returned unmodified; an exhausted budget returns *RetryExhaustedError.
func (d *Dispatcher) Do(ctx context.Context, operation string, call Call) error {
	b := d.newBackOff()
	sleep := d.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 1; ; attempt++ {
		out := call(ctx)
		switch out.kind {
		case outcomeSuccess:
			if attempt > 1 {
				logger.Info("retried call succeeded", zap.String("operation", operation), zap.Int("attempts", attempt))
			}
			return nil
		case outcomeFatal:
			if out.err == nil {
				return errors.New(operation + " failed")
			}
			return out.err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return &RetryExhaustedError{
				Operation: operation,
				Attempts:  attempt,
				Elapsed:   b.GetElapsedTime(),
				Last:      out.err,
			}
		}
		logger.Warn("retrying call",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(out.err),
		)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
