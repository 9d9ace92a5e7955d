package turn

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/teslashibe/go-floor/pkg/perception"
)

// DefaultTickPeriod matches the reference polling loop.
const DefaultTickPeriod = 50 * time.Millisecond

const heartbeatEvery = 100

// Sink receives every successful snapshot.
type Sink interface {
	Publish(Snapshot)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Snapshot)

// Publish implements Sink.
func (f SinkFunc) Publish(s Snapshot) { f(s) }

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Period between ticks. Defaults to DefaultTickPeriod.
	Period time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Runner polls a perception source at a fixed rate and feeds the controller.
type Runner struct {
	ctl    *Controller
	source perception.Source
	sinks  []Sink
	period time.Duration
	logger *slog.Logger

	ticks    uint64
	rejected uint64
}

// NewRunner creates a runner. Sinks are called on the runner goroutine, in
// order, after each successful tick; they must not block.
func NewRunner(ctl *Controller, source perception.Source, cfg RunnerConfig, sinks ...Sink) *Runner {
	if cfg.Period <= 0 {
		cfg.Period = DefaultTickPeriod
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		ctl:    ctl,
		source: source,
		sinks:  sinks,
		period: cfg.Period,
		logger: cfg.Logger,
	}
}

// Run ticks until ctx is cancelled or the source is exhausted, both of which
// return nil. A broken rule set or a failing source returns the error.
// Rejected vectors are logged by the controller and skipped.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return ErrNoSource
	}

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.logger.Info("turn runner started", "period", r.period, "controller", r.ctl.ID())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("turn runner stopped", "ticks", r.ticks)
			return nil
		case <-ticker.C:
			done, err := r.runOnce(ctx)
			if err != nil || done {
				return err
			}
		}
	}
}

// runOnce pulls one frame and ticks. done reports a clean end of input.
func (r *Runner) runOnce(ctx context.Context) (done bool, err error) {
	frame, err := r.source.Next(ctx)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, perception.ErrExhausted):
		r.logger.Info("perception source exhausted", "ticks", r.ticks)
		return true, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true, nil
	default:
		return true, err
	}

	snap, err := r.ctl.Update(frame)
	r.ticks++
	if err != nil {
		if IsFatal(err) {
			return true, err
		}
		r.rejected++
		return false, nil
	}

	for _, s := range r.sinks {
		s.Publish(snap)
	}

	if r.ticks%heartbeatEvery == 0 {
		r.logger.Info("turn runner heartbeat",
			"ticks", r.ticks,
			"rejected", r.rejected,
			"state", snap.State,
			"queued", snap.ActionQueued,
			"running", snap.ActionRunning,
		)
	}
	return false, nil
}
