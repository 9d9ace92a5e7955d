// Package turn drives a GANDALF engine from live perception.
//
// The Controller owns the robot's side of the floor: whether an action is
// queued, whether one is running, and when turn-relevant activity was last
// seen. On each tick it writes those bits into the observation vector,
// runs the engine once and enforces the running-action safety ceiling.
//
// Ticks are single-threaded. Other goroutines interact only through
// QueueAction, EndAction and the published Snapshot readers.
package turn

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-floor/pkg/fsm"
	"github.com/teslashibe/go-floor/pkg/gandalf"
	"github.com/teslashibe/go-floor/pkg/observation"
	"github.com/teslashibe/go-floor/pkg/perception"
)

// DefaultActionCeiling is how long a running action may last before the
// controller clears it.
const DefaultActionCeiling = 2000 * time.Millisecond

// Snapshot is the externally visible outcome of one tick.
type Snapshot struct {
	ControllerID  string             `json:"controller_id"`
	Variant       string             `json:"variant"`
	Tick          uint64             `json:"tick"`
	At            time.Time          `json:"at"`
	State         string             `json:"state"`
	Previous      string             `json:"previous"`
	Transition    string             `json:"transition,omitempty"`
	Changed       bool               `json:"changed"`
	Vector        observation.Vector `json:"vector"`
	Channels      map[string]any     `json:"channels"`
	ActionQueued  bool               `json:"action_queued"`
	ActionRunning bool               `json:"action_running"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the system clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithLogger sets the controller logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(ctl *Controller) { ctl.metrics = m }
}

// WithTransformer sets the frame transformer used by Update.
func WithTransformer(t Transformer) Option {
	return func(ctl *Controller) { ctl.transformer = t }
}

// WithActionCeiling overrides DefaultActionCeiling.
func WithActionCeiling(d time.Duration) Option {
	return func(ctl *Controller) { ctl.ceiling = d }
}

// WithID sets the controller ID instead of a random UUID.
func WithID(id string) Option {
	return func(ctl *Controller) { ctl.id = id }
}

// Controller runs one GANDALF engine.
type Controller struct {
	id          string
	variant     gandalf.Variant
	machine     *fsm.Machine[observation.Vector]
	clock       Clock
	logger      *slog.Logger
	metrics     *Metrics
	transformer Transformer
	ceiling     time.Duration

	// Owned by the tick goroutine.
	actionQueued    bool
	actionRunning   bool
	lastActivity    time.Time
	actionStartedAt time.Time
	ticks           uint64
	now             time.Time

	// Cross-goroutine hand-off.
	queueReq   atomic.Bool
	endReq     atomic.Bool
	pubQueued  atomic.Bool
	pubRunning atomic.Bool
	last       atomic.Pointer[Snapshot]
	ticking    atomic.Bool
}

// New builds a controller for variant v, starting in the variant's initial
// state (see gandalf.InitialState) with nothing queued or running.
func New(v gandalf.Variant, opts ...Option) (*Controller, error) {
	c := &Controller{
		id:      uuid.NewString(),
		variant: v,
		clock:   SystemClock{},
		ceiling: DefaultActionCeiling,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("controller", c.id, "variant", string(v))
	if c.transformer == nil {
		c.transformer = TransformerFor(v == gandalf.MultiParty, 0)
	}

	m, err := gandalf.NewMachine(v, turnHooks{c}, fsm.WithLogger[observation.Vector](c.logger))
	if err != nil {
		return nil, err
	}
	c.machine = m

	c.now = c.clock.Now()
	c.lastActivity = c.now
	initial := m.Current()
	vec := c.inject(observation.Zero())
	c.last.Store(&Snapshot{
		ControllerID: c.id,
		Variant:      string(v),
		At:           c.now,
		State:        initial,
		Previous:     initial,
		Vector:       vec,
		Channels:     vec.Map(),
	})
	return c, nil
}

// turnHooks binds the engine's "I have turn" hooks to the controller.
// They run on the tick goroutine inside Machine.Update.
type turnHooks struct {
	c *Controller
}

func (h turnHooks) StartTurn() {
	c := h.c
	c.actionQueued = false
	c.actionRunning = true
	c.actionStartedAt = c.now
	c.logger.Info("turn started")
}

func (h turnHooks) EndTurn() {
	h.c.logger.Debug("turn ended")
}

// ID returns the controller session ID.
func (c *Controller) ID() string { return c.id }

// Variant returns the rule set in use.
func (c *Controller) Variant() gandalf.Variant { return c.variant }

// Machine exposes the engine for read-only inspection (graph, states).
func (c *Controller) Machine() *fsm.Machine[observation.Vector] { return c.machine }

// QueueAction asks for the floor. It is safe from any goroutine, idempotent
// while a request is pending, and takes effect on the next tick.
func (c *Controller) QueueAction() {
	if c.metrics != nil {
		c.metrics.QueueRequests.Inc()
	}
	c.queueReq.Store(true)
}

// EndAction ends the running action early. It takes effect on the next tick
// and is ignored if nothing is running by then.
func (c *Controller) EndAction() {
	c.endReq.Store(true)
}

// ActionQueued reports the flag as of the last completed tick.
func (c *Controller) ActionQueued() bool { return c.pubQueued.Load() }

// ActionRunning reports the flag as of the last completed tick.
func (c *Controller) ActionRunning() bool { return c.pubRunning.Load() }

// State returns the engine's active state.
func (c *Controller) State() string { return c.machine.Current() }

// Last returns the most recent snapshot.
func (c *Controller) Last() Snapshot { return *c.last.Load() }

// Update transforms a perception frame and ticks. Unlike Tick, the activity
// clock always supplies time_since_last_activity here, for both variants.
func (c *Controller) Update(f perception.Frame) (Snapshot, error) {
	return c.tick(c.transformer.Transform(f), true)
}

// Tick evaluates one observation vector. For the multi-party variant the
// controller overwrites time_since_last_activity from its own clock; the
// single-party variant trusts the value supplied.
//
// A vector that fails validation leaves the state, the controller flags and
// any pending requests untouched; the previous snapshot is returned with the
// error.
func (c *Controller) Tick(v observation.Vector) (Snapshot, error) {
	return c.tick(v, c.variant.ControllerClock())
}

func (c *Controller) tick(v observation.Vector, ownClock bool) (Snapshot, error) {
	if !c.ticking.CompareAndSwap(false, true) {
		err := &fsm.ConcurrencyViolation{Machine: c.machine.Name(), Op: "tick"}
		c.reject(err)
		return c.Last(), err
	}
	defer c.ticking.Store(false)

	began := time.Now()
	now := c.clock.Now()

	saved := struct {
		queued, running bool
		last, started   time.Time
		now             time.Time
	}{c.actionQueued, c.actionRunning, c.lastActivity, c.actionStartedAt, c.now}

	queueReq := c.queueReq.Swap(false)
	endReq := c.endReq.Swap(false)

	c.now = now
	if queueReq {
		c.actionQueued = true
	}
	if endReq && c.actionRunning {
		c.actionRunning = false
		c.logger.Info("action ended")
	}
	if v.Bool(observation.VoiceActivity) {
		c.lastActivity = now
	}
	if ownClock {
		v.SetInt(observation.TimeSinceLastActivity, millis(now.Sub(c.lastActivity)))
	}
	v = c.inject(v)

	res, err := c.machine.Update(v)
	if err != nil {
		c.actionQueued, c.actionRunning = saved.queued, saved.running
		c.lastActivity, c.actionStartedAt, c.now = saved.last, saved.started, saved.now
		if queueReq {
			c.queueReq.Store(true)
		}
		if endReq {
			c.endReq.Store(true)
		}
		c.reject(err)
		return c.Last(), err
	}

	if res.Changed {
		c.logger.Info("turn state changed", "from", res.From, "to", res.To, "rule", res.Transition)
	}

	if c.actionRunning && now.Sub(c.actionStartedAt) > c.ceiling {
		c.actionRunning = false
		c.logger.Info("action expired", "ceiling", c.ceiling)
		if c.metrics != nil {
			c.metrics.Expiries.Inc()
		}
	}

	c.ticks++
	snap := Snapshot{
		ControllerID:  c.id,
		Variant:       string(c.variant),
		Tick:          c.ticks,
		At:            now,
		State:         res.To,
		Previous:      res.From,
		Transition:    res.Transition,
		Changed:       res.Changed,
		Vector:        v,
		Channels:      v.Map(),
		ActionQueued:  c.actionQueued,
		ActionRunning: c.actionRunning,
	}
	c.pubQueued.Store(c.actionQueued)
	c.pubRunning.Store(c.actionRunning)
	c.last.Store(&snap)

	if c.metrics != nil {
		c.metrics.Ticks.Inc()
		if res.Changed {
			c.metrics.Transitions.WithLabelValues(res.From, res.To).Inc()
		}
		c.metrics.ActionQueued.Set(boolGauge(c.actionQueued))
		c.metrics.ActionRunning.Set(boolGauge(c.actionRunning))
		c.metrics.TickDuration.Observe(float64(time.Since(began).Microseconds()))
	}
	return snap, nil
}

// inject writes the controller-owned action flags into v.
func (c *Controller) inject(v observation.Vector) observation.Vector {
	v.SetBool(observation.ActionQueued, c.actionQueued)
	v.SetBool(observation.RunningAction, c.actionRunning)
	return v
}

func (c *Controller) reject(err error) {
	reason := rejectReason(err)
	if c.metrics != nil {
		c.metrics.Rejected.WithLabelValues(reason).Inc()
	}
	if reason == reasonFatal {
		c.logger.Error("tick failed", "error", err)
		return
	}
	c.logger.Warn("tick rejected", "reason", reason, "error", err)
}
