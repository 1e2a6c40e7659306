package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

// ErrStopped is returned for work queued after the loop has exited
var ErrStopped = errors.New("dispatcher stopped")

// DefaultLaunchTimeout bounds how long a launch may wait for a window
const DefaultLaunchTimeout = 15 * time.Second

// op is one unit of loop work: an event or a command
type op struct {
	event app.Event
	fn    func(*app.Manager) error
	reply chan error
}

// Dispatcher serializes all access to an app.Manager
type Dispatcher struct {
	manager *app.Manager
	ops     chan op
	done    chan struct{}
	stop    sync.Once
	running atomic.Bool

	timeout time.Duration
	timers  map[string]*time.Timer // loop-owned

	logger *zap.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithLaunchTimeout sets how long a launch may stay unresolved
func WithLaunchTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithQueueSize sets the operation buffer size
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) { d.ops = make(chan op, size) }
}

// NewDispatcher creates a dispatcher for manager. The manager must not be
// used directly once Run is called.
func NewDispatcher(manager *app.Manager, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		manager: manager,
		ops:     make(chan op, 256),
		done:    make(chan struct{}),
		timeout: DefaultLaunchTimeout,
		timers:  make(map[string]*time.Timer),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	manager.Subscribe(d.trackLaunch)
	return d
}

// Run processes queued work until ctx is cancelled, then tears the
// manager down. It may be called once.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("dispatcher already running")
	}
	defer d.shutdown()

	d.logger.Info("Dispatcher started", zap.Duration("launch_timeout", d.timeout))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopping")
			return nil
		case o := <-d.ops:
			d.apply(o)
		}
	}
}

func (d *Dispatcher) apply(o op) {
	if o.event != nil {
		if err := d.manager.Handle(o.event); err != nil {
			d.logEventError(o.event, err)
		}
		return
	}

	o.reply <- d.call(o.fn)
}

// call runs fn, turning a panic into an error so one bad command cannot
// kill the loop.
func (d *Dispatcher) call(fn func(*app.Manager) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Command panicked", zap.Any("panic", r))
			err = errors.New("internal error")
		}
	}()
	return fn(d.manager)
}

func (d *Dispatcher) logEventError(ev app.Event, err error) {
	level := zap.WarnLevel
	if errors.Is(err, app.ErrUnknownWindow) {
		level = zap.DebugLevel
	}
	d.logger.Log(level, "Event rejected",
		zap.String("event", app.EventName(ev)),
		zap.Error(err))
}

func (d *Dispatcher) shutdown() {
	d.stop.Do(func() { close(d.done) })

	for token, timer := range d.timers {
		timer.Stop()
		delete(d.timers, token)
	}

	// Drain what is already queued so Do callers do not hang
	for {
		select {
		case o := <-d.ops:
			if o.reply != nil {
				o.reply <- ErrStopped
			}
		default:
			d.manager.Teardown()
			d.logger.Info("Dispatcher stopped")
			return
		}
	}
}

// Post queues an event. It blocks only while the queue is full.
func (d *Dispatcher) Post(ev app.Event) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}

	select {
	case d.ops <- op{event: ev}:
		return nil
	case <-d.done:
		return ErrStopped
	}
}

// Do runs fn on the loop and returns its error
func (d *Dispatcher) Do(ctx context.Context, fn func(*app.Manager) error) error {
	reply := make(chan error, 1)

	select {
	case d.ops <- op{fn: fn, reply: reply}:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-d.done:
		// shutdown may have answered already
		select {
		case err := <-reply:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query runs fn on the loop and returns its value
func Query[T any](ctx context.Context, d *Dispatcher, fn func(*app.Manager) T) (T, error) {
	var result T
	err := d.Do(ctx, func(m *app.Manager) error {
		result = fn(m)
		return nil
	})
	return result, err
}

// OnExit reports a spawned process exit as an event; it matches the
// spawn backends' exit callback.
func (d *Dispatcher) OnExit(token id.LaunchToken, pid int, err error) {
	if postErr := d.Post(app.LaunchExited{Token: token.String(), PID: pid, Err: err}); postErr != nil {
		d.logger.Debug("Dropped process exit",
			zap.String("token", token.String()),
			zap.Int("pid", pid))
	}
}

// trackLaunch arms and disarms launch timeouts. It runs on the loop.
func (d *Dispatcher) trackLaunch(n types.Notification) {
	if n.Token == "" {
		return
	}

	switch n.Kind {
	case types.NotifyLaunchStarted:
		token := n.Token
		d.timers[token] = time.AfterFunc(d.timeout, func() {
			_ = d.Post(app.LaunchTimedOut{Token: token})
		})
	case types.NotifyLaunchResolved, types.NotifyLaunchFailed:
		if timer, ok := d.timers[n.Token]; ok {
			timer.Stop()
			delete(d.timers, n.Token)
		}
	}
}

// PendingTimeouts returns the number of armed launch timers
func (d *Dispatcher) PendingTimeouts(ctx context.Context) (int, error) {
	return Query(ctx, d, func(*app.Manager) int { return len(d.timers) })
}
