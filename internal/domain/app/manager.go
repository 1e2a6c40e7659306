package app

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/utils"
)

// Manager owns every App keyed by id and routes window manager events to
// them. Like App it is driven by a single goroutine.
type Manager struct {
	apps    map[string]*App
	byClass map[string]*App // lowercased wm class -> installed app
	owners  *ownership
	focused *App

	wm            WindowManager
	spawner       Spawner
	appIdentifier *utils.AppIdentifier

	subscribers map[int]func(types.Notification)
	nextSub     int

	logger  *zap.Logger
	metrics *monitoring.Metrics
	now     func() time.Time

	initialized bool
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics adds metrics tracking to the manager
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a new app manager
func NewManager(wm WindowManager, spawner Spawner, opts ...Option) *Manager {
	m := &Manager{
		apps:          make(map[string]*App),
		byClass:       make(map[string]*App),
		owners:        newOwnership(),
		wm:            wm,
		spawner:       spawner,
		appIdentifier: utils.NewAppIdentifier(utils.DefaultHasher()),
		subscribers:   make(map[int]func(types.Notification)),
		logger:        zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) env() env {
	return env{
		wm:      m.wm,
		spawner: m.spawner,
		owners:  m.owners,
		notify:  m.dispatch,
		logger:  m.logger,
		metrics: m.metrics,
		now:     m.now,
	}
}

// Init creates a STOPPED app for every descriptor. It may run once.
func (m *Manager) Init(descriptors []*types.Descriptor) error {
	if m.initialized {
		return errors.New("app manager already initialized")
	}

	for _, d := range descriptors {
		if d == nil {
			continue
		}
		if _, exists := m.apps[d.ID]; exists {
			m.logger.Warn("Duplicate descriptor ignored", zap.String("app_id", d.ID))
			continue
		}
		a := newApp(d.ID, InstalledSource(d), m.env())
		m.apps[d.ID] = a

		for _, class := range []string{d.StartupWMClass, d.ID} {
			key := strings.ToLower(class)
			if key == "" {
				continue
			}
			if _, taken := m.byClass[key]; !taken {
				m.byClass[key] = a
			}
		}
	}

	m.initialized = true
	m.updateMetrics()
	m.logger.Info("App manager initialized", zap.Int("apps", len(m.apps)))
	return nil
}

// Teardown drops every app, window and subscriber. In-flight launches are
// abandoned without notifications.
func (m *Manager) Teardown() {
	m.apps = make(map[string]*App)
	m.byClass = make(map[string]*App)
	m.owners = newOwnership()
	m.focused = nil
	m.subscribers = make(map[int]func(types.Notification))
	m.initialized = false
	m.updateMetrics()
	m.logger.Info("App manager torn down")
}

// Subscribe registers fn for every notification. The returned func removes it.
func (m *Manager) Subscribe(fn func(types.Notification)) func() {
	key := m.nextSub
	m.nextSub++
	m.subscribers[key] = fn
	return func() { delete(m.subscribers, key) }
}

func (m *Manager) dispatch(n types.Notification) {
	if n.Kind == types.NotifyStateChanged || n.Kind == types.NotifyWindowsChanged {
		m.updateMetrics()
	}

	keys := make([]int, 0, len(m.subscribers))
	for k := range m.subscribers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if fn, ok := m.subscribers[k]; ok {
			fn(n)
		}
	}
}

func (m *Manager) updateMetrics() {
	if m.metrics == nil {
		return
	}
	var stopped, starting, running int
	for _, a := range m.apps {
		switch a.state {
		case types.StateStopped:
			stopped++
		case types.StateStarting:
			starting++
		case types.StateRunning:
			running++
		}
	}
	m.metrics.SetAppStates(stopped, starting, running)
	m.metrics.SetWindowsTracked(len(m.owners.owners))
}

// Lookup finds an app by id
func (m *Manager) Lookup(appID string) (*App, bool) {
	a, ok := m.apps[appID]
	return a, ok
}

// Get finds an app by id, failing with ErrUnknownApp
func (m *Manager) Get(appID string) (*App, error) {
	a, ok := m.apps[appID]
	if !ok {
		return nil, newError("lookup", appID, ErrUnknownApp)
	}
	return a, nil
}

// Apps returns every app sorted by name
func (m *Manager) Apps() []*App {
	apps := make([]*App, 0, len(m.apps))
	for _, a := range m.apps {
		apps = append(apps, a)
	}
	SortByName(apps)
	return apps
}

// Running returns starting and running apps, most recently used first
func (m *Manager) Running() []*App {
	apps := make([]*App, 0)
	for _, a := range m.apps {
		if a.state.Active() {
			apps = append(apps, a)
		}
	}
	SortByRecency(apps)
	return apps
}

// WindowApp returns the app owning a window
func (m *Manager) WindowApp(windowID string) (*App, bool) {
	a, ok := m.owners.owners[windowID]
	return a, ok
}

// Focused returns the app of the most recently focused window
func (m *Manager) Focused() (*App, bool) {
	return m.focused, m.focused != nil
}

// LaunchApp finds the app holding an in-flight launch
func (m *Manager) LaunchApp(token id.LaunchToken) (*App, bool) {
	for _, a := range m.apps {
		if a.HasLaunch(token) {
			return a, true
		}
	}
	return nil, false
}

// Stats returns manager statistics
func (m *Manager) Stats() types.Stats {
	stats := types.Stats{
		TotalApps:      len(m.apps),
		TrackedWindows: len(m.owners.owners),
	}
	for _, a := range m.apps {
		switch a.state {
		case types.StateRunning:
			stats.RunningApps++
		case types.StateStarting:
			stats.StartingApps++
		}
		if a.IsWindowBacked() {
			stats.WindowBackedApps++
		}
	}
	if m.focused != nil {
		focusedID := m.focused.id
		stats.FocusedAppID = &focusedID
	}
	return stats
}

// Handle applies one event
func (m *Manager) Handle(ev Event) error {
	switch e := ev.(type) {
	case WindowCreated:
		return m.windowCreated(e)
	case WindowDestroyed:
		return m.windowDestroyed(e.WindowID)
	case WindowBusyChanged:
		owner, err := m.owner("window_busy_changed", e.WindowID)
		if err != nil {
			return err
		}
		return owner.setWindowBusy(e.WindowID, e.Busy)
	case WindowFocused:
		owner, err := m.owner("window_focused", e.WindowID)
		if err != nil {
			return err
		}
		owner.focus(e.WindowID, e.Timestamp)
		m.focused = owner
		return nil
	case WindowUpdated:
		owner, err := m.owner("window_updated", e.WindowID)
		if err != nil {
			return err
		}
		owner.emit(types.Notification{Kind: types.NotifyWindowsChanged, WindowID: e.WindowID})
		return nil
	case LaunchFailed:
		m.withLaunch(e.Token, func(a *App) { a.FailLaunch(id.LaunchToken(e.Token), e.Err) })
		return nil
	case LaunchTimedOut:
		m.withLaunch(e.Token, func(a *App) { a.FailLaunch(id.LaunchToken(e.Token), ErrLaunchTimeout) })
		return nil
	case LaunchCancelled:
		m.withLaunch(e.Token, func(a *App) { a.CancelLaunch(id.LaunchToken(e.Token)) })
		return nil
	case LaunchExited:
		m.withLaunch(e.Token, func(a *App) {
			if e.Err != nil {
				a.FailLaunch(id.LaunchToken(e.Token), e.Err)
			} else {
				a.CancelLaunch(id.LaunchToken(e.Token))
			}
		})
		return nil
	default:
		return fmt.Errorf("unhandled event %T", ev)
	}
}

// withLaunch runs fn on the app holding token. Resolved or unknown tokens
// are ignored so launch resolution stays idempotent.
func (m *Manager) withLaunch(token string, fn func(*App)) {
	if a, ok := m.LaunchApp(id.LaunchToken(token)); ok {
		fn(a)
	}
}

func (m *Manager) owner(op, windowID string) (*App, error) {
	a, ok := m.owners.owners[windowID]
	if !ok {
		return nil, &Error{Op: op, Err: ErrUnknownWindow, Cause: errors.New(windowID)}
	}
	return a, nil
}

func (m *Manager) windowCreated(e WindowCreated) error {
	w := e.Window
	if w == nil {
		return errors.New("window_created: nil window")
	}
	if _, owned := m.owners.owners[w.ID()]; owned {
		return nil
	}

	target, reason := m.route(w, e.LaunchToken)
	if target == nil {
		appID := m.windowAppID(w)
		target = newApp(appID, WindowSource(w.ID()), m.env())
		m.apps[appID] = target
		reason = "window_backed"
	}

	m.logger.Debug("Window routed",
		zap.String("window_id", w.ID()),
		zap.String("app_id", target.id),
		zap.String("reason", reason))
	return target.addWindow(w, e.LaunchToken)
}

// windowAppID derives the id of a window-backed app. Window ids are reused,
// and the app founded by an earlier window of the same id may still be alive
// through its other windows, so a taken id is salted until it is free.
func (m *Manager) windowAppID(w Window) string {
	appID := m.appIdentifier.WindowAppID(w.ID(), w.WMClass())
	for n := 1; ; n++ {
		if _, taken := m.apps[appID]; !taken {
			return appID
		}
		appID = m.appIdentifier.WindowAppID(w.ID()+"#"+strconv.Itoa(n), w.WMClass())
	}
}

// route picks the app a new window belongs to: the app that issued the
// window's launch token, the app whose launch spawned the window's process,
// the installed app matching the window's class, or the app already owning
// a window of the same process. A nil result means a window-backed app.
func (m *Manager) route(w Window, token string) (*App, string) {
	if token != "" {
		if a, ok := m.LaunchApp(id.LaunchToken(token)); ok {
			return a, "launch_token"
		}
	}

	if w.PID() > 0 {
		for _, a := range m.sortedApps() {
			if a.launchByPID(w.PID()) != nil {
				return a, "launch_pid"
			}
		}
	}

	if class := strings.ToLower(w.WMClass()); class != "" {
		if a, ok := m.byClass[class]; ok {
			return a, "wm_class"
		}
	}

	if w.PID() > 0 {
		for _, a := range m.sortedApps() {
			if slices.Contains(a.PIDs(), w.PID()) {
				return a, "pid"
			}
		}
	}

	return nil, ""
}

func (m *Manager) sortedApps() []*App {
	ids := make([]string, 0, len(m.apps))
	for appID := range m.apps {
		ids = append(ids, appID)
	}
	slices.Sort(ids)

	apps := make([]*App, len(ids))
	for i, appID := range ids {
		apps[i] = m.apps[appID]
	}
	return apps
}

func (m *Manager) windowDestroyed(windowID string) error {
	owner, err := m.owner("window_destroyed", windowID)
	if err != nil {
		return err
	}
	if err := owner.removeWindow(windowID); err != nil {
		return err
	}

	if owner.IsWindowBacked() && owner.state == types.StateStopped {
		if m.apps[owner.id] == owner {
			delete(m.apps, owner.id)
		}
		if m.focused == owner {
			m.focused = nil
		}
		m.logger.Debug("Window-backed app discarded", zap.String("app_id", owner.id))
		owner.emit(types.Notification{Kind: types.NotifyAppRemoved})
		m.updateMetrics()
	} else if owner.state == types.StateStopped && m.focused == owner {
		m.focused = nil
	}
	return nil
}
