package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

const (
	channelWM = "wm"

	// DefaultCloseTimeout bounds how long a close request waits for its reply
	DefaultCloseTimeout = 2 * time.Second
)

// ErrNoCompositor is returned for window requests while no compositor is connected
var ErrNoCompositor = errors.New("no compositor connected")

// Poster accepts app events; service.Dispatcher implements it
type Poster interface {
	Post(ev app.Event) error
}

// bridgeWindow is a compositor window. The reader goroutine updates it
// while the app loop reads it, so every field sits behind mu.
type bridgeWindow struct {
	mu sync.RWMutex
	p  types.WindowPayload
}

func (w *bridgeWindow) ID() string { return w.p.ID }

func (w *bridgeWindow) PID() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.p.PID
}

func (w *bridgeWindow) Title() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.p.Title
}

func (w *bridgeWindow) WMClass() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.p.WMClass
}

func (w *bridgeWindow) Workspace() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.p.Workspace
}

func (w *bridgeWindow) SkipTaskbar() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.p.SkipTaskbar
}

// update applies a window_updated payload. PID and class are fixed at creation.
func (w *bridgeWindow) update(p types.WindowPayload) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.p.Title = p.Title
	w.p.Workspace = p.Workspace
	w.p.SkipTaskbar = p.SkipTaskbar
}

// compositor is the single live /wm connection
type compositor struct {
	id   string
	conn *websocket.Conn
	wmu  sync.Mutex // gorilla allows one concurrent writer
}

func (c *compositor) write(msg types.WSMessage) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return writeMessage(c.conn, msg)
}

// Bridge connects a compositor to the app core. Window events arrive over
// the socket and become app events; app.WindowManager calls go back out.
type Bridge struct {
	logger       *zap.Logger
	metrics      *monitoring.Metrics
	upgrader     websocket.Upgrader
	closeTimeout time.Duration

	poster atomic.Pointer[Poster]

	workspace atomic.Int64

	mu      sync.Mutex
	conn    *compositor
	windows map[string]*bridgeWindow
	pending map[id.RequestID]chan bool
}

// BridgeOption configures a Bridge
type BridgeOption func(*Bridge)

// WithCloseTimeout sets how long RequestClose waits for the compositor
func WithCloseTimeout(timeout time.Duration) BridgeOption {
	return func(b *Bridge) {
		if timeout > 0 {
			b.closeTimeout = timeout
		}
	}
}

// NewBridge creates a window manager bridge. Events are dropped until
// SetPoster is called.
func NewBridge(logger *zap.Logger, metrics *monitoring.Metrics, origins []string, opts ...BridgeOption) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		logger:       logger.Named("wm"),
		metrics:      metrics,
		upgrader:     newUpgrader(origins),
		closeTimeout: DefaultCloseTimeout,
		windows:      make(map[string]*bridgeWindow),
		pending:      make(map[id.RequestID]chan bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetPoster sets where compositor events go. The manager needs the bridge
// before the dispatcher exists, so this is bound late.
func (b *Bridge) SetPoster(p Poster) {
	b.poster.Store(&p)
}

// Connected reports whether a compositor is attached
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Windows returns the number of windows the compositor reported
func (b *Bridge) Windows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.windows)
}

// Activate implements app.WindowManager
func (b *Bridge) Activate(w app.Window, timestamp uint32) error {
	return b.send(types.WSMessage{Type: "activate", WindowID: w.ID(), Timestamp: timestamp})
}

// MoveToWorkspace implements app.WindowManager
func (b *Bridge) MoveToWorkspace(w app.Window, workspace int) error {
	return b.send(types.WSMessage{Type: "move", WindowID: w.ID(), Workspace: workspace})
}

// RequestClose implements app.WindowManager. Every close request goes out
// before any reply is awaited, and all replies share one close timeout, so
// the caller waits at most that long whatever the window count. A window
// that does not answer in time counts as refused.
func (b *Bridge) RequestClose(windows []app.Window, timestamp uint32) []bool {
	accepted := make([]bool, len(windows))
	replies := make([]chan bool, len(windows))
	reqIDs := make([]id.RequestID, 0, len(windows))
	defer func() {
		b.mu.Lock()
		for _, reqID := range reqIDs {
			delete(b.pending, reqID)
		}
		b.mu.Unlock()
	}()

	waiting := 0
	for i, w := range windows {
		reqID := id.NewRequestID()
		reply := make(chan bool, 1)
		b.mu.Lock()
		b.pending[reqID] = reply
		b.mu.Unlock()
		reqIDs = append(reqIDs, reqID)

		msg := types.WSMessage{Type: "close", RequestID: reqID.String(), WindowID: w.ID(), Timestamp: timestamp}
		if err := b.send(msg); err != nil {
			b.logger.Debug("Close request not sent", zap.String("window_id", w.ID()), zap.Error(err))
			continue
		}
		replies[i] = reply
		waiting++
	}
	if waiting == 0 {
		return accepted
	}

	timer := time.NewTimer(b.closeTimeout)
	defer timer.Stop()
	for i, reply := range replies {
		if reply == nil {
			continue
		}
		select {
		case accepted[i] = <-reply:
			waiting--
		case <-timer.C:
			b.logger.Warn("Close requests timed out", zap.Int("unanswered", waiting))
			return accepted
		}
	}
	return accepted
}

// ActiveWorkspace implements app.WindowManager
func (b *Bridge) ActiveWorkspace() int {
	return int(b.workspace.Load())
}

func (b *Bridge) send(msg types.WSMessage) error {
	b.mu.Lock()
	c := b.conn
	b.mu.Unlock()
	if c == nil {
		return ErrNoCompositor
	}
	if err := c.write(msg); err != nil {
		return err
	}
	b.recordMessage("out", msg.Type)
	return nil
}

// HandleConnection upgrades the request and serves the compositor until it
// disconnects. Only one compositor may be attached at a time.
func (b *Bridge) HandleConnection(c *gin.Context) {
	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	comp := &compositor{id: uuid.NewString(), conn: conn}

	b.mu.Lock()
	if b.conn != nil {
		b.mu.Unlock()
		_ = comp.write(types.WSMessage{Type: "error", Message: "compositor already connected"})
		conn.Close()
		return
	}
	b.conn = comp
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.IncWSConnections(channelWM)
	}
	b.logger.Info("Compositor connected", zap.String("conn_id", comp.id))

	done := make(chan struct{})
	go b.pingLoop(comp, done)
	b.readLoop(comp)
	close(done)
	b.disconnect(comp)
}

func (b *Bridge) pingLoop(c *compositor, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.wmu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (b *Bridge) readLoop(c *compositor) {
	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("Compositor read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg types.WSMessage
		if codec.Unmarshal(data, &msg) != nil {
			err = errors.New("malformed message")
		} else {
			b.recordMessage("in", msg.Type)
			err = b.handle(c, msg)
		}
		if err != nil {
			b.logger.Debug("Compositor message rejected",
				zap.String("type", msg.Type),
				zap.Error(err))
			if werr := c.write(types.WSMessage{Type: "error", RequestID: msg.RequestID, Message: err.Error()}); werr == nil {
				b.recordMessage("out", "error")
			}
		}
	}
}

// handle applies one compositor message
func (b *Bridge) handle(c *compositor, msg types.WSMessage) error {
	switch msg.Type {
	case "window_created":
		if msg.Window == nil || msg.Window.ID == "" {
			return errors.New("window_created requires a window")
		}
		w := &bridgeWindow{p: *msg.Window}
		b.mu.Lock()
		if _, exists := b.windows[w.p.ID]; exists {
			b.mu.Unlock()
			return nil
		}
		b.windows[w.p.ID] = w
		b.mu.Unlock()

		if err := b.post(app.WindowCreated{Window: w, LaunchToken: msg.LaunchToken}); err != nil {
			return err
		}
		if msg.Window.Busy {
			return b.post(app.WindowBusyChanged{WindowID: w.p.ID, Busy: true})
		}
		return nil

	case "window_destroyed":
		b.mu.Lock()
		delete(b.windows, msg.WindowID)
		b.mu.Unlock()
		return b.post(app.WindowDestroyed{WindowID: msg.WindowID})

	case "window_busy":
		return b.post(app.WindowBusyChanged{WindowID: msg.WindowID, Busy: msg.Busy})

	case "window_focused":
		return b.post(app.WindowFocused{WindowID: msg.WindowID, Timestamp: msg.Timestamp})

	case "window_updated":
		if msg.Window == nil {
			return errors.New("window_updated requires a window")
		}
		b.mu.Lock()
		w, ok := b.windows[msg.Window.ID]
		b.mu.Unlock()
		if !ok {
			return app.ErrUnknownWindow
		}
		w.update(*msg.Window)
		return b.post(app.WindowUpdated{WindowID: msg.Window.ID})

	case "active_workspace":
		b.workspace.Store(int64(msg.Workspace))
		return nil

	case "close_reply":
		b.mu.Lock()
		reply, ok := b.pending[id.RequestID(msg.RequestID)]
		b.mu.Unlock()
		if ok {
			// Only the first answer counts
			select {
			case reply <- msg.Accepted:
			default:
			}
		}
		return nil

	case "ping":
		if err := c.write(types.WSMessage{Type: "pong", RequestID: msg.RequestID}); err != nil {
			return err
		}
		b.recordMessage("out", "pong")
		return nil

	default:
		return errors.New("unknown message type: " + msg.Type)
	}
}

func (b *Bridge) post(ev app.Event) error {
	p := b.poster.Load()
	if p == nil {
		b.logger.Debug("Dropped event without dispatcher", zap.String("event", app.EventName(ev)))
		return nil
	}
	return (*p).Post(ev)
}

// disconnect forgets the compositor. Its windows are gone with it.
func (b *Bridge) disconnect(c *compositor) {
	c.conn.Close()

	b.mu.Lock()
	if b.conn == c {
		b.conn = nil
	}
	windows := b.windows
	b.windows = make(map[string]*bridgeWindow)
	b.mu.Unlock()

	for windowID := range windows {
		if err := b.post(app.WindowDestroyed{WindowID: windowID}); err != nil {
			break
		}
	}

	if b.metrics != nil {
		b.metrics.DecWSConnections(channelWM)
	}
	b.logger.Info("Compositor disconnected",
		zap.String("conn_id", c.id),
		zap.Int("windows", len(windows)))
}

// Close drops the compositor connection, if any
func (b *Bridge) Close() {
	b.mu.Lock()
	c := b.conn
	b.mu.Unlock()
	if c != nil {
		c.conn.Close()
	}
}

func (b *Bridge) recordMessage(direction, msgType string) {
	if b.metrics != nil {
		b.metrics.RecordWSMessage(direction, msgType)
	}
}
