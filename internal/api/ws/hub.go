package ws

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/service"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

const (
	channelStream = "stream"
	clientBuffer  = 64
)

// client is one UI connection on the notification stream
type client struct {
	id   string
	conn *websocket.Conn
	send chan types.StreamMessage
}

// Hub fans app notifications out to UI clients
type Hub struct {
	dispatcher *service.Dispatcher
	logger     *zap.Logger
	metrics    *monitoring.Metrics
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

// NewHub creates a notification hub
func NewHub(dispatcher *service.Dispatcher, logger *zap.Logger, metrics *monitoring.Metrics, origins []string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		dispatcher: dispatcher,
		logger:     logger.Named("stream"),
		metrics:    metrics,
		upgrader:   newUpgrader(origins),
		clients:    make(map[string]*client),
	}
}

// Publish queues a notification for every client. It never blocks; a
// client that cannot keep up is disconnected.
func (h *Hub) Publish(n types.Notification) {
	msg := types.StreamMessage{Type: "notification", Notification: &n}

	h.mu.Lock()
	defer h.mu.Unlock()
	for clientID, c := range h.clients {
		select {
		case c.send <- msg:
			h.recordMessage("out", msg.Type)
		default:
			h.logger.Warn("Dropping slow stream client", zap.String("client_id", clientID))
			h.removeLocked(clientID)
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleConnection upgrades the request and serves one UI client
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan types.StreamMessage, clientBuffer),
	}

	// Registering on the loop means the snapshot and the first
	// notification are consistent.
	apps, err := service.Query(c.Request.Context(), h.dispatcher, func(m *app.Manager) []types.AppInfo {
		h.add(cl)
		return snapshot(m)
	})
	if err != nil {
		h.logger.Warn("Snapshot failed", zap.String("client_id", cl.id), zap.Error(err))
		h.remove(cl.id)
		conn.Close()
		return
	}

	go h.readLoop(cl)
	h.writeLoop(cl, types.StreamMessage{Type: "snapshot", Apps: apps})
}

func snapshot(m *app.Manager) []types.AppInfo {
	apps := m.Apps()
	infos := make([]types.AppInfo, 0, len(apps))
	for _, a := range apps {
		infos = append(infos, a.Info())
	}
	return infos
}

// writeLoop owns all writes to the connection
func (h *Hub) writeLoop(cl *client, first types.StreamMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
		h.remove(cl.id)
		h.logger.Info("Stream client disconnected", zap.String("client_id", cl.id))
	}()

	if err := writeMessage(cl.conn, first); err != nil {
		return
	}
	h.recordMessage("out", first.Type)

	for {
		select {
		case msg, ok := <-cl.send:
			if !ok {
				_ = cl.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			if err := writeMessage(cl.conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readLoop handles pings from the client and notices disconnects
func (h *Hub) readLoop(cl *client) {
	defer h.remove(cl.id)

	cl.conn.SetReadLimit(maxMessage)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg types.WSMessage
		if err := readMessage(cl.conn, &msg); err != nil {
			return
		}
		h.recordMessage("in", msg.Type)

		reply := types.StreamMessage{Type: "error", Message: "unknown message type"}
		if msg.Type == "ping" {
			reply = types.StreamMessage{Type: "pong"}
		}
		h.mu.Lock()
		if h.clients[cl.id] == cl {
			select {
			case cl.send <- reply:
			default:
			}
		}
		h.mu.Unlock()
	}
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.IncWSConnections(channelStream)
	}
	h.logger.Info("Stream client connected", zap.String("client_id", cl.id))
}

func (h *Hub) remove(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(clientID)
}

// removeLocked closes the client's send channel, which ends its writer
func (h *Hub) removeLocked(clientID string) {
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	delete(h.clients, clientID)
	close(c.send)
	if h.metrics != nil {
		h.metrics.DecWSConnections(channelStream)
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for clientID := range h.clients {
		h.removeLocked(clientID)
	}
}

func (h *Hub) recordMessage(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
