package ws

import (
	"net/http"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 64 * 1024
)

var codec = sonic.ConfigStd

// newUpgrader accepts the listed browser origins. Requests without an
// Origin header come from native clients and are always accepted.
func newUpgrader(origins []string) websocket.Upgrader {
	allowAll := slices.Contains(origins, "*")
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowAll || slices.Contains(origins, origin)
		},
	}
}

func writeMessage(conn *websocket.Conn, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func readMessage(conn *websocket.Conn, v any) error {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return codec.Unmarshal(data, v)
}
