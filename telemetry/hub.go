package telemetry

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub streams published snapshots to websocket clients as JSON. Each client
// first receives the latest snapshot, then every new one.
type Hub struct {
	pub      *Publisher
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHub returns a hub whose upgrades are gated by checkOrigin. A nil
// checkOrigin keeps the websocket default of same-origin only.
func NewHub(pub *Publisher, log *zap.Logger, checkOrigin func(*http.Request) bool) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		pub: pub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	snaps, cancel := h.pub.Subscribe(64)
	client := conn.RemoteAddr().String()
	h.log.Info("telemetry client connected", zap.String("client", client))

	go h.readPump(conn, cancel)
	h.writePump(conn, snaps, cancel)
	h.log.Info("telemetry client disconnected", zap.String("client", client))
}

// readPump discards client frames and cancels the subscription once the
// connection goes away.
func (h *Hub) readPump(conn *websocket.Conn, cancel func()) {
	defer cancel()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("telemetry read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, snaps <-chan Snapshot, cancel func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()

	if s, ok := h.pub.Latest(); ok {
		if err := writeSnapshot(conn, s); err != nil {
			return
		}
	}

	for {
		select {
		case s, ok := <-snaps:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeSnapshot(conn, s); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, s Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(s)
}
