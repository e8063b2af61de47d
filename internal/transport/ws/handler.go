package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	pongWait := 60 * time.Second
	return ConnectionConfig{
		WriteWait:      10 * time.Second,
		PongWait:       pongWait,
		PingPeriod:     (pongWait * 9) / 10,
		MaxMessageSize: 4096,
		SendBuffer:     256,
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins for dev
		},
	}
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	protocol *Protocol
	config   ConnectionConfig
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, protocol *Protocol, config ConnectionConfig) *Handler {
	return &Handler{
		hub:      hub,
		protocol: protocol,
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

// ServeWS handles GET /ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	conn := NewConnection(h.config.SendBuffer)
	h.hub.Register(conn)

	log.Info().
		Str("channel_id", conn.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// Stats handles GET /ws/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.hub.Stats())
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.protocol.Disconnected(conn.ID)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(h.config.MaxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(h.config.PongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("channel_id", conn.ID).Msg("unexpected WebSocket close error")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			h.hub.EmitToChannel(conn.ID, string(MsgError), map[string]string{"error": "invalid message"})
			continue
		}
		if !h.protocol.Submit(conn.ID, &msg) {
			break
		}
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(h.config.PingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
