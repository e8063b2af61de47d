package ws

import (
	"encoding/json"
	"errors"
	"livepoll/internal/events"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Inbound message types
const (
	MsgJoinSession      MessageType = "join-session"
	MsgActivateQuestion MessageType = "presenter-activate-question"
	MsgCloseQuestion    MessageType = "presenter-close-question"
	MsgVote             MessageType = "vote"
)

// Outbound message types
const (
	MsgAck               MessageType = "ack"
	MsgSessionSnapshot   MessageType = "session-snapshot"
	MsgQuestionActivated MessageType = "question-activated"
	MsgQuestionClosed    MessageType = "question-closed"
	MsgVoteUpdated       MessageType = "vote-updated"
	MsgSessionUpdate     MessageType = "session-update"
	MsgError             MessageType = "error"
)

// Message is the WebSocket envelope format. ID is echoed back on the ack of
// an inbound message; messages without ID get no ack.
type Message struct {
	Type    MessageType     `json:"type"`
	ID      json.RawMessage `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var ErrUnknownChannel = errors.New("unknown channel")

// Connection is one participant channel. It holds only its id; room
// membership lives in the hub indexes.
type Connection struct {
	ID          string
	Send        chan []byte
	ConnectedAt time.Time
}

// NewConnection creates a channel with a fresh id and a send queue of size buffer
func NewConnection(buffer int) *Connection {
	return &Connection{
		ID:          uuid.New().String(),
		Send:        make(chan []byte, buffer),
		ConnectedAt: time.Now(),
	}
}

// Hub maps sessions to their connected channels ("rooms") and delivers
// events. Each channel belongs to at most one room.
type Hub struct {
	mu      sync.RWMutex
	conns   map[string]*Connection            // channelID -> conn
	rooms   map[string]map[string]*Connection // roomKey -> channelID -> conn
	members map[string]string                 // channelID -> roomKey

	publisher events.Publisher
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		conns:     make(map[string]*Connection),
		rooms:     make(map[string]map[string]*Connection),
		members:   make(map[string]string),
		publisher: events.NewNopPublisher(),
	}
}

// SetPublisher sets where room events are mirrored to
func (h *Hub) SetPublisher(p events.Publisher) {
	h.publisher = p
}

// Register adds a connection that is not yet in any room
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID] = conn
	log.Debug().Str("channel_id", conn.ID).Int("total_connections", len(h.conns)).Msg("channel registered")
}

// Unregister removes a connection from its room and closes its send queue.
// Unregistering an unknown channel is a no-op.
func (h *Hub) Unregister(channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[channelID]
	if !ok {
		return
	}
	h.removeMember(channelID)
	delete(h.conns, channelID)
	close(conn.Send)
	log.Debug().Str("channel_id", channelID).Msg("channel unregistered")
}

// Join puts the channel in roomKey, moving it out of any previous room
func (h *Hub) Join(channelID, roomKey string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[channelID]
	if !ok {
		return ErrUnknownChannel
	}
	if current, in := h.members[channelID]; in {
		if current == roomKey {
			return nil
		}
		h.removeMember(channelID)
	}
	if h.rooms[roomKey] == nil {
		h.rooms[roomKey] = make(map[string]*Connection)
	}
	h.rooms[roomKey][channelID] = conn
	h.members[channelID] = roomKey

	log.Debug().
		Str("channel_id", channelID).
		Str("session_id", roomKey).
		Int("room_size", len(h.rooms[roomKey])).
		Msg("channel joined room")
	return nil
}

// Leave takes the channel out of roomKey if it is a member
func (h *Hub) Leave(channelID, roomKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.members[channelID] == roomKey {
		h.removeMember(channelID)
	}
}

// removeMember must be called with h.mu held
func (h *Hub) removeMember(channelID string) {
	roomKey, ok := h.members[channelID]
	if !ok {
		return
	}
	delete(h.members, channelID)
	if room, ok := h.rooms[roomKey]; ok {
		delete(room, channelID)
		if len(room) == 0 {
			delete(h.rooms, roomKey)
		}
	}
}

// RoomOf returns the room the channel is in, or ""
func (h *Hub) RoomOf(channelID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.members[channelID]
}

// Members returns the ids of the channels in roomKey
func (h *Hub) Members(roomKey string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[roomKey]))
	for id := range h.rooms[roomKey] {
		ids = append(ids, id)
	}
	return ids
}

// EmitToRoom delivers an event to every channel currently in roomKey
// (implements service.Broadcaster)
func (h *Hub) EmitToRoom(roomKey, event string, payload interface{}) {
	data, err := encode(MessageType(event), nil, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event for broadcast")
		return
	}

	h.mu.RLock()
	var slow []string
	for id, conn := range h.rooms[roomKey] {
		if !enqueue(conn, data) {
			slow = append(slow, id)
		}
	}
	delivered := len(h.rooms[roomKey]) - len(slow)
	h.mu.RUnlock()

	h.evict(slow)
	h.publisher.Publish(roomKey, event, data)

	log.Debug().
		Str("event", event).
		Str("session_id", roomKey).
		Int("connections", delivered).
		Msg("event broadcasted")
}

// EmitToChannel delivers an event to one channel (implements service.Broadcaster)
func (h *Hub) EmitToChannel(channelID, event string, payload interface{}) bool {
	data, err := encode(MessageType(event), nil, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return false
	}
	return h.sendRaw(channelID, data)
}

// Ack answers an inbound message carrying id
func (h *Hub) Ack(channelID string, id json.RawMessage, payload interface{}) bool {
	data, err := encode(MsgAck, id, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal ack")
		return false
	}
	return h.sendRaw(channelID, data)
}

func (h *Hub) sendRaw(channelID string, data []byte) bool {
	h.mu.RLock()
	conn, ok := h.conns[channelID]
	sent := ok && enqueue(conn, data)
	h.mu.RUnlock()

	if ok && !sent {
		h.evict([]string{channelID})
	}
	return sent
}

// evict drops channels whose send queue is full. The closed queue makes the
// write pump close the socket, which in turn ends the read pump.
func (h *Hub) evict(channelIDs []string) {
	for _, id := range channelIDs {
		log.Warn().Str("channel_id", id).Msg("channel send buffer full, closing connection")
		h.Unregister(id)
	}
}

// enqueue must be called with h.mu held (read or write); Unregister closes
// queues only under the write lock.
func enqueue(conn *Connection, data []byte) bool {
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

func encode(msgType MessageType, id json.RawMessage, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{
		Type:    msgType,
		ID:      id,
		Payload: data,
	})
}

// Stats describes the live connections of the hub
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

// Stats returns statistics about active connections
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int, len(h.rooms))
	for key, room := range h.rooms {
		counts[key] = len(room)
	}
	return Stats{
		TotalConnections: len(h.conns),
		ActiveRooms:      len(h.rooms),
		RoomConnections:  counts,
	}
}
