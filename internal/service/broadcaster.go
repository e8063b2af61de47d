package service

import (
	"context"
	"errors"
)

// EventSessionUpdate carries the question list of a session to its room
const EventSessionUpdate = "session-update"

// ErrUnavailable is returned when the dispatch loop no longer accepts work
var ErrUnavailable = errors.New("session dispatch stopped")

// Broadcaster delivers events to the participants of a session (avoids import cycle)
type Broadcaster interface {
	EmitToRoom(roomKey, event string, payload interface{})
	EmitToChannel(channelID, event string, payload interface{}) bool
}

// Dispatcher runs fn in order with participant messages and waits for it
type Dispatcher interface {
	Dispatch(ctx context.Context, fn func()) error
}
