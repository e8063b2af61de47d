package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"livepoll/internal/model"
	"livepoll/internal/service"

	"github.com/rs/zerolog/log"
)

const (
	errServerError    = "server error"
	errUnknownEvent   = "Unknown event"
	errInvalidPayload = "Invalid payload"
)

// Rooms is the membership and delivery surface the protocol needs
type Rooms interface {
	service.Broadcaster
	Join(channelID, roomKey string) error
	Unregister(channelID string)
	Ack(channelID string, id json.RawMessage, payload interface{}) bool
}

// channelState is Joined(sessionID, role); absence means Unjoined
type channelState struct {
	sessionID string
	role      model.Role
}

type inbound struct {
	channelID  string
	msg        *Message
	disconnect bool
	task       func()
	result     chan error
}

// Protocol interprets participant messages. Every message of every channel
// goes through Run one at a time, so store mutations and the events they
// emit are never interleaved with another message's.
type Protocol struct {
	store  *service.SessionStore
	rooms  Rooms
	tokens *service.TokenService
	strict bool

	inbox   chan inbound
	stopped chan struct{}
	states  map[string]*channelState // owned by the dispatch loop
}

// NewProtocol creates the protocol handler. With strict set, presenter
// operations require a join as presenter with a valid presenter token.
func NewProtocol(store *service.SessionStore, rooms Rooms, tokens *service.TokenService, strict bool, queueSize int) *Protocol {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Protocol{
		store:   store,
		rooms:   rooms,
		tokens:  tokens,
		strict:  strict,
		inbox:   make(chan inbound, queueSize),
		stopped: make(chan struct{}),
		states:  make(map[string]*channelState),
	}
}

// Run processes queued messages until ctx is cancelled
func (p *Protocol) Run(ctx context.Context) {
	defer close(p.stopped)
	log.Info().Bool("strict_presenter", p.strict).Msg("session protocol started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session protocol shutting down")
			return
		case in := <-p.inbox:
			switch {
			case in.task != nil:
				in.result <- p.runTask(in.task)
			case in.disconnect:
				p.HandleDisconnect(in.channelID)
			default:
				p.Handle(in.channelID, in.msg)
			}
		}
	}
}

// Done is closed once Run has returned
func (p *Protocol) Done() <-chan struct{} {
	return p.stopped
}

// Dispatch runs fn on the dispatch loop, between participant messages, and
// waits for it to finish. It implements service.Dispatcher.
func (p *Protocol) Dispatch(ctx context.Context, fn func()) error {
	if p.isStopped() {
		return service.ErrUnavailable
	}
	result := make(chan error, 1)
	select {
	case p.inbox <- inbound{task: fn, result: result}:
	case <-p.stopped:
		return service.ErrUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}

	// once queued the task is either run or dropped with the loop
	select {
	case err := <-result:
		return err
	case <-p.stopped:
		select {
		case err := <-result:
			return err
		default:
			return service.ErrUnavailable
		}
	}
}

func (p *Protocol) runTask(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic in dispatched task")
			err = fmt.Errorf("dispatched task panicked: %v", r)
		}
	}()
	fn()
	return nil
}

// Submit queues an inbound message. It returns false once the loop has stopped.
func (p *Protocol) Submit(channelID string, msg *Message) bool {
	if p.isStopped() {
		return false
	}
	select {
	case p.inbox <- inbound{channelID: channelID, msg: msg}:
		return true
	case <-p.stopped:
		return false
	}
}

// Disconnected queues the disconnect of a channel
func (p *Protocol) Disconnected(channelID string) {
	if p.isStopped() {
		p.rooms.Unregister(channelID)
		return
	}
	select {
	case p.inbox <- inbound{channelID: channelID, disconnect: true}:
	case <-p.stopped:
		p.rooms.Unregister(channelID)
	}
}

func (p *Protocol) isStopped() bool {
	select {
	case <-p.stopped:
		return true
	default:
		return false
	}
}

// Handle processes one message synchronously. Failures are reported to the
// sender only; a panic is recovered and answered with a generic error.
func (p *Protocol) Handle(channelID string, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("channel_id", channelID).
				Str("event", string(msg.Type)).
				Msg("recovered from panic in message handler")
			p.ack(channelID, msg, model.Ack{Error: errServerError})
		}
	}()

	var ack model.Ack
	switch msg.Type {
	case MsgJoinSession:
		ack = p.join(channelID, msg.Payload)
	case MsgActivateQuestion:
		ack = p.activate(channelID, msg.Payload)
	case MsgCloseQuestion:
		ack = p.close(channelID, msg.Payload)
	case MsgVote:
		ack = p.vote(msg.Payload)
	default:
		ack = model.Ack{Error: errUnknownEvent}
	}
	p.ack(channelID, msg, ack)
}

// HandleDisconnect releases everything held by a channel. Votes it cast stay counted.
func (p *Protocol) HandleDisconnect(channelID string) {
	cleared := p.store.ClearPresenter(channelID)
	delete(p.states, channelID)
	p.rooms.Unregister(channelID)

	if len(cleared) > 0 {
		log.Info().Str("channel_id", channelID).Strs("presenter_of", cleared).Msg("presenter disconnected")
		return
	}
	log.Debug().Str("channel_id", channelID).Msg("channel disconnected")
}

func (p *Protocol) join(channelID string, payload json.RawMessage) model.Ack {
	var req model.JoinRequest
	if !decode(payload, &req) {
		return model.Ack{Error: errInvalidPayload}
	}

	sess, err := p.store.FindByCode(req.SessionCode)
	if err != nil {
		return failure(err)
	}

	role := model.ParseRole(req.Role)
	if role == model.RolePresenter && p.strict {
		if err := p.tokens.ValidatePresenterToken(req.Token, sess.ID); err != nil {
			log.Warn().Str("channel_id", channelID).Str("session_id", sess.ID).Msg("presenter join rejected")
			return model.Ack{Error: model.ErrNotPresenter.Error()}
		}
	}

	if prev, ok := p.states[channelID]; ok && prev.role == model.RolePresenter && prev.sessionID != sess.ID {
		p.store.ClearPresenter(channelID)
	}
	if err := p.rooms.Join(channelID, sess.ID); err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Msg("failed to join room")
		return model.Ack{Error: errServerError}
	}
	p.states[channelID] = &channelState{sessionID: sess.ID, role: role}

	if role == model.RolePresenter {
		if err := p.store.BindPresenter(sess.ID, channelID); err != nil {
			return failure(err)
		}
	}

	p.rooms.EmitToChannel(channelID, string(MsgSessionSnapshot), sess.Snapshot())

	log.Info().
		Str("channel_id", channelID).
		Str("session_id", sess.ID).
		Str("role", string(role)).
		Msg("channel joined session")
	return model.Ack{OK: true, SessionID: sess.ID}
}

func (p *Protocol) activate(channelID string, payload json.RawMessage) model.Ack {
	var req model.QuestionRequest
	if !decode(payload, &req) {
		return model.Ack{Error: errInvalidPayload}
	}
	if err := p.authorize(channelID, req.SessionID); err != nil {
		return failure(err)
	}

	q, sess, err := p.store.ActivateQuestion(req.SessionID, req.QuestionID)
	if err != nil {
		return failure(err)
	}

	p.rooms.EmitToRoom(sess.ID, string(MsgQuestionActivated), model.QuestionEvent{Question: q})
	p.rooms.EmitToRoom(sess.ID, string(MsgSessionUpdate), sess.Update())
	return model.Ack{OK: true}
}

func (p *Protocol) close(channelID string, payload json.RawMessage) model.Ack {
	var req model.QuestionRequest
	if !decode(payload, &req) {
		return model.Ack{Error: errInvalidPayload}
	}
	if err := p.authorize(channelID, req.SessionID); err != nil {
		return failure(err)
	}

	q, sess, err := p.store.CloseQuestion(req.SessionID, req.QuestionID)
	if err != nil {
		return failure(err)
	}

	p.rooms.EmitToRoom(sess.ID, string(MsgQuestionClosed), model.QuestionEvent{Question: q})
	p.rooms.EmitToRoom(sess.ID, string(MsgSessionUpdate), sess.Update())
	return model.Ack{OK: true}
}

func (p *Protocol) vote(payload json.RawMessage) model.Ack {
	var req model.VoteRequest
	if !decode(payload, &req) {
		return model.Ack{Error: errInvalidPayload}
	}

	q, sess, err := p.store.ApplyVote(req.SessionID, req.QuestionID, req.Vote)
	if err != nil {
		return failure(err)
	}

	p.rooms.EmitToRoom(sess.ID, string(MsgVoteUpdated), model.VoteUpdated{
		QuestionID: q.ID,
		Results:    q.Results,
		Type:       q.Type,
	})
	p.rooms.EmitToRoom(sess.ID, string(MsgSessionUpdate), sess.Update())
	return model.Ack{OK: true}
}

// authorize is a no-op unless presenter checks are enforced
func (p *Protocol) authorize(channelID, sessionID string) error {
	if !p.strict {
		return nil
	}
	st, ok := p.states[channelID]
	if !ok || st.role != model.RolePresenter || st.sessionID != sessionID {
		return model.ErrNotPresenter
	}
	return nil
}

func (p *Protocol) ack(channelID string, msg *Message, ack model.Ack) {
	if !ack.OK {
		log.Debug().
			Str("channel_id", channelID).
			Str("event", string(msg.Type)).
			Str("error", ack.Error).
			Msg("message rejected")
	}
	if len(msg.ID) == 0 {
		return
	}
	p.rooms.Ack(channelID, msg.ID, ack)
}

// failure maps an operation error to the ack error string
func failure(err error) model.Ack {
	for _, known := range []error{
		model.ErrNoSession,
		model.ErrNoQuestion,
		model.ErrQuestionNotActive,
		model.ErrInvalidVote,
		model.ErrNotPresenter,
	} {
		if errors.Is(err, known) {
			return model.Ack{Error: known.Error()}
		}
	}
	log.Error().Err(err).Msg("unexpected error handling message")
	return model.Ack{Error: errServerError}
}

// decode reads an optional JSON object payload; a missing payload decodes
// to the zero value
func decode(payload json.RawMessage, v interface{}) bool {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || string(payload) == "null" {
		return true
	}
	return json.Unmarshal(payload, v) == nil
}
