package service

import (
	"context"
	"fmt"
	"livepoll/internal/model"
)

// SessionService handles the HTTP-facing session operations: creation,
// lookup by code, authoring and result summaries
type SessionService struct {
	store       *SessionStore
	tokens      *TokenService
	strict      bool
	broadcaster Broadcaster
	dispatcher  Dispatcher
}

// NewSessionService creates a new session service. When strict is set,
// created sessions come with a presenter token.
func NewSessionService(store *SessionStore, tokens *TokenService, strict bool) *SessionService {
	return &SessionService{
		store:  store,
		tokens: tokens,
		strict: strict,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetDispatcher makes authoring run on the participant dispatch loop
func (s *SessionService) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// CreateSession creates a session with optional seed questions
func (s *SessionService) CreateSession(ctx context.Context, req *model.CreateSessionRequest) (*model.CreateSessionResponse, error) {
	var seed []*model.Question
	if req != nil {
		seed = req.Questions
	}

	sess, err := s.store.CreateSession(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	resp := &model.CreateSessionResponse{Session: sess}
	if s.strict {
		token, err := s.tokens.IssuePresenterToken(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to issue presenter token: %w", err)
		}
		resp.PresenterToken = token
	}
	return resp, nil
}

// GetByCode retrieves a session by join code
func (s *SessionService) GetByCode(code string) (*model.Session, error) {
	return s.store.FindByCode(code)
}

// AddQuestion appends a question to the session with the given code and
// sends the new question list to everyone in the session
func (s *SessionService) AddQuestion(ctx context.Context, code string, q *model.Question) (*model.Question, error) {
	var (
		created *model.Question
		err     error
	)
	add := func() {
		created, err = s.addQuestion(code, q)
	}
	if s.dispatcher == nil {
		add()
		return created, err
	}
	if derr := s.dispatcher.Dispatch(ctx, add); derr != nil {
		return nil, derr
	}
	return created, err
}

func (s *SessionService) addQuestion(code string, q *model.Question) (*model.Question, error) {
	sess, err := s.store.FindByCode(code)
	if err != nil {
		return nil, err
	}
	created, err := s.store.AddQuestion(sess.ID, q)
	if err != nil {
		return nil, err
	}
	if s.broadcaster != nil {
		if updated, err := s.store.Get(sess.ID); err == nil {
			s.broadcaster.EmitToRoom(updated.ID, EventSessionUpdate, updated.Update())
		}
	}
	return created, nil
}

// AuthorizePresenter checks that token grants presenter rights on the session
// with the given code. Anyone is a presenter unless presenter checks are enforced.
func (s *SessionService) AuthorizePresenter(code, token string) error {
	sess, err := s.store.FindByCode(code)
	if err != nil {
		return err
	}
	if !s.strict {
		return nil
	}
	if err := s.tokens.ValidatePresenterToken(token, sess.ID); err != nil {
		return fmt.Errorf("session %s: %w", sess.Code, model.ErrNotPresenter)
	}
	return nil
}

// QuestionResults is the result summary of one question
type QuestionResults struct {
	QuestionID string                `json:"questionId"`
	Type       model.QuestionType    `json:"type"`
	Title      string                `json:"title"`
	Active     bool                  `json:"active"`
	TotalVotes int                   `json:"totalVotes"`
	Results    model.Results         `json:"results"`
	Averages   map[string]float64    `json:"averages,omitempty"` // rating only
	Words      []model.WordFrequency `json:"words,omitempty"`    // wordcloud only
}

// SessionResults is the result summary of a whole session
type SessionResults struct {
	SessionID         string            `json:"sessionId"`
	Code              string            `json:"code"`
	CurrentQuestionID string            `json:"currentQuestionId,omitempty"`
	Questions         []QuestionResults `json:"questions"`
}

// Results summarizes the tallies of every question in the session
func (s *SessionService) Results(code string) (*SessionResults, error) {
	sess, err := s.store.FindByCode(code)
	if err != nil {
		return nil, err
	}

	out := &SessionResults{
		SessionID:         sess.ID,
		Code:              sess.Code,
		CurrentQuestionID: sess.CurrentQuestionID,
		Questions:         make([]QuestionResults, 0, len(sess.Questions)),
	}
	for _, q := range sess.Questions {
		qr := QuestionResults{
			QuestionID: q.ID,
			Type:       q.Type,
			Title:      q.Title,
			Active:     q.Active,
			TotalVotes: q.Results.TotalVotes(),
			Results:    q.Results,
		}
		switch q.Type {
		case model.QuestionTypeRating:
			qr.Averages = q.Results.Averages()
		case model.QuestionTypeWordcloud:
			qr.Words = q.Results.Frequencies()
		}
		out.Questions = append(out.Questions, qr)
	}
	return out, nil
}
