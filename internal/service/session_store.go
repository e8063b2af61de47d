package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"livepoll/internal/cache"
	"livepoll/internal/model"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SessionSaver receives a copy of a session after every mutation
type SessionSaver interface {
	Save(session *model.Session)
}

// SessionStore owns the authoritative session state. Every operation runs to
// completion under the store lock and hands out deep copies, so no caller can
// observe or cause a partial write.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session // id -> session
	byCode   map[string]string         // code -> id

	codes        cache.CodeRegistry
	clock        clockwork.Clock
	saver        SessionSaver
	ratingBounds *model.RatingBounds
}

// NewSessionStore creates an empty store
func NewSessionStore(codes cache.CodeRegistry, clock clockwork.Clock) *SessionStore {
	if codes == nil {
		codes = cache.NewMemoryCodeRegistry()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionStore{
		sessions: make(map[string]*model.Session),
		byCode:   make(map[string]string),
		codes:    codes,
		clock:    clock,
	}
}

// SetSaver sets the write-behind persistence hook
func (s *SessionStore) SetSaver(saver SessionSaver) {
	s.saver = saver
}

// SetRatingBounds enables server-side range checks on rating votes
func (s *SessionStore) SetRatingBounds(b *model.RatingBounds) {
	s.ratingBounds = b
}

// FindByCode looks up a session by its join code (case-insensitive)
func (s *SessionStore) FindByCode(code string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[model.NormalizeCode(code)]
	if !ok {
		return nil, fmt.Errorf("code %q: %w", code, model.ErrNoSession)
	}
	return s.sessions[id].Clone(), nil
}

// Get looks up a session by id
func (s *SessionStore) Get(sessionID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, model.ErrNoSession)
	}
	return sess.Clone(), nil
}

// Count returns the number of sessions held
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CreateSession creates a session with a fresh id and join code
func (s *SessionStore) CreateSession(ctx context.Context, seed []*model.Question) (*model.Session, error) {
	questions, err := prepareQuestions(seed)
	if err != nil {
		return nil, err
	}

	for attempts := 0; attempts < 10; attempts++ {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		reserved, err := s.codes.Reserve(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve session code: %w", err)
		}
		if !reserved {
			continue
		}

		sess, inserted := s.insert(code, questions)
		if inserted {
			return sess, nil
		}
		if err := s.codes.Release(ctx, code); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("failed to release session code")
		}
	}

	return nil, fmt.Errorf("failed to generate unique session code")
}

// SeedSession creates a session under a fixed join code. If a session with
// that code already exists it is returned unchanged.
func (s *SessionStore) SeedSession(ctx context.Context, code string, seed []*model.Question) (*model.Session, error) {
	code = model.NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("seed session: empty code")
	}
	if existing, err := s.FindByCode(code); err == nil {
		return existing, nil
	}

	questions, err := prepareQuestions(seed)
	if err != nil {
		return nil, err
	}
	reserved, err := s.codes.Reserve(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve session code: %w", err)
	}
	if !reserved {
		log.Warn().Str("code", code).Msg("seed code already reserved in registry, seeding anyway")
	}

	sess, inserted := s.insert(code, questions)
	if !inserted {
		return s.FindByCode(code)
	}
	return sess, nil
}

// Restore loads previously persisted sessions. Sessions whose id or code is
// already present are skipped.
func (s *SessionStore) Restore(sessions []*model.Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, sess := range sessions {
		code := model.NormalizeCode(sess.Code)
		if _, ok := s.sessions[sess.ID]; ok {
			continue
		}
		if _, ok := s.byCode[code]; ok {
			continue
		}
		c := sess.Clone()
		c.Code = code
		c.PresenterChannelID = ""
		for _, q := range c.Questions {
			q.EnsureResults()
		}
		s.sessions[c.ID] = c
		s.byCode[code] = c.ID
		n++
	}
	return n
}

func (s *SessionStore) insert(code string, questions []*model.Question) (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[code]; taken {
		return nil, false
	}

	sess := &model.Session{
		ID:        uuid.New().String(),
		Code:      code,
		Questions: make([]*model.Question, len(questions)),
		CreatedAt: s.clock.Now().UTC(),
	}
	for i, q := range questions {
		sess.Questions[i] = q.Clone()
	}
	s.sessions[sess.ID] = sess
	s.byCode[code] = sess.ID
	s.save(sess)

	log.Info().Str("session_id", sess.ID).Str("code", code).Int("questions", len(questions)).Msg("session created")
	return sess.Clone(), true
}

// AddQuestion appends a question to a session. The question starts inactive.
func (s *SessionStore) AddQuestion(sessionID string, q *model.Question) (*model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, model.ErrNoSession)
	}

	taken := make(map[string]struct{}, len(sess.Questions))
	for _, existing := range sess.Questions {
		taken[existing.ID] = struct{}{}
	}
	c, err := prepareQuestion(q, taken)
	if err != nil {
		return nil, err
	}
	sess.Questions = append(sess.Questions, c)
	s.save(sess)
	return c.Clone(), nil
}

// BindPresenter records channelID as the presenter of the session. The latest
// binding wins.
func (s *SessionStore) BindPresenter(sessionID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %q: %w", sessionID, model.ErrNoSession)
	}
	sess.PresenterChannelID = channelID
	s.save(sess)
	return nil
}

// ClearPresenter unbinds channelID from every session it presents and
// returns the ids of those sessions.
func (s *SessionStore) ClearPresenter(channelID string) []string {
	if channelID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared []string
	for id, sess := range s.sessions {
		if sess.PresenterChannelID == channelID {
			sess.PresenterChannelID = ""
			s.save(sess)
			cleared = append(cleared, id)
		}
	}
	return cleared
}

// IsPresenter reports whether channelID is the bound presenter of the session
func (s *SessionStore) IsPresenter(sessionID, channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	return ok && channelID != "" && sess.PresenterChannelID == channelID
}

// ActivateQuestion opens a question for voting. Any other active question is
// closed in the same step and the target's results are zeroed, also when it
// was already active.
func (s *SessionStore) ActivateQuestion(sessionID, questionID string) (*model.Question, *model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, q, err := s.lookup(sessionID, questionID)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now().UTC()
	for _, other := range sess.Questions {
		if other != q && other.Active {
			other.Active = false
			closedAt := now
			other.ClosedAt = &closedAt
		}
	}
	q.Active = true
	q.ActivatedAt = &now
	q.ClosedAt = nil
	q.ResetResults()
	sess.CurrentQuestionID = q.ID
	s.save(sess)

	log.Debug().Str("session_id", sessionID).Str("question_id", questionID).Msg("question activated")
	return q.Clone(), sess.Clone(), nil
}

// CloseQuestion stops voting on a question and keeps its tally. Closing an
// inactive question succeeds without changes.
func (s *SessionStore) CloseQuestion(sessionID, questionID string) (*model.Question, *model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, q, err := s.lookup(sessionID, questionID)
	if err != nil {
		return nil, nil, err
	}

	changed := false
	if q.Active {
		q.Active = false
		closedAt := s.clock.Now().UTC()
		q.ClosedAt = &closedAt
		changed = true
	}
	if sess.CurrentQuestionID == questionID {
		sess.CurrentQuestionID = ""
		changed = true
	}
	if changed {
		s.save(sess)
		log.Debug().Str("session_id", sessionID).Str("question_id", questionID).Msg("question closed")
	}
	return q.Clone(), sess.Clone(), nil
}

// ApplyVote aggregates a vote into the active question
func (s *SessionStore) ApplyVote(sessionID, questionID string, raw json.RawMessage) (*model.Question, *model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, q, err := s.lookup(sessionID, questionID)
	if err != nil {
		return nil, nil, err
	}
	if !q.Active {
		return nil, nil, fmt.Errorf("question %q: %w", questionID, model.ErrQuestionNotActive)
	}

	if err := model.ApplyVote(q, raw, s.ratingBounds); err != nil {
		return nil, nil, err
	}
	s.save(sess)
	return q.Clone(), sess.Clone(), nil
}

func (s *SessionStore) lookup(sessionID, questionID string) (*model.Session, *model.Question, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil, fmt.Errorf("session %q: %w", sessionID, model.ErrNoSession)
	}
	q := sess.Question(questionID)
	if q == nil {
		return nil, nil, fmt.Errorf("question %q: %w", questionID, model.ErrNoQuestion)
	}
	return sess, q, nil
}

// save must be called with s.mu held so saves are handed over in mutation order
func (s *SessionStore) save(sess *model.Session) {
	if s.saver != nil {
		s.saver.Save(sess.Clone())
	}
}

func prepareQuestions(seed []*model.Question) ([]*model.Question, error) {
	taken := make(map[string]struct{}, len(seed))
	for _, q := range seed {
		if q == nil || q.ID == "" {
			continue
		}
		if _, dup := taken[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		taken[q.ID] = struct{}{}
	}

	out := make([]*model.Question, 0, len(seed))
	for _, q := range seed {
		if q == nil {
			continue
		}
		if q.ID != "" {
			// already reserved above
			delete(taken, q.ID)
		}
		c, err := prepareQuestion(q, taken)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// prepareQuestion validates q, assigns an id not in taken and gives it inert
// zeroed results. The chosen id is added to taken.
func prepareQuestion(q *model.Question, taken map[string]struct{}) (*model.Question, error) {
	c := q.Clone()
	if c.ID == "" {
		for n := len(taken) + 1; ; n++ {
			id := fmt.Sprintf("q%d", n)
			if _, used := taken[id]; !used {
				c.ID = id
				break
			}
		}
	} else if _, dup := taken[c.ID]; dup {
		return nil, fmt.Errorf("duplicate question id %q", c.ID)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.Active = false
	c.ActivatedAt = nil
	c.ClosedAt = nil
	c.ResetResults()
	taken[c.ID] = struct{}{}
	return c, nil
}

// generateCode creates a 6-char alphanumeric code
func generateCode() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	b := make([]byte, codeLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	code := make([]byte, codeLen)
	for i := range code {
		code[i] = chars[int(b[i])%len(chars)]
	}
	return string(code), nil
}
