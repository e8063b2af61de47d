package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Session is one live poll event
type Session struct {
	ID                 string      `json:"id" bson:"_id"`
	Code               string      `json:"code" bson:"code"` // Human-entered join token, uppercase
	PresenterChannelID string      `json:"presenterId" bson:"presenterId,omitempty"`
	CurrentQuestionID  string      `json:"currentQuestionId" bson:"currentQuestionId,omitempty"`
	Questions          []*Question `json:"questions" bson:"questions"`
	CreatedAt          time.Time   `json:"createdAt" bson:"createdAt"`
}

// sessionJSON is the wire form of a session; unset ids are null
type sessionJSON struct {
	ID                string      `json:"id"`
	Code              string      `json:"code"`
	PresenterID       *string     `json:"presenterId"`
	CurrentQuestionID *string     `json:"currentQuestionId"`
	Questions         []*Question `json:"questions"`
	CreatedAt         time.Time   `json:"createdAt"`
	PresenterToken    string      `json:"presenterToken,omitempty"`
}

func (s *Session) wire() sessionJSON {
	return sessionJSON{
		ID:                s.ID,
		Code:              s.Code,
		PresenterID:       optional(s.PresenterChannelID),
		CurrentQuestionID: optional(s.CurrentQuestionID),
		Questions:         s.Questions,
		CreatedAt:         s.CreatedAt,
	}
}

// MarshalJSON encodes the session with null for an unset presenter or question
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// NormalizeCode canonicalizes a join code for storage and lookup
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Question returns the question with the given id, or nil
func (s *Session) Question(id string) *Question {
	for _, q := range s.Questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// ActiveQuestion returns the question open for voting, or nil
func (s *Session) ActiveQuestion() *Question {
	if s.CurrentQuestionID == "" {
		return nil
	}
	return s.Question(s.CurrentQuestionID)
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = make([]*Question, len(s.Questions))
	for i, q := range s.Questions {
		c.Questions[i] = q.Clone()
	}
	return &c
}

// Snapshot is the full session state sent privately to a channel on join
type Snapshot struct {
	SessionID         string      `json:"sessionId"`
	Code              string      `json:"code"`
	Questions         []*Question `json:"questions"`
	CurrentQuestionID *string     `json:"currentQuestionId"`
}

// SessionUpdate is broadcast to the room after every state change
type SessionUpdate struct {
	SessionID         string      `json:"sessionId"`
	Questions         []*Question `json:"questions"`
	CurrentQuestionID *string     `json:"currentQuestionId"`
}

// Snapshot builds the join snapshot of the session. The caller owns s.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		SessionID:         s.ID,
		Code:              s.Code,
		Questions:         s.Questions,
		CurrentQuestionID: optional(s.CurrentQuestionID),
	}
}

// Update builds the session-update payload. The caller owns s.
func (s *Session) Update() SessionUpdate {
	return SessionUpdate{
		SessionID:         s.ID,
		Questions:         s.Questions,
		CurrentQuestionID: optional(s.CurrentQuestionID),
	}
}

// unset ids travel as JSON null
func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
