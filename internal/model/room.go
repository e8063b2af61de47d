package model

import "encoding/json"

// Role is the self-declared participant role given at join time
type Role string

const (
	RolePresenter Role = "presenter"
	RoleVoter     Role = "voter"
)

// ParseRole maps the join payload role to a Role, defaulting to voter
func ParseRole(s string) Role {
	if Role(s) == RolePresenter {
		return RolePresenter
	}
	return RoleVoter
}

// JoinRequest is the payload of join-session
type JoinRequest struct {
	SessionCode string `json:"sessionCode"`
	Role        string `json:"role"`
	Token       string `json:"token,omitempty"` // Presenter capability token, strict mode only
}

// QuestionRequest is the payload of presenter-activate-question and presenter-close-question
type QuestionRequest struct {
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
}

// VoteRequest is the payload of vote
type VoteRequest struct {
	SessionID  string          `json:"sessionId"`
	QuestionID string          `json:"questionId"`
	Vote       json.RawMessage `json:"vote"`
}

// Ack is the acknowledgment returned to the sender of a message
type Ack struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// QuestionEvent is the payload of question-activated and question-closed
type QuestionEvent struct {
	Question *Question `json:"question"`
}

// VoteUpdated is the payload of vote-updated
type VoteUpdated struct {
	QuestionID string       `json:"questionId"`
	Results    Results      `json:"results"`
	Type       QuestionType `json:"type"`
}
