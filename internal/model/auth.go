package model

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// PresenterClaims are JWT claims binding presenter rights to one session
type PresenterClaims struct {
	SessionID string `json:"sessionId"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// CreateSessionRequest is the request body for creating a session
type CreateSessionRequest struct {
	Questions []*Question `json:"questions,omitempty"`
}

// CreateSessionResponse is returned after creating a session. PresenterToken
// is only set when presenter checks are enforced.
type CreateSessionResponse struct {
	*Session
	PresenterToken string `json:"presenterToken,omitempty"`
}

// MarshalJSON keeps the token next to the session fields
func (r CreateSessionResponse) MarshalJSON() ([]byte, error) {
	var w sessionJSON
	if r.Session != nil {
		w = r.Session.wire()
	}
	w.PresenterToken = r.PresenterToken
	return json.Marshal(w)
}
