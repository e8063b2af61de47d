package model

import "errors"

// Errors surfaced to the participant that sent the offending message. The
// messages double as the ack error strings, so keep them stable.
var (
	ErrNoSession         = errors.New("No session")
	ErrNoQuestion        = errors.New("No question")
	ErrQuestionNotActive = errors.New("Question not active")
	ErrInvalidVote       = errors.New("Invalid vote")
	ErrNotPresenter      = errors.New("Not presenter")
)
