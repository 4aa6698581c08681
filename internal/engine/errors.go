package engine

import "errors"

// Rejections surfaced to callers. None of them mutate session state; the
// caller may correct the request and try again.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrPhaseMismatch      = errors.New("phase mismatch")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrAlreadySubmitted   = errors.New("decision already submitted")
	ErrAlreadyRegistered  = errors.New("participant already registered")
	ErrSessionNotJoinable = errors.New("session not joinable")
	ErrNotHost            = errors.New("only the host may do that")
	ErrNoSubmission       = errors.New("no pending submission")
)
