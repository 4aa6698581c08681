package api

import (
	"errors"
	"net/http"

	"github.com/83ace42/fish-tycoon/internal/engine"
	"github.com/83ace42/fish-tycoon/internal/session"
)

const (
	// Transport validation.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrRateLimit  = "E_RATE_LIMIT"
	ErrForbidden  = "E_FORBIDDEN"
	ErrInternal   = "E_INTERNAL"

	// Session routing.
	ErrUnknownSession = "E_UNKNOWN_SESSION"
	ErrSessionExists  = "E_SESSION_EXISTS"
	ErrNotJoinable    = "E_NOT_JOINABLE"
	ErrNotHost        = "E_NOT_HOST"

	// Decision layer.
	ErrInvalidInput       = "E_INVALID_INPUT"
	ErrInsufficientFunds  = "E_INSUFFICIENT_FUNDS"
	ErrPhaseMismatch      = "E_PHASE_MISMATCH"
	ErrUnknownParticipant = "E_UNKNOWN_PARTICIPANT"
	ErrAlreadySubmitted   = "E_ALREADY_SUBMITTED"
	ErrAlreadyRegistered  = "E_ALREADY_REGISTERED"
	ErrNoSubmission       = "E_NO_SUBMISSION"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:         {},
	ErrRateLimit:          {},
	ErrForbidden:          {},
	ErrInternal:           {},
	ErrUnknownSession:     {},
	ErrSessionExists:      {},
	ErrNotJoinable:        {},
	ErrNotHost:            {},
	ErrInvalidInput:       {},
	ErrInsufficientFunds:  {},
	ErrPhaseMismatch:      {},
	ErrUnknownParticipant: {},
	ErrAlreadySubmitted:   {},
	ErrAlreadyRegistered:  {},
	ErrNoSubmission:       {},
}

// IsKnownCode reports whether code is one the API can return.
func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

var codeTable = []struct {
	err    error
	code   string
	status int
}{
	{session.ErrUnknownSession, ErrUnknownSession, http.StatusNotFound},
	{session.ErrSessionExists, ErrSessionExists, http.StatusConflict},
	{engine.ErrSessionNotJoinable, ErrNotJoinable, http.StatusConflict},
	{engine.ErrNotHost, ErrNotHost, http.StatusForbidden},
	{engine.ErrInvalidInput, ErrInvalidInput, http.StatusUnprocessableEntity},
	{engine.ErrInsufficientFunds, ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{engine.ErrPhaseMismatch, ErrPhaseMismatch, http.StatusConflict},
	{engine.ErrUnknownParticipant, ErrUnknownParticipant, http.StatusNotFound},
	{engine.ErrAlreadySubmitted, ErrAlreadySubmitted, http.StatusConflict},
	{engine.ErrAlreadyRegistered, ErrAlreadyRegistered, http.StatusConflict},
	{engine.ErrNoSubmission, ErrNoSubmission, http.StatusConflict},
}

// codeFor maps a coordinator error to its wire code and HTTP status.
func codeFor(err error) (string, int) {
	for _, c := range codeTable {
		if errors.Is(err, c.err) {
			return c.code, c.status
		}
	}
	return ErrInternal, http.StatusInternalServerError
}
