package deckhand

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/83ace42/fish-tycoon/internal/engine"
)

// APIError is a non-2xx response carrying an E_* code.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Message = string(body)
	}
	return apiErr
}

// HasCode reports whether err is an APIError with the given code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// SubmitResult is the response from POST /api/v1/submit.
type SubmitResult struct {
	Accepted   bool               `json:"accepted"`
	Resolution *engine.Resolution `json:"resolution"`
}

// Actor performs captain actions via the API.
type Actor struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL.
func NewActor(baseURL string) *Actor {
	return &Actor{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateSession opens a lobby and returns its id.
func (a *Actor) CreateSession(ctx context.Context, maxRounds int) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	err := a.post(ctx, "/api/v1/session", map[string]any{"max_rounds": maxRounds}, &out)
	return out.SessionID, err
}

// Join registers a captain and returns its participant id.
func (a *Actor) Join(ctx context.Context, sessionID, name string) (string, error) {
	var out struct {
		ParticipantID string `json:"participant_id"`
	}
	err := a.post(ctx, "/api/v1/join", map[string]any{"session_id": sessionID, "name": name}, &out)
	return out.ParticipantID, err
}

// Start leaves the lobby. Only the host may call it.
func (a *Actor) Start(ctx context.Context, sessionID, participantID string, maxRounds int) error {
	return a.post(ctx, "/api/v1/start", map[string]any{
		"session_id": sessionID, "participant_id": participantID, "max_rounds": maxRounds,
	}, nil)
}

// Submit sends a decision for the named phase.
func (a *Actor) Submit(ctx context.Context, sessionID, participantID string, d engine.Decision) (*SubmitResult, error) {
	var out SubmitResult
	err := a.post(ctx, "/api/v1/submit", map[string]any{
		"session_id":     sessionID,
		"participant_id": participantID,
		"phase":          d.Phase(),
		"decision":       d,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Actor) post(ctx context.Context, path string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp.StatusCode, respBody)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
