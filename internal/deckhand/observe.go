// Package deckhand implements an autopilot captain.
// It observes the session via the public API, decides with a fixed
// heuristic, and acts by submitting decisions like any other client.
package deckhand

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/83ace42/fish-tycoon/internal/engine"
)

// Status mirrors GET /api/v1/status.
type Status struct {
	Name      string  `json:"name"`
	UptimeSec int     `json:"uptime_sec"`
	Active    bool    `json:"active"`
	SessionID string  `json:"session_id"`
	Phase     string  `json:"phase"`
	Round     int     `json:"round"`
	MaxRounds int     `json:"max_rounds"`
	Captains  int     `json:"captains"`
	Submitted int     `json:"submitted"`
	Price     float64 `json:"price"`
	Event     string  `json:"event"`
}

// Observer fetches session state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Status fetches the server summary.
func (o *Observer) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := o.fetchJSON(ctx, "/api/v1/status", &st); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	return &st, nil
}

// Observe fetches the full snapshot of a session.
func (o *Observer) Observe(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	path := "/api/v1/snapshot?session_id=" + url.QueryEscape(sessionID)
	if err := o.fetchJSON(ctx, path, &snap); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	return &snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
