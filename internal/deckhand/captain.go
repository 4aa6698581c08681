package deckhand

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/83ace42/fish-tycoon/internal/engine"
)

// Captain plays one seat until the game ends.
type Captain struct {
	Name     string
	Observer *Observer
	Actor    *Actor
	Strategy Strategy
	Poll     time.Duration

	// Host settings: when StartAt > 0 this captain starts the game once
	// StartAt captains have joined.
	StartAt   int
	MaxRounds int

	ID   string
	Book Logbook
}

// NewCaptain creates a captain talking to the API at baseURL.
func NewCaptain(name, baseURL string) *Captain {
	return &Captain{
		Name:     name,
		Observer: NewObserver(baseURL),
		Actor:    NewActor(baseURL),
		Strategy: DefaultStrategy(),
		Poll:     500 * time.Millisecond,
	}
}

// Run joins sessionID and plays until GAMEOVER or ctx is cancelled.
// It returns the final snapshot.
func (c *Captain) Run(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	id, err := c.Actor.Join(ctx, sessionID, c.Name)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	c.ID = id
	log := slog.With("captain", c.Name, "participant", id)
	log.Info("joined session", "session", sessionID)

	ticker := time.NewTicker(c.Poll)
	defer ticker.Stop()

	for {
		snap, err := c.Observer.Observe(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if snap.Phase == engine.PhaseGameOver {
			for _, st := range snap.Standings {
				if st.ID == id {
					log.Info("game over", "rank", st.Rank, "wealth", st.Wealth)
				}
			}
			return snap, nil
		}
		if err := c.step(ctx, sessionID, snap, log); err != nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// step acts once on a snapshot: start the game if hosting, or submit a
// decision if this captain has not decided in the open phase.
func (c *Captain) step(ctx context.Context, sessionID string, snap *engine.Snapshot, log *slog.Logger) error {
	if snap.Phase == engine.PhaseLobby {
		if c.StartAt > 0 && snap.Host == c.ID && len(snap.Participants) >= c.StartAt {
			if err := c.Actor.Start(ctx, sessionID, c.ID, c.MaxRounds); err != nil {
				return fmt.Errorf("start: %w", err)
			}
			log.Info("started game", "captains", len(snap.Participants))
		}
		return nil
	}
	if slices.Contains(snap.Submitted, c.ID) {
		return nil
	}

	d, why := c.Strategy.Decide(snap, c.ID, &c.Book)
	if d == nil {
		return nil
	}
	res, err := c.Actor.Submit(ctx, sessionID, c.ID, d)
	switch {
	case HasCode(err, "E_PHASE_MISMATCH"), HasCode(err, "E_ALREADY_SUBMITTED"):
		// the phase moved on between observe and submit
		return nil
	case err != nil:
		return fmt.Errorf("submit %s: %w", snap.Phase, err)
	}
	log.Info("decided", "round", snap.Round, "phase", snap.Phase, "why", why)
	if res.Resolution != nil {
		log.Info("phase resolved", "round", res.Resolution.Round, "next", res.Resolution.Next)
	}
	return nil
}
