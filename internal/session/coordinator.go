// Package session serializes every operation on the single shared fishing
// session. Participants call into the Coordinator concurrently; each call runs
// in one exclusive critical section, and the phase resolves in the same section
// as the submission that completes the barrier.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/83ace42/fish-tycoon/internal/config"
	"github.com/83ace42/fish-tycoon/internal/engine"
	"github.com/83ace42/fish-tycoon/internal/entropy"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrSessionExists  = errors.New("a session is already running")
)

// Hook receives every resolution in the order the phases resolved.
// Hooks run outside the coordinator lock and may call back into it. A
// resolution caused from inside a hook is delivered after the current one,
// by the goroutine already delivering.
type Hook func(sessionID string, res *engine.Resolution)

type delivery struct {
	sessionID string
	res       *engine.Resolution
	hooks     []Hook
}

// Outcome is the result of an accepted submission.
type Outcome struct {
	Accepted   bool               `json:"accepted"`
	Resolution *engine.Resolution `json:"resolution,omitempty"`
}

// Coordinator owns the session and its lifecycle.
type Coordinator struct {
	mu    sync.Mutex
	sess  *engine.Session
	hooks []Hook

	cfg    config.Config
	src    entropy.Source
	seed   int64
	newID  func() string
	logger *slog.Logger

	// Resolutions are queued under mu, so the queue is in resolution order.
	// One goroutine at a time drains it.
	hookMu     sync.Mutex
	pending    []delivery
	delivering bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithConfig replaces the default tuning.
func WithConfig(cfg config.Config) Option {
	return func(c *Coordinator) { c.cfg = cfg }
}

// WithSource fixes the random source used for events and contracts.
func WithSource(src entropy.Source) Option {
	return func(c *Coordinator) { c.src = src }
}

// WithSeed fixes the ocean current field. Combine with WithSource for a fully
// reproducible session.
func WithSeed(seed int64) Option {
	return func(c *Coordinator) { c.seed = seed }
}

// WithLogger routes coordinator logs to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithIDs replaces the uuid generator for session and participant ids.
func WithIDs(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

// New creates a Coordinator with no session.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:   config.Default(),
		seed:  time.Now().UnixNano(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = entropy.Crypto{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// OnResolve registers a hook for every future resolution.
func (c *Coordinator) OnResolve(h Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, h)
}

// Config returns the tuning new sessions are created with.
func (c *Coordinator) Config() config.Config {
	return c.cfg
}

// CreateSession opens a new lobby. maxRounds of 0 uses the configured default.
func (c *Coordinator) CreateSession(maxRounds int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		return "", fmt.Errorf("%w: %s", ErrSessionExists, c.sess.ID)
	}
	maxRounds = c.cfg.Rounds(maxRounds)
	if maxRounds < 1 || maxRounds > c.cfg.MaxRoundsLimit {
		return "", fmt.Errorf("%w: rounds must be within 1-%d", engine.ErrInvalidInput, c.cfg.MaxRoundsLimit)
	}

	c.sess = engine.NewSession(c.newID(), c.cfg, maxRounds, c.src, c.seed)
	c.logger.Info("session created", "session", c.sess.ID, "max_rounds", maxRounds)
	return c.sess.ID, nil
}

// ResetSession drops the session and all of its state.
func (c *Coordinator) ResetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		c.logger.Info("session reset", "session", c.sess.ID, "phase", c.sess.Phase, "round", c.sess.Round)
	}
	c.sess = nil
}

// Active returns the id of the running session, if any.
func (c *Coordinator) Active() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return "", false
	}
	return c.sess.ID, true
}

// Join registers a new captain under a generated id.
func (c *Coordinator) Join(sessionID, name string) (string, error) {
	id := c.newID()
	if err := c.Register(sessionID, id, name); err != nil {
		return "", err
	}
	return id, nil
}

// Register adds a captain under a caller-supplied id.
func (c *Coordinator) Register(sessionID, participantID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.lookup(sessionID)
	if err != nil {
		return err
	}
	p, err := s.Register(participantID, name)
	if err != nil {
		return err
	}
	c.logger.Info("captain joined", "session", s.ID, "participant", p.ID, "name", p.Name,
		"captains", len(s.Participants()))
	return nil
}

// Leave removes a captain from the lobby.
func (c *Coordinator) Leave(sessionID, participantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.lookup(sessionID)
	if err != nil {
		return err
	}
	if err := s.Unregister(participantID); err != nil {
		return err
	}
	c.logger.Info("captain left", "session", s.ID, "participant", participantID, "host", s.Host())
	return nil
}

// Start leaves the lobby on behalf of the host.
func (c *Coordinator) Start(sessionID, participantID string, maxRounds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.lookup(sessionID)
	if err != nil {
		return err
	}
	if err := s.Start(participantID, maxRounds); err != nil {
		return err
	}
	c.logger.Info("session started", "session", s.ID, "captains", len(s.Participants()),
		"max_rounds", s.MaxRounds, "phase", s.Phase)
	return nil
}

// Submit records a decision. When it completes the barrier the phase resolves
// before Submit returns, and the outcome carries the resolution.
func (c *Coordinator) Submit(sessionID, participantID string, d engine.Decision) (Outcome, error) {
	c.mu.Lock()
	s, err := c.lookup(sessionID)
	if err == nil {
		err = s.Submit(participantID, d)
	}
	if err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}

	out := Outcome{Accepted: true}
	out.Resolution = c.advance(s)
	c.release(s.ID, out.Resolution)
	return out, nil
}

// Retract withdraws a decision that has not been resolved yet.
func (c *Coordinator) Retract(sessionID, participantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.lookup(sessionID)
	if err != nil {
		return err
	}
	return s.Retract(participantID)
}

// TryAdvance resolves the open phase if every captain has decided.
func (c *Coordinator) TryAdvance(sessionID string) (*engine.Resolution, bool, error) {
	c.mu.Lock()
	s, err := c.lookup(sessionID)
	if err != nil {
		c.mu.Unlock()
		return nil, false, err
	}
	res := c.advance(s)
	c.release(s.ID, res)
	return res, res != nil, nil
}

// Snapshot returns a deep copy of the session.
func (c *Coordinator) Snapshot(sessionID string) (engine.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.lookup(sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

func (c *Coordinator) lookup(sessionID string) (*engine.Session, error) {
	if c.sess == nil || c.sess.ID != sessionID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return c.sess, nil
}

// advance resolves under mu and logs the transition.
func (c *Coordinator) advance(s *engine.Session) *engine.Resolution {
	res, ok := s.Advance()
	if !ok {
		return nil
	}

	attrs := []any{"session", s.ID, "round", res.Round, "resolved", res.Resolved, "next", res.Next}
	if res.Catch != nil {
		attrs = append(attrs, "catch", humanize.FormatFloat("#,###.#", res.Catch.Total))
	}
	if res.Price != nil {
		attrs = append(attrs, "price", *res.Price)
	}
	c.logger.Info("phase resolved", attrs...)

	if res.Next == engine.PhaseGameOver && len(res.Standings) > 0 {
		w := res.Standings[0]
		c.logger.Info("game over", "session", s.ID, "winner", w.Name,
			"wealth", "$"+humanize.CommafWithDigits(w.Wealth, 2))
	}
	return res
}

// release unlocks mu and, if a resolution happened, delivers it to the hooks.
// Must be called with mu held. When another call is already delivering, the
// resolution joins its queue and release returns without waiting.
func (c *Coordinator) release(sessionID string, res *engine.Resolution) {
	if res == nil || len(c.hooks) == 0 {
		c.mu.Unlock()
		return
	}
	c.hookMu.Lock()
	c.pending = append(c.pending, delivery{sessionID: sessionID, res: res, hooks: slices.Clone(c.hooks)})
	if c.delivering {
		c.hookMu.Unlock()
		c.mu.Unlock()
		return
	}
	c.delivering = true
	c.hookMu.Unlock()
	c.mu.Unlock()

	c.drain()
}

func (c *Coordinator) drain() {
	for {
		c.hookMu.Lock()
		if len(c.pending) == 0 {
			c.delivering = false
			c.hookMu.Unlock()
			return
		}
		d := c.pending[0]
		c.pending = c.pending[1:]
		c.hookMu.Unlock()

		c.deliver(d)
	}
}

// deliver runs one resolution through the hooks. A panicking hook must not
// leave the queue marked as delivering.
func (c *Coordinator) deliver(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("resolve hook panicked", "session", d.sessionID,
				"round", d.res.Round, "resolved", d.res.Resolved, "panic", r)
		}
	}()
	for _, h := range d.hooks {
		h(d.sessionID, d.res)
	}
}
