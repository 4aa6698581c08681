// Package engine implements the round state machine of a fishing session:
// registration, phase-tagged decisions, the all-submitted barrier and the
// resolution of each phase into ecology, price, auction and ledger updates.
//
// A Session is not safe for concurrent use; the session package wraps it in
// a coordinator that serializes every call.
package engine

import (
	"fmt"
	"strings"

	"github.com/83ace42/fish-tycoon/internal/auction"
	"github.com/83ace42/fish-tycoon/internal/config"
	"github.com/83ace42/fish-tycoon/internal/ecology"
	"github.com/83ace42/fish-tycoon/internal/economy"
	"github.com/83ace42/fish-tycoon/internal/entropy"
)

// Participant is one captain's ledger.
type Participant struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Cash              float64 `json:"cash"` // may go negative
	Ships             int     `json:"ships"`
	PendingShips      int     `json:"pending_ships"` // ordered, delivered at round end
	Freezer           float64 `json:"freezer"`
	LastCatch         float64 `json:"last_catch"`
	LastProfit        float64 `json:"last_profit"`
	LastOperatingCost float64 `json:"last_operating_cost"`
	AcceptedContract  bool    `json:"accepted_contract"`
}

// LogEntry is one line of the public log.
type LogEntry struct {
	Round   int    `json:"round"`
	Message string `json:"message"`
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[Year %d] %s", e.Round, e.Message)
}

// Session is the single shared game instance.
type Session struct {
	ID        string
	Phase     Phase
	Round     int
	MaxRounds int
	Price     float64 // most recently resolved fish price
	Contract  *economy.Contract
	Lots      []auction.Lot
	Log       []LogEntry // newest first
	Last      *Resolution
	Standings []Standing

	participants []*Participant // registration order; first is host
	index        map[string]*Participant
	decisions    map[string]Decision
	fresh        []string // lines logged by the resolution in progress

	cfg config.Config
	eco *ecology.Model
	src entropy.Source
}

// NewSession creates an empty LOBBY session. src drives events and contract
// sizing; seed drives the ocean current field.
func NewSession(id string, cfg config.Config, maxRounds int, src entropy.Source, seed int64) *Session {
	if src == nil {
		src = entropy.Crypto{}
	}
	return &Session{
		ID:        id,
		Phase:     PhaseLobby,
		MaxRounds: maxRounds,
		Price:     cfg.Market.BasePrice,
		index:     make(map[string]*Participant),
		decisions: make(map[string]Decision),
		cfg:       cfg,
		eco:       ecology.New(cfg.Ecology, seed),
		src:       src,
	}
}

// Config returns the session's tuning.
func (s *Session) Config() config.Config {
	return s.cfg
}

// Ecology returns the current ecology state.
func (s *Session) Ecology() ecology.State {
	return s.eco.State()
}

// Participant looks up a registered participant.
func (s *Session) Participant(id string) (*Participant, bool) {
	p, ok := s.index[id]
	return p, ok
}

// Participants returns the registered participants in registration order.
func (s *Session) Participants() []*Participant {
	return s.participants
}

// Host returns the id of the participant allowed to start the game.
func (s *Session) Host() string {
	if len(s.participants) == 0 {
		return ""
	}
	return s.participants[0].ID
}

// Register adds a participant. Only valid in the lobby.
func (s *Session) Register(id, name string) (*Participant, error) {
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return nil, fmt.Errorf("%w: participant id and name are required", ErrInvalidInput)
	}
	if _, ok := s.index[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	if s.Phase != PhaseLobby {
		return nil, fmt.Errorf("%w: game is in %s", ErrSessionNotJoinable, s.Phase)
	}
	p := &Participant{
		ID:    id,
		Name:  name,
		Cash:  s.cfg.StartingCash,
		Ships: s.cfg.StartingShips,
	}
	s.participants = append(s.participants, p)
	s.index[id] = p
	return p, nil
}

// Unregister removes a participant from the lobby. The next registrant
// becomes host if the host leaves.
func (s *Session) Unregister(id string) error {
	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
	}
	if s.Phase != PhaseLobby {
		return fmt.Errorf("%w: cannot leave during %s", ErrPhaseMismatch, s.Phase)
	}
	delete(s.index, id)
	for i, p := range s.participants {
		if p.ID == id {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			break
		}
	}
	return nil
}

// Start leaves the lobby. maxRounds of 0 keeps the session's setting.
func (s *Session) Start(hostID string, maxRounds int) error {
	if _, ok := s.index[hostID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, hostID)
	}
	if s.Phase != PhaseLobby {
		return fmt.Errorf("%w: game already started", ErrPhaseMismatch)
	}
	if hostID != s.Host() {
		return ErrNotHost
	}
	if maxRounds != 0 {
		if maxRounds < 1 || maxRounds > s.cfg.MaxRoundsLimit {
			return fmt.Errorf("%w: rounds must be within 1-%d", ErrInvalidInput, s.cfg.MaxRoundsLimit)
		}
		s.MaxRounds = maxRounds
	}

	s.Round = 1
	s.logf("The game has begun! %d captains, %d years.", len(s.participants), s.MaxRounds)
	s.beginRound()
	return nil
}

// beginRound rolls the round's event, offers its contract and opens the first phase.
func (s *Session) beginRound() {
	ev := s.eco.RollEvent(s.src)
	s.Lots = nil
	s.Contract = nil
	if s.cfg.Contract.Enabled && len(s.participants) > 0 {
		fleet := 0
		for _, p := range s.participants {
			fleet += p.Ships
		}
		avg := float64(fleet) / float64(len(s.participants))
		c := economy.NewContract(s.cfg.Contract, s.src, avg, s.Price, s.cfg.Market.Digits)
		s.Contract = &c
	}
	s.logf("Weather report: %s. %s", ev.Name, ev.Description)
	if s.Contract != nil {
		s.logf("Contract offer: deliver %d units @ $%.2f/unit.", s.Contract.Quantity, s.Contract.UnitPrice)
	}
	s.transition(s.roundStart())
}

// Submit records a participant's decision for the open phase.
func (s *Session) Submit(id string, d Decision) error {
	p, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
	}
	if d == nil || !s.Phase.Open() || d.Phase() != s.Phase {
		return fmt.Errorf("%w: session is in %s", ErrPhaseMismatch, s.Phase)
	}
	if _, done := s.decisions[id]; done {
		return fmt.Errorf("%w: %s already decided for %s", ErrAlreadySubmitted, p.Name, s.Phase)
	}
	if err := s.validate(p, d); err != nil {
		return err
	}
	s.decisions[id] = d
	return nil
}

// Retract withdraws a decision that has not been resolved yet.
func (s *Session) Retract(id string) error {
	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
	}
	if _, ok := s.decisions[id]; !ok {
		return ErrNoSubmission
	}
	delete(s.decisions, id)
	return nil
}

// Submitted returns the ids that have decided in the open phase, in registration order.
func (s *Session) Submitted() []string {
	ids := make([]string, 0, len(s.decisions))
	for _, p := range s.participants {
		if _, ok := s.decisions[p.ID]; ok {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Ready reports whether every registered participant has decided.
func (s *Session) Ready() bool {
	return s.Phase.Open() && len(s.participants) > 0 && len(s.decisions) == len(s.participants)
}

// transition moves to the next phase and empties the decision buffer.
func (s *Session) transition(next Phase) {
	s.Phase = next
	clear(s.decisions)
}

func (s *Session) logf(format string, args ...any) {
	e := LogEntry{Round: s.Round, Message: fmt.Sprintf(format, args...)}
	s.fresh = append(s.fresh, e.String())
	s.Log = append([]LogEntry{e}, s.Log...)
	if limit := s.cfg.LogLimit; limit > 0 && len(s.Log) > limit {
		s.Log = s.Log[:limit]
	}
}
