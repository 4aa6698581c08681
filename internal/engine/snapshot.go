package engine

import (
	"github.com/83ace42/fish-tycoon/internal/auction"
	"github.com/83ace42/fish-tycoon/internal/ecology"
	"github.com/83ace42/fish-tycoon/internal/economy"
)

// Snapshot is a read-only copy of the session suitable for rendering.
// Nothing in it aliases the live session except Last, which is immutable.
type Snapshot struct {
	SessionID    string            `json:"session_id"`
	Phase        Phase             `json:"phase"`
	Round        int               `json:"round"`
	MaxRounds    int               `json:"max_rounds"`
	Host         string            `json:"host"`
	Ecology      ecology.State     `json:"ecology"`
	Price        float64           `json:"price"`
	ShipValue    float64           `json:"ship_value"`
	ShipCost     float64           `json:"ship_cost"`
	Contract     *economy.Contract `json:"contract,omitempty"`
	Lots         []auction.Lot     `json:"lots,omitempty"`
	Participants []Participant     `json:"participants"`
	Submitted    []string          `json:"submitted"`
	Log          []string          `json:"log"`
	Last         *Resolution       `json:"last,omitempty"`
	Standings    []Standing        `json:"standings,omitempty"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	eco := s.eco.State()
	snap := Snapshot{
		SessionID: s.ID,
		Phase:     s.Phase,
		Round:     s.Round,
		MaxRounds: s.MaxRounds,
		Host:      s.Host(),
		Ecology:   eco,
		Price:     s.Price,
		ShipValue: economy.ShipValue(s.cfg.Fleet, eco.Total(), s.cfg.Ecology.MaxCapacity),
		ShipCost:  s.cfg.Fleet.ShipCost,
		Lots:      append([]auction.Lot(nil), s.Lots...),
		Submitted: s.Submitted(),
		Last:      s.Last,
		Standings: append([]Standing(nil), s.Standings...),
	}
	if s.Contract != nil {
		c := *s.Contract
		snap.Contract = &c
	}
	snap.Participants = make([]Participant, len(s.participants))
	for i, p := range s.participants {
		snap.Participants[i] = *p
	}
	snap.Log = make([]string, len(s.Log))
	for i, e := range s.Log {
		snap.Log[i] = e.String()
	}
	return snap
}
