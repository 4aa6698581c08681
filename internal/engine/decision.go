package engine

import (
	"fmt"
	"math"
)

// Decision is a phase-tagged payload submitted by one participant.
// Each concrete type belongs to exactly one phase.
type Decision interface {
	Phase() Phase
}

// ShipOrder buys new ships from the shipyard (single-phase variant).
type ShipOrder struct {
	Quantity int `json:"quantity"`
}

// Listing offers ships for sealed bidding. Quantity 0 lists nothing.
type Listing struct {
	Quantity int     `json:"quantity"`
	Reserve  float64 `json:"reserve"` // minimum acceptable total price
}

// Bids are sealed bids keyed by lot index. A zero amount is a pass.
type Bids struct {
	Skip    bool            `json:"skip"`
	Amounts map[int]float64 `json:"amounts,omitempty"`
}

// Deployment splits the fleet across the zones and the harbor.
type Deployment struct {
	Shore          int  `json:"shore"`
	Deep           int  `json:"deep"`
	Harbor         int  `json:"harbor"`
	AcceptContract bool `json:"accept_contract"`
	// OrderShips buys new ships delivered at the end of the round.
	// Only used when the sealed-bid market replaces the shipyard.
	OrderShips int `json:"order_ships"`
}

// Storage sets how much stock is frozen for next round; the rest is sold.
type Storage struct {
	Freeze float64 `json:"freeze"`
}

func (ShipOrder) Phase() Phase  { return PhaseShipyard }
func (Listing) Phase() Phase    { return PhaseAuctionList }
func (Bids) Phase() Phase       { return PhaseAuctionBid }
func (Deployment) Phase() Phase { return PhaseFishing }
func (Storage) Phase() Phase    { return PhaseStorage }

// validate checks a decision against the participant's current ledger.
// It never mutates state.
func (s *Session) validate(p *Participant, d Decision) error {
	switch d := d.(type) {
	case ShipOrder:
		return s.validateShipOrder(p, d)
	case Listing:
		return s.validateListing(p, d)
	case Bids:
		return s.validateBids(p, d)
	case Deployment:
		return s.validateDeployment(p, d)
	case Storage:
		return s.validateStorage(p, d)
	}
	return fmt.Errorf("%w: unsupported decision %T", ErrInvalidInput, d)
}

func (s *Session) validateShipOrder(p *Participant, d ShipOrder) error {
	if d.Quantity < 0 {
		return fmt.Errorf("%w: ship quantity %d is negative", ErrInvalidInput, d.Quantity)
	}
	cost := float64(d.Quantity) * s.cfg.Fleet.ShipCost
	if cost > p.Cash {
		return fmt.Errorf("%w: %d ships cost %.2f, cash is %.2f", ErrInsufficientFunds, d.Quantity, cost, p.Cash)
	}
	return nil
}

func (s *Session) validateListing(p *Participant, d Listing) error {
	if d.Quantity < 0 || d.Quantity > p.Ships {
		return fmt.Errorf("%w: can list 0-%d ships, got %d", ErrInvalidInput, p.Ships, d.Quantity)
	}
	if !finite(d.Reserve) || d.Reserve < 0 {
		return fmt.Errorf("%w: reserve must be a non-negative amount", ErrInvalidInput)
	}
	return nil
}

func (s *Session) validateBids(p *Participant, d Bids) error {
	if d.Skip {
		if len(d.Amounts) > 0 {
			return fmt.Errorf("%w: a skipped round carries no bids", ErrInvalidInput)
		}
		return nil
	}
	total := 0.0
	for lot, amount := range d.Amounts {
		if lot < 0 || lot >= len(s.Lots) {
			return fmt.Errorf("%w: no lot #%d", ErrInvalidInput, lot)
		}
		if s.Lots[lot].Seller == p.ID {
			return fmt.Errorf("%w: cannot bid on your own lot #%d", ErrInvalidInput, lot)
		}
		if !finite(amount) || amount < 0 {
			return fmt.Errorf("%w: bid on lot #%d must be a non-negative amount", ErrInvalidInput, lot)
		}
		total += amount
	}
	if total > math.Max(0, p.Cash) {
		return fmt.Errorf("%w: bids total %.2f, cash is %.2f", ErrInsufficientFunds, total, p.Cash)
	}
	return nil
}

func (s *Session) validateDeployment(p *Participant, d Deployment) error {
	if d.Shore < 0 || d.Deep < 0 || d.Harbor < 0 || d.OrderShips < 0 {
		return fmt.Errorf("%w: ship counts must be non-negative", ErrInvalidInput)
	}
	if d.Shore+d.Deep+d.Harbor != p.Ships {
		return fmt.Errorf("%w: deployment covers %d ships, fleet has %d",
			ErrInvalidInput, d.Shore+d.Deep+d.Harbor, p.Ships)
	}
	if d.AcceptContract && s.Contract == nil {
		return fmt.Errorf("%w: no contract on offer this round", ErrInvalidInput)
	}
	if d.OrderShips > 0 && !s.cfg.Auction.Enabled {
		return fmt.Errorf("%w: ships are ordered in the shipyard phase", ErrInvalidInput)
	}

	orderCost := float64(d.OrderShips) * s.cfg.Fleet.ShipCost
	if orderCost > p.Cash {
		return fmt.Errorf("%w: %d ships cost %.2f, cash is %.2f", ErrInsufficientFunds, d.OrderShips, orderCost, p.Cash)
	}
	if s.cfg.StrictAffordability {
		if total := orderCost + s.operatingCost(d); total > p.Cash {
			return fmt.Errorf("%w: orders and operating costs total %.2f, cash is %.2f",
				ErrInsufficientFunds, total, p.Cash)
		}
	}
	return nil
}

func (s *Session) validateStorage(p *Participant, d Storage) error {
	available := p.LastCatch + p.Freezer
	if !finite(d.Freeze) || d.Freeze < 0 || d.Freeze > available+1e-9 {
		return fmt.Errorf("%w: can freeze 0-%.2f units, got %v", ErrInvalidInput, available, d.Freeze)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
