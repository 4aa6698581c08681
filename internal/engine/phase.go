package engine

// Phase is a state of the round state machine.
type Phase string

const (
	PhaseLobby       Phase = "LOBBY"
	PhaseAuctionList Phase = "AUCTION_LIST" // sellers list lots
	PhaseAuctionBid  Phase = "AUCTION_BID"  // sealed bids on listed lots
	PhaseShipyard    Phase = "SHIPYARD"     // single-phase variant: buy new ships
	PhaseFishing     Phase = "FISHING"
	PhaseStorage     Phase = "STORAGE" // freeze and sell
	PhaseGameOver    Phase = "GAMEOVER"
)

// Open reports whether the phase collects decisions.
func (p Phase) Open() bool {
	switch p {
	case PhaseAuctionList, PhaseAuctionBid, PhaseShipyard, PhaseFishing, PhaseStorage:
		return true
	}
	return false
}

// ParsePhase converts a wire name into a Phase.
func ParsePhase(name string) (Phase, bool) {
	p := Phase(name)
	switch p {
	case PhaseLobby, PhaseAuctionList, PhaseAuctionBid, PhaseShipyard,
		PhaseFishing, PhaseStorage, PhaseGameOver:
		return p, true
	}
	return "", false
}

// roundStart is the first phase of every round.
func (s *Session) roundStart() Phase {
	if s.cfg.Auction.Enabled {
		return PhaseAuctionList
	}
	return PhaseShipyard
}
