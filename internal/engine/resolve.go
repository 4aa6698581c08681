package engine

import (
	"math"
	"sort"

	"github.com/83ace42/fish-tycoon/internal/auction"
	"github.com/83ace42/fish-tycoon/internal/ecology"
	"github.com/83ace42/fish-tycoon/internal/economy"
)

// Resolution is the summary of one phase resolution, handed to the host for
// presentation and record keeping. It is never modified after Advance returns.
type Resolution struct {
	Round       int                           `json:"round"`
	Resolved    Phase                         `json:"resolved"`
	Next        Phase                         `json:"next"`
	Log         []string                      `json:"log"`
	Price       *float64                      `json:"price,omitempty"`
	Catch       *CatchReport                  `json:"catch,omitempty"`
	Auction     []auction.Result              `json:"auction,omitempty"`
	Settlements map[string]economy.Settlement `json:"settlements,omitempty"`
	Ecology     ecology.State                 `json:"ecology"`
	Ledger      []Participant                 `json:"ledger"`
	Standings   []Standing                    `json:"standings,omitempty"`
}

// Standing is a participant's final wealth ranking.
type Standing struct {
	Rank      int     `json:"rank"`
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Cash      float64 `json:"cash"`
	Ships     int     `json:"ships"`
	ShipValue float64 `json:"ship_value"`
	Wealth    float64 `json:"wealth"`
}

// Advance resolves the open phase once every participant has decided.
// It returns false, with no effect, while any decision is missing.
func (s *Session) Advance() (*Resolution, bool) {
	if !s.Ready() {
		return nil, false
	}

	res := &Resolution{Round: s.Round, Resolved: s.Phase}
	s.fresh = s.fresh[:0]

	var next Phase
	switch s.Phase {
	case PhaseShipyard:
		next = s.resolveShipyard()
	case PhaseAuctionList:
		next = s.resolveListings()
	case PhaseAuctionBid:
		next = s.resolveBids(res)
	case PhaseFishing:
		next = s.resolveFishing(res)
	case PhaseStorage:
		next = s.resolveStorage(res)
	}
	s.transition(next)

	res.Next = s.Phase
	res.Log = append([]string(nil), s.fresh...)
	res.Ecology = s.eco.State()
	res.Ledger = make([]Participant, len(s.participants))
	for i, p := range s.participants {
		res.Ledger[i] = *p
	}
	res.Standings = s.Standings
	s.Last = res
	return res, true
}

func (s *Session) resolveShipyard() Phase {
	for _, p := range s.participants {
		order := s.decisions[p.ID].(ShipOrder)
		if order.Quantity == 0 {
			continue
		}
		p.Cash -= float64(order.Quantity) * s.cfg.Fleet.ShipCost
		p.Ships += order.Quantity
		s.logf("%s bought %d ships.", p.Name, order.Quantity)
	}
	return PhaseFishing
}

func (s *Session) resolveListings() Phase {
	s.Lots = s.Lots[:0]
	for _, p := range s.participants {
		l := s.decisions[p.ID].(Listing)
		if l.Quantity == 0 {
			continue
		}
		s.Lots = append(s.Lots, auction.Lot{Seller: p.ID, Quantity: l.Quantity, Reserve: l.Reserve})
		s.logf("Lot #%d: %s lists %d ships.", len(s.Lots), p.Name, l.Quantity)
	}
	if len(s.Lots) == 0 {
		s.logf("No ships were listed for sale this year.")
		return PhaseFishing
	}
	return PhaseAuctionBid
}

// sessionLedger moves auction proceeds between participants.
type sessionLedger struct{ s *Session }

func (l sessionLedger) Ships(id string) int {
	if p, ok := l.s.index[id]; ok {
		return p.Ships
	}
	return 0
}

func (l sessionLedger) Transfer(seller, buyer string, ships int, price float64) {
	from, to := l.s.index[seller], l.s.index[buyer]
	from.Ships -= ships
	from.Cash += price
	to.Ships += ships
	to.Cash -= price
}

func (s *Session) resolveBids(res *Resolution) Phase {
	bidders := make([]auction.Bidder, 0, len(s.participants))
	for _, p := range s.participants {
		b := s.decisions[p.ID].(Bids)
		amounts := make(map[int]float64, len(b.Amounts))
		for lot, amount := range b.Amounts {
			if amount > 0 {
				amounts[lot] = amount
			}
		}
		bidders = append(bidders, auction.Bidder{ID: p.ID, Skip: b.Skip, Amounts: amounts})
	}

	res.Auction = auction.Resolve(s.Lots, bidders, sessionLedger{s})
	for _, r := range res.Auction {
		seller := s.index[r.Seller]
		if r.Sold {
			s.logf("Lot #%d: %d ships from %s SOLD to %s for $%.2f.",
				r.Lot+1, r.Quantity, seller.Name, s.index[r.Winner].Name, r.Price)
		} else {
			s.logf("Lot #%d: %d ships from %s UNSOLD (reserve $%.2f).",
				r.Lot+1, r.Quantity, seller.Name, r.Reserve)
		}
	}
	return PhaseFishing
}

func (s *Session) resolveFishing(res *Resolution) Phase {
	deployments := make(map[string]Deployment, len(s.participants))
	order := make([]string, 0, len(s.participants))
	for _, p := range s.participants {
		d := s.decisions[p.ID].(Deployment)
		deployments[p.ID] = d
		order = append(order, p.ID)

		if d.OrderShips > 0 {
			p.Cash -= float64(d.OrderShips) * s.cfg.Fleet.ShipCost
			p.PendingShips += d.OrderShips
			s.logf("%s ordered %d ships for delivery at year end.", p.Name, d.OrderShips)
		}
		p.AcceptedContract = d.AcceptContract
	}

	rep := AllocateCatch(s.eco, s.cfg, order, deployments)
	for _, p := range s.participants {
		sh := rep.Shares[p.ID]
		p.LastCatch = sh.Total
		p.LastOperatingCost = sh.OperatingCost
		p.Cash -= sh.OperatingCost
	}

	s.Price = economy.Price(s.cfg.Market, rep.Total)
	price := s.Price
	res.Catch = &rep
	res.Price = &price
	s.logf("Fleet returned. Total catch: %d. New Price: $%.2f", int(rep.Total), s.Price)
	return PhaseStorage
}

func (s *Session) resolveStorage(res *Resolution) Phase {
	res.Settlements = make(map[string]economy.Settlement, len(s.participants))
	for _, p := range s.participants {
		d := s.decisions[p.ID].(Storage)
		available := p.LastCatch + p.Freezer
		st := economy.Settle(economy.Sale{
			Available: available,
			Freeze:    math.Min(d.Freeze, available),
			Accepted:  p.AcceptedContract,
		}, s.Contract, s.Price, s.cfg.Fleet.StorageCost)

		p.Freezer = st.Freezer
		p.Cash += st.Net()
		p.LastProfit = st.Revenue - p.LastOperatingCost - st.StorageCost - st.Penalty
		if st.Shortfall > 0 {
			s.logf("%s fell %.0f units short on the contract and paid $%.2f in penalties.",
				p.Name, st.Shortfall, st.Penalty)
		}
		if p.PendingShips > 0 {
			p.Ships += p.PendingShips
			p.PendingShips = 0
		}
		p.AcceptedContract = false
		res.Settlements[p.ID] = st
	}

	s.eco.Regrow(s.Round)
	eco := s.eco.State()
	s.logf("Year %d closed. Stocks regrew to shore %d, deep %d.", s.Round, int(eco.Shore), int(eco.Deep))

	if s.Round >= s.MaxRounds {
		s.Standings = s.standings()
		if len(s.Standings) > 0 {
			w := s.Standings[0]
			s.logf("Game over. Winner: %s with $%.2f.", w.Name, w.Wealth)
		}
		return PhaseGameOver
	}

	s.Round++
	s.beginRound()
	return s.Phase
}

// standings ranks participants by cash plus fleet resale value.
func (s *Session) standings() []Standing {
	eco := s.eco.State()
	value := economy.ShipValue(s.cfg.Fleet, eco.Total(), s.cfg.Ecology.MaxCapacity)
	out := make([]Standing, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, Standing{
			ID:        p.ID,
			Name:      p.Name,
			Cash:      p.Cash,
			Ships:     p.Ships,
			ShipValue: value,
			Wealth:    p.Cash + float64(p.Ships)*value,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Wealth > out[j].Wealth })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
