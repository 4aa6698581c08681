package deckhand

import (
	"fmt"
	"math"

	"github.com/83ace42/fish-tycoon/internal/engine"
)

// Strategy holds the autopilot's thresholds.
type Strategy struct {
	BuyDensity   float64 // minimum stock density before buying ships
	ReserveShips float64 // cash kept back, in ship prices
	LowPrice     float64 // at or below this price, half the hold is frozen
	BidFraction  float64 // bids open at this fraction of the lot's resale value
}

// DefaultStrategy is a cautious captain that fishes where the stock is.
func DefaultStrategy() Strategy {
	return Strategy{
		BuyDensity:   0.45,
		ReserveShips: 2,
		LowPrice:     4,
		BidFraction:  0.9,
	}
}

// Decide picks a decision for the open phase. It returns nil when me is not
// in the snapshot or the phase collects no decisions.
func (s Strategy) Decide(snap *engine.Snapshot, me string, book *Logbook) (engine.Decision, string) {
	var self *engine.Participant
	for i := range snap.Participants {
		if snap.Participants[i].ID == me {
			self = &snap.Participants[i]
		}
	}
	if self == nil || !snap.Phase.Open() {
		return nil, ""
	}
	o := Assess(snap, me)
	reserve := s.ReserveShips * snap.ShipCost

	switch snap.Phase {
	case engine.PhaseShipyard:
		if o.Condition == "HEALTHY" && o.StockDensity >= s.BuyDensity && self.Cash-snap.ShipCost >= reserve {
			return engine.ShipOrder{Quantity: 1}, fmt.Sprintf("stock at %.0f%%, buying a ship", o.StockDensity*100)
		}
		return engine.ShipOrder{}, "holding cash"

	case engine.PhaseAuctionList:
		if o.Condition == "DEPLETED" && self.Ships > 1 {
			return engine.Listing{Quantity: 1, Reserve: snap.ShipValue},
				fmt.Sprintf("ocean %s, selling a ship at $%.2f", o.Condition, snap.ShipValue)
		}
		return engine.Listing{}, "keeping the fleet"

	case engine.PhaseAuctionBid:
		return s.bid(snap, me, self, o, reserve)

	case engine.PhaseFishing:
		return s.deploy(snap, self, o, book)

	case engine.PhaseStorage:
		book.Add(RoundRecord{Round: snap.Round, Catch: self.LastCatch, Price: snap.Price, Cash: self.Cash})
		available := self.LastCatch + self.Freezer
		if snap.Price <= s.LowPrice && available > 0 {
			freeze := math.Floor(available / 2)
			return engine.Storage{Freeze: freeze}, fmt.Sprintf("price $%.2f is low, freezing %.0f", snap.Price, freeze)
		}
		return engine.Storage{}, "selling the hold"
	}
	return nil, ""
}

func (s Strategy) bid(snap *engine.Snapshot, me string, self *engine.Participant, o *Outlook, reserve float64) (engine.Decision, string) {
	if o.Condition == "DEPLETED" {
		return engine.Bids{Skip: true}, "ocean depleted, not buying"
	}
	budget := self.Cash - reserve
	amounts := make(map[int]float64)
	for i, lot := range snap.Lots {
		if lot.Seller == me {
			continue
		}
		value := snap.ShipValue * float64(lot.Quantity)
		if lot.Reserve > value {
			continue
		}
		amount := math.Round(math.Max(lot.Reserve, s.BidFraction*value)*100) / 100
		if amount <= 0 || amount > budget {
			continue
		}
		amounts[i] = amount
		budget -= amount
	}
	if len(amounts) == 0 {
		return engine.Bids{Skip: true}, "no lot worth bidding on"
	}
	return engine.Bids{Amounts: amounts}, fmt.Sprintf("bidding on %d lots", len(amounts))
}

func (s Strategy) deploy(snap *engine.Snapshot, self *engine.Participant, o *Outlook, book *Logbook) (engine.Decision, string) {
	d := engine.Deployment{}
	ships := self.Ships
	if o.Condition == "DEPLETED" {
		d.Harbor = ships - ships/3
	}
	active := ships - d.Harbor

	weight := o.ShoreDensity + o.DeepDensity
	if weight <= 0 {
		d.Harbor = ships
		active = 0
	} else {
		d.Deep = int(math.Round(float64(active) * o.DeepDensity / weight))
		d.Shore = active - d.Deep
	}

	if snap.Contract != nil && active > 0 {
		expected := book.AvgCatch(3)
		d.AcceptContract = expected >= float64(snap.Contract.Quantity)
	}
	return d, fmt.Sprintf("shore %d, deep %d, harbor %d, contract %t", d.Shore, d.Deep, d.Harbor, d.AcceptContract)
}
