package economy

import (
	"math"

	"github.com/83ace42/fish-tycoon/internal/config"
	"github.com/83ace42/fish-tycoon/internal/entropy"
)

// Contract is the round's optional delivery commitment.
type Contract struct {
	Quantity          int     `json:"quantity"`
	UnitPrice         float64 `json:"unit_price"`
	PenaltyMultiplier float64 `json:"penalty_multiplier"`
}

// NewContract sizes the round's contract from the average fleet and prices it
// at a markup over the previous round's price.
func NewContract(cfg config.ContractConfig, src entropy.Source, avgShips, lastPrice float64, digits int32) Contract {
	base := avgShips * cfg.QtyPerShip
	qty := int(entropy.Uniform(src, base*cfg.QtyLow, base*cfg.QtyHigh))
	if qty < cfg.MinQty {
		qty = cfg.MinQty
	}
	return Contract{
		Quantity:          qty,
		UnitPrice:         Round(lastPrice*cfg.PriceMarkup, digits),
		PenaltyMultiplier: cfg.PenaltyMultiplier,
	}
}

// Sale is one participant's storage decision for the round.
type Sale struct {
	Available float64 // fresh catch plus freezer stock
	Freeze    float64 // units kept for next round
	Accepted  bool    // contract accepted during deployment
}

// Settlement is the accounting result of a Sale.
type Settlement struct {
	Sellable    float64 `json:"sellable"`
	Delivered   float64 `json:"delivered"`
	Shortfall   float64 `json:"shortfall"`
	SoldAtMkt   float64 `json:"sold_at_market"`
	Revenue     float64 `json:"revenue"`
	StorageCost float64 `json:"storage_cost"`
	Penalty     float64 `json:"penalty"`
	Freezer     float64 `json:"freezer"`
	Accepted    bool    `json:"accepted"` // the contract applied to this sale
}

// Net is the cash change produced by the settlement.
func (s Settlement) Net() float64 {
	return s.Revenue - s.StorageCost - s.Penalty
}

// Settle freezes, delivers against the contract (if accepted) and sells the rest.
// Freezing comes first: only fish not frozen can be delivered or sold. The
// storage bill is charged regardless of the outcome.
func Settle(sale Sale, contract *Contract, marketPrice, storageCost float64) Settlement {
	st := Settlement{
		Sellable:    math.Max(0, sale.Available-sale.Freeze),
		StorageCost: sale.Freeze * storageCost,
		Freezer:     sale.Freeze,
	}
	remaining := st.Sellable

	if sale.Accepted && contract != nil {
		st.Accepted = true
		required := float64(contract.Quantity)
		st.Delivered = math.Min(required, remaining)
		st.Revenue += st.Delivered * contract.UnitPrice
		remaining -= st.Delivered
		if st.Delivered < required {
			st.Shortfall = required - st.Delivered
			st.Penalty = st.Shortfall * contract.UnitPrice * contract.PenaltyMultiplier
		}
	}

	st.SoldAtMkt = remaining
	st.Revenue += remaining * marketPrice
	return st
}
