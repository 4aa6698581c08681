// Package auction resolves sealed-bid ship lots between captains.
//
// Each lot is resolved independently: the highest bid that meets the reserve
// and does not come from the seller wins. Equal bids keep the first one
// encountered, so bidders must be supplied in a stable order (registration
// order in a session).
package auction

// Lot is a seller-listed block of ships with a minimum total price.
type Lot struct {
	Seller   string  `json:"seller"`
	Quantity int     `json:"quantity"`
	Reserve  float64 `json:"reserve"`
}

// Bidder is one participant's sealed bids, keyed by lot index.
type Bidder struct {
	ID      string
	Skip    bool
	Amounts map[int]float64
}

// Result records the outcome of one lot.
type Result struct {
	Lot      int     `json:"lot"`
	Seller   string  `json:"seller"`
	Quantity int     `json:"quantity"`
	Reserve  float64 `json:"reserve"`
	Sold     bool    `json:"sold"`
	Winner   string  `json:"winner,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// Ledger applies the ship and cash movements of a sale.
type Ledger interface {
	// Ships returns the fleet size of a participant.
	Ships(id string) int
	// Transfer moves ships from seller to buyer and price from buyer to seller.
	Transfer(seller, buyer string, ships int, price float64)
}

// Winner returns the qualifying high bid for lot i, if any.
func Winner(i int, lot Lot, bidders []Bidder) (string, float64, bool) {
	var (
		winner string
		best   float64
		found  bool
	)
	for _, b := range bidders {
		if b.Skip || b.ID == lot.Seller {
			continue
		}
		amount, ok := b.Amounts[i]
		if !ok || amount < lot.Reserve {
			continue
		}
		if !found || amount > best {
			winner, best, found = b.ID, amount, true
		}
	}
	return winner, best, found
}

// Resolve settles every lot in order and applies each sale to the ledger.
// A lot whose seller no longer holds the listed ships is left unsold.
func Resolve(lots []Lot, bidders []Bidder, ledger Ledger) []Result {
	results := make([]Result, 0, len(lots))
	for i, lot := range lots {
		r := Result{Lot: i, Seller: lot.Seller, Quantity: lot.Quantity, Reserve: lot.Reserve}
		if lot.Quantity > 0 && ledger.Ships(lot.Seller) >= lot.Quantity {
			if winner, price, ok := Winner(i, lot, bidders); ok {
				ledger.Transfer(lot.Seller, winner, lot.Quantity, price)
				r.Sold, r.Winner, r.Price = true, winner, price
			}
		}
		results = append(results, r)
	}
	return results
}
