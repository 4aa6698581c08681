package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	cash  float64
	ships int
}

type book map[string]*account

func (b book) Ships(id string) int { return b[id].ships }

func (b book) Transfer(seller, buyer string, ships int, price float64) {
	b[seller].ships -= ships
	b[buyer].ships += ships
	b[buyer].cash -= price
	b[seller].cash += price
}

func (b book) totals() (float64, int) {
	cash, ships := 0.0, 0
	for _, a := range b {
		cash += a.cash
		ships += a.ships
	}
	return cash, ships
}

func TestReserveScenario(t *testing.T) {
	ledger := book{
		"ana":  {cash: 1000, ships: 5},
		"ben":  {cash: 1000, ships: 3},
		"cora": {cash: 1000, ships: 3},
		"dov":  {cash: 1000, ships: 4},
	}
	lots := []Lot{
		{Seller: "ana", Quantity: 2, Reserve: 500},
		{Seller: "dov", Quantity: 1, Reserve: 100},
	}
	bidders := []Bidder{
		{ID: "ana", Skip: true},
		{ID: "ben", Amounts: map[int]float64{0: 450}},
		{ID: "cora", Amounts: map[int]float64{0: 520}},
		{ID: "dov", Skip: true},
	}
	cash0, ships0 := ledger.totals()

	results := Resolve(lots, bidders, ledger)
	require.Len(t, results, 2)

	assert.True(t, results[0].Sold)
	assert.Equal(t, "cora", results[0].Winner)
	assert.Equal(t, 520.0, results[0].Price)
	assert.Equal(t, 1520.0, ledger["ana"].cash)
	assert.Equal(t, 3, ledger["ana"].ships)
	assert.Equal(t, 480.0, ledger["cora"].cash)
	assert.Equal(t, 5, ledger["cora"].ships)
	assert.Equal(t, 1000.0, ledger["ben"].cash)

	assert.False(t, results[1].Sold, "no bids on the second lot")
	assert.Equal(t, 4, ledger["dov"].ships)

	cash1, ships1 := ledger.totals()
	assert.Equal(t, cash0, cash1)
	assert.Equal(t, ships0, ships1)
}

func TestSellerCannotWinOwnLot(t *testing.T) {
	lot := Lot{Seller: "ana", Quantity: 1, Reserve: 10}
	bidders := []Bidder{
		{ID: "ana", Amounts: map[int]float64{0: 9999}},
		{ID: "ben", Amounts: map[int]float64{0: 11}},
	}
	winner, price, ok := Winner(0, lot, bidders)
	require.True(t, ok)
	assert.Equal(t, "ben", winner)
	assert.Equal(t, 11.0, price)
}

func TestWinIffMaxMeetsReserve(t *testing.T) {
	cases := []struct {
		name    string
		reserve float64
		bids    []float64
		sold    bool
		best    float64
	}{
		{"below reserve", 500, []float64{450, 499.99}, false, 0},
		{"exactly reserve", 500, []float64{450, 500}, true, 500},
		{"zero reserve zero bid", 0, []float64{0}, true, 0},
		{"no bids", 10, nil, false, 0},
		{"highest wins", 1, []float64{5, 50, 20}, true, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var bidders []Bidder
			for i, amount := range tc.bids {
				bidders = append(bidders, Bidder{ID: string(rune('b' + i)), Amounts: map[int]float64{0: amount}})
			}
			_, best, ok := Winner(0, Lot{Seller: "a", Quantity: 1, Reserve: tc.reserve}, bidders)
			assert.Equal(t, tc.sold, ok)
			if ok {
				assert.Equal(t, tc.best, best)
			}
		})
	}
}

func TestTieKeepsFirstEncountered(t *testing.T) {
	lot := Lot{Seller: "a", Quantity: 1, Reserve: 100}
	bidders := []Bidder{
		{ID: "b", Amounts: map[int]float64{0: 300}},
		{ID: "c", Amounts: map[int]float64{0: 300}},
	}
	winner, _, ok := Winner(0, lot, bidders)
	require.True(t, ok)
	assert.Equal(t, "b", winner)

	bidders[0], bidders[1] = bidders[1], bidders[0]
	winner, _, _ = Winner(0, lot, bidders)
	assert.Equal(t, "c", winner)
}

func TestSellerShortOfShipsLeavesLotUnsold(t *testing.T) {
	ledger := book{
		"a": {cash: 0, ships: 1},
		"b": {cash: 500, ships: 0},
	}
	results := Resolve(
		[]Lot{{Seller: "a", Quantity: 2, Reserve: 0}},
		[]Bidder{{ID: "b", Amounts: map[int]float64{0: 100}}},
		ledger,
	)
	assert.False(t, results[0].Sold)
	assert.Equal(t, 500.0, ledger["b"].cash)
	assert.Equal(t, 1, ledger["a"].ships)
}

func TestBuyerWinsSeveralLots(t *testing.T) {
	ledger := book{
		"a": {cash: 0, ships: 2},
		"b": {cash: 0, ships: 2},
		"c": {cash: 1000, ships: 0},
	}
	results := Resolve(
		[]Lot{{Seller: "a", Quantity: 2, Reserve: 100}, {Seller: "b", Quantity: 1, Reserve: 100}},
		[]Bidder{{ID: "a", Skip: true}, {ID: "b", Skip: true}, {ID: "c", Amounts: map[int]float64{0: 200, 1: 300}}},
		ledger,
	)
	assert.True(t, results[0].Sold)
	assert.True(t, results[1].Sold)
	assert.Equal(t, 3, ledger["c"].ships)
	assert.Equal(t, 500.0, ledger["c"].cash)
	assert.Equal(t, 200.0, ledger["a"].cash)
	assert.Equal(t, 300.0, ledger["b"].cash)
}
