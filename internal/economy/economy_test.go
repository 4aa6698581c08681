package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/83ace42/fish-tycoon/internal/config"
	"github.com/83ace42/fish-tycoon/internal/entropy"
)

func TestPriceAtBaseline(t *testing.T) {
	cfg := config.Default().Market
	assert.Equal(t, 5.0, Price(cfg, 260))
}

func TestPriceBoundedAndDecreasing(t *testing.T) {
	cfg := config.Default().Market
	prev := Price(cfg, 0)
	for mass := 0.0; mass <= 2000; mass += 10 {
		p := Price(cfg, mass)
		require.GreaterOrEqual(t, p, cfg.MinPrice)
		require.LessOrEqual(t, p, cfg.MaxPrice)
		require.LessOrEqual(t, p, prev, "price must not rise with mass (mass=%v)", mass)
		prev = p
	}

	// Strictly decreasing inside the unclamped band.
	for mass := 100.0; mass < 550; mass += 25 {
		require.Greater(t, Price(cfg, mass), Price(cfg, mass+25), "mass=%v", mass)
	}
}

func TestPriceClamps(t *testing.T) {
	cfg := config.Default().Market
	assert.Equal(t, cfg.MaxPrice, Price(cfg, -500))
	assert.Equal(t, cfg.MinPrice, Price(cfg, 5000))
}

func TestPriceRounding(t *testing.T) {
	cfg := config.Default().Market
	// 5 * exp(0.005 * (260 - 48.8)) = 14.3...
	p := Price(cfg, 48.8)
	assert.Equal(t, Round(p, 2), p)
	assert.InDelta(t, 14.4, p, 0.1)
	assert.Equal(t, 1.24, Round(1.235, 2))
	assert.Equal(t, -1.24, Round(-1.235, 2))
}

func TestShipValue(t *testing.T) {
	fleet := config.Default().Fleet
	assert.Equal(t, 150.0, ShipValue(fleet, 0, 2000))
	assert.Equal(t, 1000.0, ShipValue(fleet, 2000, 2000))
	// density 0.4: 150 + 850 * 0.16 = 286
	assert.Equal(t, 286.0, ShipValue(fleet, 800, 2000))
	assert.Equal(t, 150.0, ShipValue(fleet, 800, 0))
}

func TestNewContract(t *testing.T) {
	cfg := config.Default().Contract

	// avg 3 ships: base 54, uniform in [37.8, 59.4)
	c := NewContract(cfg, entropy.NewFixed(0.5), 3, 5, 2)
	assert.Equal(t, 48, c.Quantity)
	assert.Equal(t, 6.0, c.UnitPrice)
	assert.Equal(t, 2.0, c.PenaltyMultiplier)

	small := NewContract(cfg, entropy.NewFixed(0), 1, 4.33, 2)
	assert.Equal(t, 30, small.Quantity, "minimum quantity applies")
	assert.Equal(t, 5.2, small.UnitPrice)
}

func TestSettleDeclined(t *testing.T) {
	contract := &Contract{Quantity: 40, UnitPrice: 6, PenaltyMultiplier: 2}
	st := Settle(Sale{Available: 100, Freeze: 30}, contract, 5, 1)

	assert.False(t, st.Accepted)
	assert.Equal(t, 70.0, st.Sellable)
	assert.Equal(t, 70.0, st.SoldAtMkt)
	assert.Zero(t, st.Delivered)
	assert.Zero(t, st.Penalty)
	assert.Equal(t, 350.0, st.Revenue)
	assert.Equal(t, 30.0, st.StorageCost)
	assert.Equal(t, 30.0, st.Freezer)
	assert.Equal(t, 320.0, st.Net())
}

func TestSettleAcceptedFulfilled(t *testing.T) {
	contract := &Contract{Quantity: 40, UnitPrice: 6, PenaltyMultiplier: 2}
	st := Settle(Sale{Available: 100, Freeze: 10, Accepted: true}, contract, 5, 1)

	assert.True(t, st.Accepted)
	assert.Equal(t, 40.0, st.Delivered)
	assert.Equal(t, 50.0, st.SoldAtMkt)
	assert.Zero(t, st.Shortfall)
	assert.Zero(t, st.Penalty)
	assert.Equal(t, 40*6.0+50*5.0, st.Revenue)
}

func TestSettleAcceptedShort(t *testing.T) {
	contract := &Contract{Quantity: 40, UnitPrice: 6, PenaltyMultiplier: 2}
	st := Settle(Sale{Available: 30, Freeze: 5, Accepted: true}, contract, 5, 1)

	assert.Equal(t, 25.0, st.Delivered)
	assert.Equal(t, 15.0, st.Shortfall)
	assert.Equal(t, 15*6.0*2, st.Penalty)
	assert.Zero(t, st.SoldAtMkt)
	assert.Equal(t, 150.0, st.Revenue)
	assert.Equal(t, 5.0, st.StorageCost)
	assert.Equal(t, 150.0-5-180, st.Net())
}

func TestSettleAcceptedWithoutContract(t *testing.T) {
	st := Settle(Sale{Available: 10, Accepted: true}, nil, 3, 1)
	assert.False(t, st.Accepted, "no contract was offered")
	assert.Zero(t, st.Penalty)
	assert.Equal(t, 30.0, st.Revenue)
}

func TestFreezerRoundTrip(t *testing.T) {
	// Freeze everything this round, land nothing next round and freeze it all
	// again: the freezer holds exactly the same stock, only the bill is charged.
	first := Settle(Sale{Available: 37.5, Freeze: 37.5}, nil, 5, 1)
	require.Equal(t, 37.5, first.Freezer)

	second := Settle(Sale{Available: 0 + first.Freezer, Freeze: first.Freezer}, nil, 5, 1)
	assert.Equal(t, first.Freezer, second.Freezer)
	assert.Zero(t, second.Revenue)
	assert.Equal(t, 37.5, second.StorageCost)
}
