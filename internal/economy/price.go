// Package economy provides fish pricing, ship valuation and delivery contracts.
package economy

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/83ace42/fish-tycoon/internal/config"
)

// Round rounds a currency amount half away from zero to digits fractional digits.
func Round(v float64, digits int32) float64 {
	return decimal.NewFromFloat(v).Round(digits).InexactFloat64()
}

// Price maps the total mass landed in a round to the round's fish price.
// More fish depresses the price exponentially around the baseline demand;
// the result is clamped to [MinPrice, MaxPrice] and rounded.
func Price(cfg config.MarketConfig, totalMass float64) float64 {
	if totalMass < 0 {
		totalMass = 0
	}
	p := cfg.BasePrice * math.Exp(cfg.Sensitivity*(cfg.BaselineDemand-totalMass))
	if p < cfg.MinPrice {
		p = cfg.MinPrice
	}
	if p > cfg.MaxPrice {
		p = cfg.MaxPrice
	}
	return Round(p, cfg.Digits)
}

// ShipValue is the resale value of one ship given the remaining fish stock.
// A depleted ocean makes ships worth little more than scrap.
func ShipValue(cfg config.FleetConfig, totalFish, maxCapacity float64) float64 {
	density := 0.0
	if maxCapacity > 0 {
		density = math.Max(0, math.Min(1, totalFish/maxCapacity))
	}
	v := cfg.ShipScrap + (cfg.ShipResaleCeil-cfg.ShipScrap)*density*density
	return Round(v, 2)
}
