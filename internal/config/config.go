// Package config holds the tuning constants of a fishing session.
// Defaults reproduce the balanced hot-seat ruleset; a YAML file may override any field.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full set of balance constants consumed by the engines.
type Config struct {
	MaxRoundsLimit   int `yaml:"max_rounds_limit"`
	DefaultMaxRounds int `yaml:"default_max_rounds"`

	StartingCash  float64 `yaml:"starting_cash"`
	StartingShips int     `yaml:"starting_ships"`

	Ecology  EcologyConfig  `yaml:"ecology"`
	Fleet    FleetConfig    `yaml:"fleet"`
	Market   MarketConfig   `yaml:"market"`
	Contract ContractConfig `yaml:"contract"`
	Auction  AuctionConfig  `yaml:"auction"`

	// StrictAffordability rejects deployments whose operating cost exceeds cash.
	StrictAffordability bool `yaml:"strict_affordability"`

	// LogLimit caps the public log length (newest kept). Zero means unbounded.
	LogLimit int `yaml:"log_limit"`
}

// EcologyConfig describes the fishing ground.
type EcologyConfig struct {
	MaxCapacity   float64    `yaml:"max_capacity"`
	InitialStock  float64    `yaml:"initial_stock"` // fraction of each zone capacity
	Shore         ZoneConfig `yaml:"shore"`
	Deep          ZoneConfig `yaml:"deep"`
	CurrentAmp    float64    `yaml:"current_amplitude"` // 0 disables current variability
	CurrentPeriod float64    `yaml:"current_period"`    // rounds per noise cycle
}

// ZoneConfig holds the independent constants of one zone.
type ZoneConfig struct {
	CapacityShare     float64 `yaml:"capacity_share"`
	Efficiency        float64 `yaml:"efficiency"`
	CrowdingThreshold int     `yaml:"crowding_threshold"`
	CrowdingRate      float64 `yaml:"crowding_rate"`
	GrowthRate        float64 `yaml:"growth_rate"`
	OperatingCost     float64 `yaml:"operating_cost"`
}

// FleetConfig holds ship prices and harbor upkeep.
type FleetConfig struct {
	ShipCost       float64 `yaml:"ship_cost"`
	ShipScrap      float64 `yaml:"ship_scrap"`
	ShipResaleCeil float64 `yaml:"ship_resale_ceiling"`
	HarborCost     float64 `yaml:"harbor_cost"`
	StorageCost    float64 `yaml:"storage_cost"`
}

// MarketConfig parameterizes the exponential price response.
type MarketConfig struct {
	BasePrice      float64 `yaml:"base_price"`
	BaselineDemand float64 `yaml:"baseline_demand"`
	Sensitivity    float64 `yaml:"sensitivity"`
	MinPrice       float64 `yaml:"min_price"`
	MaxPrice       float64 `yaml:"max_price"`
	Digits         int32   `yaml:"digits"`
}

// ContractConfig parameterizes the per-round delivery contract.
type ContractConfig struct {
	Enabled           bool    `yaml:"enabled"`
	QtyPerShip        float64 `yaml:"qty_per_ship"`
	QtyLow            float64 `yaml:"qty_low"`
	QtyHigh           float64 `yaml:"qty_high"`
	MinQty            int     `yaml:"min_qty"`
	PriceMarkup       float64 `yaml:"price_markup"`
	PenaltyMultiplier float64 `yaml:"penalty_multiplier"`
}

// AuctionConfig selects between the sealed-bid ship market and the shipyard.
type AuctionConfig struct {
	// Enabled runs AUCTION_LIST/AUCTION_BID each round; otherwise a single
	// SHIPYARD phase sells new ships at Fleet.ShipCost.
	Enabled bool `yaml:"enabled"`
}

// Default returns the balanced ruleset.
func Default() Config {
	return Config{
		MaxRoundsLimit:   20,
		DefaultMaxRounds: 5,
		StartingCash:     1000,
		StartingShips:    3,
		Ecology: EcologyConfig{
			MaxCapacity:  2000,
			InitialStock: 0.4,
			Shore: ZoneConfig{
				CapacityShare:     0.4,
				Efficiency:        0.035,
				CrowdingThreshold: 10,
				CrowdingRate:      0.05,
				GrowthRate:        0.28,
				OperatingCost:     45,
			},
			Deep: ZoneConfig{
				CapacityShare:     0.6,
				Efficiency:        0.055,
				CrowdingThreshold: 10,
				CrowdingRate:      0.05,
				GrowthRate:        0.35,
				OperatingCost:     60,
			},
			CurrentPeriod: 8,
		},
		Fleet: FleetConfig{
			ShipCost:       300,
			ShipScrap:      150,
			ShipResaleCeil: 1000,
			HarborCost:     5,
			StorageCost:    1,
		},
		Market: MarketConfig{
			BasePrice:      5,
			BaselineDemand: 260,
			Sensitivity:    0.005,
			MinPrice:       1,
			MaxPrice:       15,
			Digits:         2,
		},
		Contract: ContractConfig{
			Enabled:           true,
			QtyPerShip:        18,
			QtyLow:            0.7,
			QtyHigh:           1.1,
			MinQty:            30,
			PriceMarkup:       1.2,
			PenaltyMultiplier: 2,
		},
		Auction:  AuctionConfig{Enabled: true},
		LogLimit: 500,
	}
}

// Rounds resolves a requested session length; 0 means DefaultMaxRounds.
func (c Config) Rounds(requested int) int {
	if requested == 0 {
		return c.DefaultMaxRounds
	}
	return requested
}

// Load reads a YAML tuning file on top of Default.
func Load(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate rejects configurations the engines cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.MaxRoundsLimit < 1 {
		errs = append(errs, errors.New("max_rounds_limit must be >= 1"))
	}
	if c.DefaultMaxRounds < 1 || c.DefaultMaxRounds > c.MaxRoundsLimit {
		errs = append(errs, errors.New("default_max_rounds must be within [1, max_rounds_limit]"))
	}
	if c.StartingShips < 0 {
		errs = append(errs, errors.New("starting_ships must be >= 0"))
	}
	if c.Ecology.MaxCapacity <= 0 {
		errs = append(errs, errors.New("ecology.max_capacity must be > 0"))
	}
	if c.Ecology.InitialStock < 0 || c.Ecology.InitialStock > 1 {
		errs = append(errs, errors.New("ecology.initial_stock must be within [0, 1]"))
	}
	for name, z := range map[string]ZoneConfig{"shore": c.Ecology.Shore, "deep": c.Ecology.Deep} {
		if z.CapacityShare <= 0 {
			errs = append(errs, fmt.Errorf("ecology.%s.capacity_share must be > 0", name))
		}
		if z.Efficiency < 0 || z.CrowdingRate < 0 || z.CrowdingThreshold < 0 {
			errs = append(errs, fmt.Errorf("ecology.%s: efficiency and crowding must be >= 0", name))
		}
	}
	if c.Market.MinPrice <= 0 || c.Market.MaxPrice < c.Market.MinPrice {
		errs = append(errs, errors.New("market: need 0 < min_price <= max_price"))
	}
	if c.Market.Sensitivity <= 0 {
		errs = append(errs, errors.New("market.sensitivity must be > 0"))
	}
	if c.Market.Digits < 0 {
		errs = append(errs, errors.New("market.digits must be >= 0"))
	}
	if c.Contract.Enabled && (c.Contract.QtyHigh < c.Contract.QtyLow || c.Contract.PenaltyMultiplier < 0) {
		errs = append(errs, errors.New("contract: need qty_low <= qty_high and penalty_multiplier >= 0"))
	}
	return errors.Join(errs...)
}
