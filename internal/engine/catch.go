package engine

import (
	"github.com/83ace42/fish-tycoon/internal/config"
	"github.com/83ace42/fish-tycoon/internal/ecology"
)

// Share is one participant's part of the round's catch.
type Share struct {
	Shore         float64 `json:"shore"`
	Deep          float64 `json:"deep"`
	Total         float64 `json:"total"`
	OperatingCost float64 `json:"operating_cost"`
}

// CatchReport summarizes a fishing resolution.
type CatchReport struct {
	ShoreShips     int              `json:"shore_ships"`
	DeepShips      int              `json:"deep_ships"`
	ShorePotential float64          `json:"shore_potential"`
	DeepPotential  float64          `json:"deep_potential"`
	Total          float64          `json:"total"`
	Shares         map[string]Share `json:"shares"`
}

// OperatingCost prices a deployment: fuel for each zone plus harbor upkeep.
func OperatingCost(cfg config.Config, d Deployment) float64 {
	return float64(d.Shore)*cfg.Ecology.Shore.OperatingCost +
		float64(d.Deep)*cfg.Ecology.Deep.OperatingCost +
		float64(d.Harbor)*cfg.Fleet.HarborCost
}

func (s *Session) operatingCost(d Deployment) float64 {
	return OperatingCost(s.cfg, d)
}

// AllocateCatch harvests each zone once for the combined fleet and splits the
// landed mass in proportion to the ships each participant sent there.
// order fixes the iteration order so floating point sums are reproducible.
func AllocateCatch(eco *ecology.Model, cfg config.Config, order []string, deployments map[string]Deployment) CatchReport {
	rep := CatchReport{Shares: make(map[string]Share, len(deployments))}
	for _, id := range order {
		d, ok := deployments[id]
		if !ok {
			continue
		}
		rep.ShoreShips += d.Shore
		rep.DeepShips += d.Deep
	}

	rep.ShorePotential = eco.Harvest(ecology.Shore, rep.ShoreShips)
	rep.DeepPotential = eco.Harvest(ecology.Deep, rep.DeepShips)

	for _, id := range order {
		d, ok := deployments[id]
		if !ok {
			continue
		}
		var sh Share
		if rep.ShoreShips > 0 {
			sh.Shore = float64(d.Shore) / float64(rep.ShoreShips) * rep.ShorePotential
		}
		if rep.DeepShips > 0 {
			sh.Deep = float64(d.Deep) / float64(rep.DeepShips) * rep.DeepPotential
		}
		sh.Total = sh.Shore + sh.Deep
		sh.OperatingCost = OperatingCost(cfg, d)
		rep.Shares[id] = sh
		rep.Total += sh.Total
	}
	return rep
}
