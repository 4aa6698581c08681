package deckhand

import (
	"github.com/83ace42/fish-tycoon/internal/engine"
)

// Outlook holds signals derived from a snapshot before deciding.
// Deterministic and cheap; recomputed every poll.
type Outlook struct {
	ShoreDensity float64 // population / capacity
	DeepDensity  float64
	StockDensity float64 // both zones combined
	Rivals       int
	RivalShips   int
	Condition    string // "DEPLETED", "STRAINED", "HEALTHY"
}

// Assess computes an Outlook from the snapshot for captain me.
func Assess(snap *engine.Snapshot, me string) *Outlook {
	eco := snap.Ecology
	o := &Outlook{
		ShoreDensity: ratio(eco.Shore, eco.ShoreCapacity),
		DeepDensity:  ratio(eco.Deep, eco.DeepCapacity),
		StockDensity: ratio(eco.Shore+eco.Deep, eco.ShoreCapacity+eco.DeepCapacity),
	}
	for _, p := range snap.Participants {
		if p.ID == me {
			continue
		}
		o.Rivals++
		o.RivalShips += p.Ships
	}

	switch {
	case o.StockDensity < 0.2:
		o.Condition = "DEPLETED"
	case o.StockDensity < 0.35:
		o.Condition = "STRAINED"
	default:
		o.Condition = "HEALTHY"
	}
	return o
}

func ratio(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}
