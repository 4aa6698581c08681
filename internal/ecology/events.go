// Package ecology models the shared fishing ground: two zones of fish,
// harvest with crowding, logistic regrowth and the yearly environmental event.
package ecology

import (
	"github.com/83ace42/fish-tycoon/internal/entropy"
)

// Event is an environmental condition active for one round.
type Event struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ShoreMod    float64 `json:"shore_mod"`  // Multiplier on shore efficiency
	DeepMod     float64 `json:"deep_mod"`   // Multiplier on deep efficiency
	GrowthMod   float64 `json:"growth_mod"` // Added to both zone growth rates
	Weight      int     `json:"-"`
}

// Calm is the baseline event, drawn several times more often than any other.
var Calm = Event{
	Name:        "Calm Seas",
	Description: "Perfect weather. Business as usual.",
	ShoreMod:    1.0,
	DeepMod:     1.0,
	Weight:      40,
}

// Catalog is the fixed set of events drawn at the start of each round.
var Catalog = []Event{
	Calm,
	{Name: "Coastal Storm", Description: "High waves! Shore efficiency -50%.", ShoreMod: 0.5, DeepMod: 1.0, Weight: 12},
	{Name: "Deep Freeze", Description: "Icebergs! Deep efficiency -50%.", ShoreMod: 1.0, DeepMod: 0.5, Weight: 12},
	{Name: "Algae Bloom", Description: "Toxic algae. Reproduction -10%.", ShoreMod: 1.0, DeepMod: 1.0, GrowthMod: -0.10, Weight: 12},
	{Name: "Upwelling", Description: "Nutrient surge! Reproduction +15%.", ShoreMod: 1.0, DeepMod: 1.0, GrowthMod: 0.15, Weight: 12},
	{Name: "Whale Migration", Description: "Whales in deep water. Deep efficiency -30%, growth +5%.", ShoreMod: 1.0, DeepMod: 0.7, GrowthMod: 0.05, Weight: 12},
}

// Mod returns the efficiency multiplier the event applies to a zone.
func (e Event) Mod(z Zone) float64 {
	if z == Deep {
		return e.DeepMod
	}
	return e.ShoreMod
}

// DrawEvent selects an event from catalog by weight.
func DrawEvent(src entropy.Source, catalog []Event) Event {
	weights := make([]int, len(catalog))
	for i, e := range catalog {
		weights[i] = e.Weight
	}
	idx := entropy.WeightedIndex(src, weights)
	if idx < 0 {
		return Calm
	}
	return catalog[idx]
}
