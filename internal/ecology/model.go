package ecology

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/83ace42/fish-tycoon/internal/config"
	"github.com/83ace42/fish-tycoon/internal/entropy"
)

// Zone is one of the two fishing waters.
type Zone uint8

const (
	Shore Zone = iota
	Deep
)

// Zones lists every zone in resolution order.
var Zones = [2]Zone{Shore, Deep}

func (z Zone) String() string {
	if z == Deep {
		return "deep"
	}
	return "shore"
}

// State is the observable ecology: populations, capacities and the active event.
type State struct {
	Shore         float64 `json:"shore"`
	Deep          float64 `json:"deep"`
	ShoreCapacity float64 `json:"shore_capacity"`
	DeepCapacity  float64 `json:"deep_capacity"`
	Event         Event   `json:"event"`
}

// Total returns the combined population of both zones.
func (s State) Total() float64 {
	return s.Shore + s.Deep
}

// Model owns the ecology state and applies harvest, regrowth and events.
type Model struct {
	cfg   config.EcologyConfig
	state State

	// Ocean currents perturb growth rates round to round. Nil when disabled.
	currents opensimplex.Noise
}

// New creates a model with both zones stocked at the configured fraction of capacity.
// seed only feeds the current field; events draw from the source passed to RollEvent.
func New(cfg config.EcologyConfig, seed int64) *Model {
	m := &Model{cfg: cfg}
	m.state.ShoreCapacity = cfg.MaxCapacity * cfg.Shore.CapacityShare
	m.state.DeepCapacity = cfg.MaxCapacity * cfg.Deep.CapacityShare
	m.state.Shore = m.state.ShoreCapacity * cfg.InitialStock
	m.state.Deep = m.state.DeepCapacity * cfg.InitialStock
	m.state.Event = Calm
	if cfg.CurrentAmp > 0 {
		m.currents = opensimplex.New(seed)
	}
	return m
}

// State returns a copy of the current ecology.
func (m *Model) State() State {
	return m.state
}

// Population returns the fish stock of a zone.
func (m *Model) Population(z Zone) float64 {
	if z == Deep {
		return m.state.Deep
	}
	return m.state.Shore
}

// Capacity returns the carrying capacity (and hard ceiling) of a zone.
func (m *Model) Capacity(z Zone) float64 {
	if z == Deep {
		return m.state.DeepCapacity
	}
	return m.state.ShoreCapacity
}

func (m *Model) zone(z Zone) config.ZoneConfig {
	if z == Deep {
		return m.cfg.Deep
	}
	return m.cfg.Shore
}

func (m *Model) set(z Zone, pop float64) {
	pop = clamp(pop, 0, m.Capacity(z))
	if z == Deep {
		m.state.Deep = pop
	} else {
		m.state.Shore = pop
	}
}

// CrowdingPenalty is the multiplicative efficiency loss once ships exceed threshold.
func CrowdingPenalty(ships, threshold int, rate float64) float64 {
	excess := ships - threshold
	if excess < 0 {
		excess = 0
	}
	return 1 / (1 + float64(excess)*rate)
}

// Potential returns the mass that ships deployed in z would land this round,
// without touching the population.
func (m *Model) Potential(z Zone, ships int) float64 {
	if ships <= 0 {
		return 0
	}
	zc := m.zone(z)
	pop := m.Population(z)
	penalty := CrowdingPenalty(ships, zc.CrowdingThreshold, zc.CrowdingRate)
	mass := pop * zc.Efficiency * m.state.Event.Mod(z) * float64(ships) * penalty
	return math.Min(pop, mass)
}

// Harvest debits the zone by its potential for ships and returns the mass taken.
// The harvested mass never exceeds the pre-harvest population.
func (m *Model) Harvest(z Zone, ships int) float64 {
	mass := m.Potential(z, ships)
	m.set(z, m.Population(z)-mass)
	return mass
}

// Regrow applies one round of logistic growth to both zones using the active event.
func (m *Model) Regrow(round int) {
	for _, z := range Zones {
		zc := m.zone(z)
		pop := m.Population(z)
		capacity := m.Capacity(z)
		rate := zc.GrowthRate*m.currentFactor(z, round) + m.state.Event.GrowthMod
		growth := rate * pop * (1 - pop/capacity)
		m.set(z, pop+growth)
	}
}

// currentFactor scales a zone's base growth rate by the ocean current field.
func (m *Model) currentFactor(z Zone, round int) float64 {
	if m.currents == nil {
		return 1
	}
	period := m.cfg.CurrentPeriod
	if period <= 0 {
		period = 8
	}
	n := m.currents.Eval2(float64(round)/period, float64(z)*7.31)
	return math.Max(0, 1+m.cfg.CurrentAmp*n)
}

// RollEvent draws a new event from the catalog and makes it active.
func (m *Model) RollEvent(src entropy.Source) Event {
	m.state.Event = DrawEvent(src, Catalog)
	return m.state.Event
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
