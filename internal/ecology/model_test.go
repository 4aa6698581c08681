package ecology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/83ace42/fish-tycoon/internal/config"
	"github.com/83ace42/fish-tycoon/internal/entropy"
)

func newModel(t *testing.T) *Model {
	t.Helper()
	return New(config.Default().Ecology, 1)
}

func TestInitialStock(t *testing.T) {
	m := newModel(t)
	s := m.State()
	assert.InDelta(t, 320.0, s.Shore, 1e-9)
	assert.InDelta(t, 480.0, s.Deep, 1e-9)
	assert.InDelta(t, 800.0, s.ShoreCapacity, 1e-9)
	assert.InDelta(t, 1200.0, s.DeepCapacity, 1e-9)
	assert.Equal(t, Calm.Name, s.Event.Name)
}

func TestHarvestScenario(t *testing.T) {
	m := newModel(t)

	shore := m.Harvest(Shore, 2)
	deep := m.Harvest(Deep, 1)

	assert.InDelta(t, 22.4, shore, 1e-9)
	assert.InDelta(t, 26.4, deep, 1e-9)
	assert.InDelta(t, 320-22.4, m.Population(Shore), 1e-9)
	assert.InDelta(t, 480-26.4, m.Population(Deep), 1e-9)
}

func TestHarvestZeroShips(t *testing.T) {
	m := newModel(t)
	assert.Zero(t, m.Harvest(Shore, 0))
	assert.Zero(t, m.Harvest(Deep, -3))
	assert.InDelta(t, 320.0, m.Population(Shore), 1e-9)
}

func TestHarvestNeverExceedsPopulation(t *testing.T) {
	m := newModel(t)
	for ships := 1; ships <= 500; ships += 7 {
		before := m.Population(Deep)
		got := m.Harvest(Deep, ships)
		require.LessOrEqual(t, got, before)
		require.GreaterOrEqual(t, m.Population(Deep), 0.0)
		require.InDelta(t, before-got, m.Population(Deep), 1e-9)
	}
}

func TestCrowdingPenalty(t *testing.T) {
	assert.Equal(t, 1.0, CrowdingPenalty(5, 10, 0.05))
	assert.Equal(t, 1.0, CrowdingPenalty(10, 10, 0.05))
	assert.InDelta(t, 1/1.5, CrowdingPenalty(20, 10, 0.05), 1e-12)

	m := newModel(t)
	// 30 shore ships: 320 * 0.035 * 30 / (1 + 20*0.05) = 168
	assert.InDelta(t, 168.0, m.Potential(Shore, 30), 1e-9)
}

func TestEventModifiesEfficiency(t *testing.T) {
	m := newModel(t)
	m.SetEvent(Catalog[1]) // Coastal Storm
	assert.InDelta(t, 11.2, m.Potential(Shore, 2), 1e-9)
	assert.InDelta(t, 26.4, m.Potential(Deep, 1), 1e-9)
}

func TestRegrowLogistic(t *testing.T) {
	m := newModel(t)
	m.Regrow(1)
	// 320 + 0.28 * 320 * (1 - 320/800) = 373.76
	assert.InDelta(t, 373.76, m.Population(Shore), 1e-9)
	// 480 + 0.35 * 480 * (1 - 480/1200) = 580.8
	assert.InDelta(t, 580.8, m.Population(Deep), 1e-9)
}

func TestRegrowClamped(t *testing.T) {
	cfg := config.Default().Ecology
	cfg.Shore.GrowthRate = 5 // overshoot
	m := New(cfg, 1)
	m.Restore(500, 0)
	m.Regrow(1)
	assert.LessOrEqual(t, m.Population(Shore), m.Capacity(Shore))
	assert.GreaterOrEqual(t, m.Population(Shore), 0.0)
	assert.Zero(t, m.Population(Deep), "an empty zone stays empty")

	m.SetEvent(Event{Name: "Die-off", ShoreMod: 1, DeepMod: 1, GrowthMod: -10})
	m.Restore(400, 600)
	m.Regrow(2)
	assert.Zero(t, m.Population(Shore))
	assert.Zero(t, m.Population(Deep))
}

func TestRestoreClamps(t *testing.T) {
	m := newModel(t)
	m.Restore(-5, 99999)
	assert.Zero(t, m.Population(Shore))
	assert.Equal(t, m.Capacity(Deep), m.Population(Deep))
}

func TestRollEventDeterministic(t *testing.T) {
	a := newModel(t)
	b := newModel(t)
	sa := entropy.NewSeeded(99)
	sb := entropy.NewSeeded(99)
	for i := 0; i < 20; i++ {
		require.Equal(t, a.RollEvent(sa).Name, b.RollEvent(sb).Name)
	}

	m := newModel(t)
	assert.Equal(t, "Calm Seas", m.RollEvent(entropy.NewFixed(0)).Name)
	assert.Equal(t, "Whale Migration", m.RollEvent(entropy.NewFixed(0.9999)).Name)
	assert.Equal(t, "Whale Migration", m.State().Event.Name)
}

func TestCurrentsPerturbGrowth(t *testing.T) {
	cfg := config.Default().Ecology
	cfg.CurrentAmp = 0.5
	m := New(cfg, 3)
	base := newModel(t)

	differs := false
	for round := 1; round <= 10; round++ {
		m.Restore(320, 480)
		base.Restore(320, 480)
		m.Regrow(round)
		base.Regrow(round)
		require.LessOrEqual(t, m.Population(Shore), m.Capacity(Shore))
		if m.Population(Shore) != base.Population(Shore) {
			differs = true
		}
	}
	assert.True(t, differs, "current field should move growth away from the baseline")
}
