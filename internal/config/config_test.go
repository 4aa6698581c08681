package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	yml := `
starting_cash: 2500
ecology:
  shore:
    efficiency: 0.04
auction:
  enabled: false
market:
  baseline_demand: 300
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, c.StartingCash)
	assert.Equal(t, 0.04, c.Ecology.Shore.Efficiency)
	assert.False(t, c.Auction.Enabled)
	assert.Equal(t, 300.0, c.Market.BaselineDemand)

	// Untouched fields keep their defaults.
	assert.Equal(t, 10, c.Ecology.Shore.CrowdingThreshold)
	assert.Equal(t, 0.055, c.Ecology.Deep.Efficiency)
	assert.Equal(t, 3, c.StartingShips)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("market:\n  min_price: 20\n  max_price: 10\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_price")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSampleTuningMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "tuning.yaml"))
	require.NoError(t, err)

	want := Default()
	want.Ecology.CurrentAmp = 0.15
	assert.Equal(t, want, cfg)
}
