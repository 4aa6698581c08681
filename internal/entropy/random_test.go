package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededIsDeterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 50; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
}

func TestWeightedIndex(t *testing.T) {
	weights := []int{40, 12, 12}

	assert.Equal(t, 0, WeightedIndex(NewFixed(0), weights))
	assert.Equal(t, 0, WeightedIndex(NewFixed(39.9/64), weights))
	assert.Equal(t, 1, WeightedIndex(NewFixed(40.0/64), weights))
	assert.Equal(t, 2, WeightedIndex(NewFixed(0.999999), weights))
	assert.Equal(t, -1, WeightedIndex(NewFixed(0.5), []int{0, 0}))
	assert.Equal(t, 1, WeightedIndex(NewFixed(0.1), []int{0, 5, -3}))
}

func TestWeightedIndexFavorsHeavyWeight(t *testing.T) {
	src := NewSeeded(7)
	weights := []int{40, 12, 12, 12, 12, 12}
	counts := make([]int, len(weights))
	for i := 0; i < 10000; i++ {
		counts[WeightedIndex(src, weights)]++
	}
	for i := 1; i < len(counts); i++ {
		assert.Greater(t, counts[0], 2*counts[i], "baseline should dominate index %d", i)
	}
}

func TestUniformRange(t *testing.T) {
	assert.Equal(t, 10.0, Uniform(NewFixed(0), 10, 20))
	assert.Equal(t, 15.0, Uniform(NewFixed(0.5), 10, 20))

	src := Crypto{}
	for i := 0; i < 100; i++ {
		v := Uniform(src, 3, 4)
		require.GreaterOrEqual(t, v, 3.0)
		require.Less(t, v, 4.0)
	}
}
