package schedule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeTwoPassengerScenario(t *testing.T) {
	// spec.md §8 scenario 6: mu=100/sigma=10 and mu=120/sigma=10 should
	// jointly optimize to approximately 110 (equal weight, symmetric
	// variances average the means).
	prefs := []Preference{
		{Mu: 100, Sigma: 10},
		{Mu: 120, Sigma: 10},
	}
	res, err := Optimize(prefs, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.InDelta(t, 110.0, res.DepartureTime, 0.5)
}

func TestOptimizeSinglePassengerReturnsMu(t *testing.T) {
	prefs := []Preference{{Mu: 50, Sigma: 5}}
	res, err := Optimize(prefs, DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, 50.0, res.DepartureTime, 0.5)
}

func TestOptimizeRejectsEmptyGroup(t *testing.T) {
	_, err := Optimize(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestOptimizeFallsBackOnNonFiniteBracket(t *testing.T) {
	prefs := []Preference{{Mu: math.NaN(), Sigma: 10, TMin: 42}, {Mu: math.NaN(), Sigma: 10, TMin: 58}}
	res, err := Optimize(prefs, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.InDelta(t, 50.0, res.DepartureTime, 1e-9, "fallback must be the mean of t_min, not NaN propagated from mu")
}

func TestNarrowVsWideBracketPolicy(t *testing.T) {
	prefs := []Preference{
		{Mu: 0, Sigma: 1},
		{Mu: 100, Sigma: 1},
	}
	narrow, err := Optimize(prefs, Config{BracketPolicy: BracketNarrowPrototype, Tolerance: 1e-4})
	require.NoError(t, err)
	wide, err := Optimize(prefs, Config{BracketPolicy: BracketWide, Tolerance: 1e-4})
	require.NoError(t, err)

	// Narrow reuses min() for both ends, capping the search at 3 (the
	// earliest mu+3*sigma), short of the joint optimum at 50; wide spans
	// up to 103 and reaches it.
	assert.Less(t, narrow.DepartureTime, wide.DepartureTime)
}
