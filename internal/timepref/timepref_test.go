package timepref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSelfAffinityIsOne(t *testing.T) {
	d, err := Derive(0, 3600, DefaultMRange)
	require.NoError(t, err)
	assert.Greater(t, d.Sigma, 0.0)

	tau := TemporalAffinity(d, 0, 3600, DefaultMRange)
	assert.InDelta(t, 1.0, tau, 1e-9)
}

func TestDeriveRejectsBadWindow(t *testing.T) {
	_, err := Derive(100, 100, DefaultMRange)
	assert.Error(t, err)
	_, err = Derive(200, 100, DefaultMRange)
	assert.Error(t, err)
}

func TestTemporalAffinityClippedToUnitInterval(t *testing.T) {
	d, err := Derive(0, 600, DefaultMRange)
	require.NoError(t, err)

	tau := TemporalAffinity(d, 7200, 7800, DefaultMRange)
	assert.GreaterOrEqual(t, tau, 0.0)
	assert.LessOrEqual(t, tau, 1.0)
	assert.InDelta(t, 0.0, tau, 1e-6, "far-apart windows should have ~0 temporal affinity")
}

func TestTemporalAffinityIsAsymmetric(t *testing.T) {
	dA, err := Derive(0, 600, DefaultMRange)
	require.NoError(t, err)
	dB, err := Derive(400, 1200, DefaultMRange)
	require.NoError(t, err)

	aTowardB := TemporalAffinity(dA, 400, 1200, DefaultMRange)
	bTowardA := TemporalAffinity(dB, 0, 600, DefaultMRange)
	assert.NotEqual(t, aTowardB, bTowardA)
}
