package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetaCut(t *testing.T) {
	cut, err := betaCut([]float64{0, 4, 0.3})
	require.NoError(t, err)
	assert.Equal(t, "dT * 1e6 > 0 && dT * 1e6 < 4 && dr < 0.3 && betaEnergyLowGain > 0 && betaEnergyLowGain < 600", cut)

	cut, err = betaCut([]float64{0, 4, 0.3, 20, 800})
	require.NoError(t, err)
	assert.Equal(t, "dT * 1e6 > 0 && dT * 1e6 < 4 && dr < 0.3 && betaEnergyLowGain > 20 && betaEnergyLowGain < 800", cut)

	for _, bad := range [][]float64{{1}, {0, 4, 0.3, 20}} {
		_, err := betaCut(bad)
		assert.Error(t, err)
	}
}
