package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShortQdcMode(t *testing.T) {
	mode, err := ParseShortQdcMode("")
	require.NoError(t, err)
	assert.Equal(t, ShortQdcPerHit, mode)

	mode, err = ParseShortQdcMode("last-hit")
	require.NoError(t, err)
	assert.Equal(t, ShortQdcLastHit, mode)

	_, err = ParseShortQdcMode("first-hit")
	assert.Error(t, err)
}

func crossTalkHits() []VandleHit {
	return []VandleHit{
		{TOF: 100, Bar: 40, ShortQdc: 4},
		{TOF: 100, Bar: 8, ShortQdc: 3},
		{TOF: 55, Bar: 30, ShortQdc: 2},
		{TOF: 50, Bar: 5, ShortQdc: 1},
	}
}

func TestSuppressCrossTalk(t *testing.T) {
	accepted, rejected := SuppressCrossTalk(crossTalkHits(), DefaultCrossTalkWindows(), ShortQdcPerHit)

	assert.True(t, rejected)
	require.Len(t, accepted, 2)
	assert.Equal(t, VandleHit{TOF: 50, Bar: 5, ShortQdc: 1}, accepted[0])
	assert.Equal(t, VandleHit{TOF: 100, Bar: 40, ShortQdc: 4}, accepted[1])
}

func TestSuppressCrossTalkLastHit(t *testing.T) {
	hits := crossTalkHits()
	hits[len(hits)-1].ShortQdc = 9

	accepted, _ := SuppressCrossTalk(hits, DefaultCrossTalkWindows(), ShortQdcLastHit)
	require.Len(t, accepted, 2)
	for _, hit := range accepted {
		assert.Equal(t, 9., hit.ShortQdc)
	}
}

func TestSuppressCrossTalkNoRejection(t *testing.T) {
	hits := []VandleHit{
		{TOF: 600, Bar: 1},
		{TOF: 20, Bar: 2},
	}
	accepted, rejected := SuppressCrossTalk(hits, DefaultCrossTalkWindows(), ShortQdcPerHit)
	assert.False(t, rejected)
	require.Len(t, accepted, 2)
	assert.Equal(t, 20., accepted[0].TOF)
	assert.Equal(t, 600., accepted[1].TOF)

	accepted, rejected = SuppressCrossTalk(nil, DefaultCrossTalkWindows(), ShortQdcPerHit)
	assert.Nil(t, accepted)
	assert.False(t, rejected)
}

func TestCorrectVandle(t *testing.T) {
	setup := testSetup(t)
	hits := []VandleHit{
		{TOF: 100, Bar: 47, Qdc: 500},
		{TOF: 300, Bar: 47, Qdc: 600},
		{TOF: 20, Bar: 47, Qdc: 700},
		{TOF: 100, Bar: 3, Qdc: 800},
	}
	corr := CorrectVandle(hits, setup, 0, 0, DefaultIdealFlightPath, DefaultTofWindows())

	assert.InDeltaSlice(t, []float64{105, 315, 21, InvalidValue}, corr.CorTof, 1e-6)
	assert.Equal(t, 1, corr.MultNeutron)
	assert.Equal(t, 1, corr.MultBKG)
	assert.Equal(t, 1, corr.InvalidPath)
	assert.InDeltaSlice(t, []float64{105, 90}, corr.TofTest, 1e-6)
	assert.Equal(t, []float64{500, 600}, corr.QdcTest)
	assert.Equal(t, []int{47, 47}, corr.BarTest)
}

func TestSuppressCrossTalkSameBar(t *testing.T) {
	hits := []VandleHit{
		{TOF: 100, Bar: 1},
		{TOF: 105, Bar: 1},
		{TOF: 500, Bar: 1},
	}
	accepted, rejected := SuppressCrossTalk(hits, DefaultCrossTalkWindows(), ShortQdcPerHit)
	assert.True(t, rejected)
	assert.Equal(t, []VandleHit{{TOF: 100, Bar: 1}}, accepted)
}

func TestSuppressCrossTalkStrictBounds(t *testing.T) {
	// Exactly on the narrow window, far bars.
	hits := []VandleHit{{TOF: 100, Bar: 1}, {TOF: 110, Bar: 40}}
	accepted, rejected := SuppressCrossTalk(hits, DefaultCrossTalkWindows(), ShortQdcPerHit)
	assert.False(t, rejected)
	assert.Len(t, accepted, 2)

	// Exactly on the wide window, close bars.
	hits = []VandleHit{{TOF: 100, Bar: 1}, {TOF: 600, Bar: 2}}
	accepted, rejected = SuppressCrossTalk(hits, DefaultCrossTalkWindows(), ShortQdcPerHit)
	assert.False(t, rejected)
	assert.Len(t, accepted, 2)

	// Bar distance is inclusive.
	hits = []VandleHit{{TOF: 100, Bar: 1}, {TOF: 200, Bar: 11}}
	accepted, _ = SuppressCrossTalk(hits, DefaultCrossTalkWindows(), ShortQdcPerHit)
	assert.Len(t, accepted, 1)
}
