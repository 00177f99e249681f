package merger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
)

func TestHistogramSetFill(t *testing.T) {
	h := NewHistogramSet()
	ev := &EventReconstruction{
		Addback: []AddbackCluster{{Energy: 511}, {Energy: 1022}},
		AddbackPairs: []CoincidencePair{
			{E1: 511, E2: 1022},
			{E1: 1022, E2: 511},
		},
	}

	h.Fill(&OutputRecord{Event: ev, Implant: 0, DE: 100, ToF: 200, VandleCorTof: []float64{50, InvalidValue}})
	h.Fill(&OutputRecord{Event: ev, Implant: 1, DE: 110, ToF: 210, VandleCorTof: []float64{60}})

	assert.EqualValues(t, 2, h.PID.Entries())
	assert.EqualValues(t, 2, h.CorTof.Entries())
	assert.EqualValues(t, 2, h.Addback.Entries())
	assert.EqualValues(t, 2, h.GammaGamma.Entries())
	assert.Equal(t, "ctof", h.CorTof.Name())
}

func TestHistogramSetFillLaterImplant(t *testing.T) {
	h := NewHistogramSet()
	first := &EventReconstruction{Addback: []AddbackCluster{{Energy: 500}}}
	second := &EventReconstruction{Addback: []AddbackCluster{{Energy: 600}}}

	// The unidentified implant 0 was routed elsewhere.
	h.Fill(&OutputRecord{Event: first, Implant: 1, Zed: 9, AMass: 29})
	assert.EqualValues(t, 1, h.Addback.Entries())

	h.Fill(&OutputRecord{Event: first, Implant: 2, Zed: 9, AMass: 29})
	assert.EqualValues(t, 1, h.Addback.Entries())

	h.Fill(&OutputRecord{Event: second, Implant: 0, Zed: 9, AMass: 29})
	assert.EqualValues(t, 2, h.Addback.Entries())
	assert.EqualValues(t, 3, h.PID.Entries())
}

func TestHistogramSinkSave(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "hist.root")
	f, err := groot.Create(filename)
	require.NoError(t, err)

	sink := NewHistogramSink(f)
	rec := OutputRecord{
		Event:        &EventReconstruction{Addback: []AddbackCluster{{Energy: 661.7}}},
		VandleCorTof: []float64{80},
	}
	require.NoError(t, sink.WriteRecord(&rec))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	require.NoError(t, f.Close())

	r, err := groot.Open(filename)
	require.NoError(t, err)
	defer r.Close()
	for _, name := range []string{"ctof", "pid", "addback", "addback_gg"} {
		_, err := r.Get(name)
		assert.NoError(t, err, name)
	}
}

func TestPlotAddback(t *testing.T) {
	h := NewHistogramSet()
	for _, e := range []float64{511, 511, 1274.5} {
		h.Addback.Fill(e, 1)
	}
	filename := filepath.Join(t.TempDir(), "addback.png")
	require.NoError(t, h.PlotAddback(filename))
	assert.FileExists(t, filename)
}
