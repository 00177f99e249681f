package merger

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatRow() Row {
	s := DefaultFlatSchema()
	return Row{
		s.Timestamp:       {1234},
		s.DE:              {150},
		s.ToF:             {160},
		s.Zed:             {11},
		s.AMass:           {33},
		s.IonX:            {1},
		s.IonY:            {2},
		s.FitB1:           {30},
		s.FitB2:           {-1},
		s.CloverEnergy:    {100, 200, 5},
		s.CloverRawEnergy: {1000, 2000, 50},
		s.CloverTime:      {1, 2, 3},
		s.CloverChannel:   {0, 1, 4},
	}
}

func TestReduceFlat(t *testing.T) {
	rec := ReduceFlat(8, flatRow(), DefaultFlatSchema(), DefaultCloverGroups(), GammaEnergyThreshold)

	assert.Equal(t, int64(8), rec.Event.Entry)
	assert.Equal(t, 11, rec.Zed)
	assert.Equal(t, 33, rec.AMass)
	assert.True(t, rec.Identified())
	assert.Equal(t, 150., rec.DE)
	assert.Equal(t, UnsetTiming, rec.DT)
	assert.Equal(t, UnsetTiming, rec.DR)
	assert.Equal(t, 1234., rec.Event.Beta.Time)
	assert.Equal(t, UnsetValue, rec.Event.Beta.X)
	assert.Equal(t, 30., rec.Event.Beta.FitEnergy())

	require.Len(t, rec.Event.Clovers, 3)
	assert.Equal(t, CloverHit{Energy: 5, RawEnergy: 50, Time: 3, Channel: 4, HighGain: true}, rec.Event.Clovers[2])
	assert.Len(t, rec.Event.CloverPairs, 6)
	require.Len(t, rec.Event.Addback, 1)
	assert.Equal(t, AddbackCluster{Energy: 300, Time: 2, Channel: 1, MaxEnergy: 200}, rec.Event.Addback[0])
	assert.Nil(t, rec.Event.AddbackPairs)
	assert.Empty(t, rec.Event.Vandles)
}

type sliceRecordSource struct {
	records []OutputRecord
	next    int
}

func (s *sliceRecordSource) NextRecord() (OutputRecord, error) {
	if s.next >= len(s.records) {
		return OutputRecord{}, io.EOF
	}
	s.next++
	return s.records[s.next-1], nil
}

func TestCopyRecords(t *testing.T) {
	schema := DefaultFlatSchema()
	unidentified := flatRow()
	unidentified[schema.Zed] = []float64{UnsetPID}
	source := &sliceRecordSource{records: []OutputRecord{
		ReduceFlat(0, flatRow(), schema, DefaultCloverGroups(), GammaEnergyThreshold),
		ReduceFlat(1, unidentified, schema, DefaultCloverGroups(), GammaEnergyThreshold),
	}}
	sink := &MemorySink{}

	stats, err := CopyRecords(context.Background(), source, sink)
	require.NoError(t, err)
	assert.Equal(t, RunStats{Events: 2, Records: 2, Identified: 1}, stats)
	require.Len(t, sink.Records, 2)
	assert.Equal(t, int64(1), sink.Records[1].Event.Entry)
}

func TestCopyRecordsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CopyRecords(ctx, &sliceRecordSource{}, &MemorySink{})
	assert.ErrorIs(t, err, context.Canceled)
}
