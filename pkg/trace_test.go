package merger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceRow(implantEnergy, rit float64) Row {
	s := DefaultTraceSchema()
	return Row{
		s.ImplantEnergy: {implantEnergy},
		s.RearB1Energy:  {rit},
		s.RearB2Energy:  {-1},
		s.IonX:          {1.5},
		s.IonY:          {-2.5},
		s.TsLow:         {10},
		s.TsHigh:        {20},
		s.Pin0Energy:    {100, 110},
		s.Pin1Energy:    {200, 210},
		s.Pin0Time:      {1, 2},
		s.Pin1Time:      {3, 4},
		s.Tac0:          {300, 310},
		s.Tac1:          {400, 410},
	}
}

type memoryTraceWriter struct {
	records []TraceRecord
	err     error
}

func (w *memoryTraceWriter) WriteTrace(rec TraceRecord) error {
	if w.err != nil {
		return w.err
	}
	w.records = append(w.records, rec)
	return nil
}

func TestSelectTraces(t *testing.T) {
	records := SelectTraces(5, traceRow(1000, -1), DefaultTraceSchema())
	require.Len(t, records, 2)

	assert.Equal(t, TraceRecord{
		Entry:      5,
		TsLow:      10,
		TsHigh:     20,
		DE:         110,
		ToF:        410,
		IonX:       1.5,
		IonY:       -2.5,
		Pin0Energy: 110,
		Pin0Time:   2,
		Pin1Energy: 210,
		Pin1Time:   4,
		Tac0:       310,
		Tac1:       410,
	}, records[1])
	assert.Equal(t, 100., records[0].DE)
	assert.Equal(t, 400., records[0].ToF)
}

func TestSelectTracesRejects(t *testing.T) {
	schema := DefaultTraceSchema()
	assert.Nil(t, SelectTraces(0, traceRow(0, -1), schema))
	assert.Nil(t, SelectTraces(0, traceRow(1000, 0), schema))
	assert.Nil(t, SelectTraces(0, traceRow(1000, 50), schema))

	row := traceRow(1000, -1)
	row[schema.RearB2Energy] = []float64{3}
	assert.Nil(t, SelectTraces(0, row, schema))
}

func TestExtractTraces(t *testing.T) {
	rows := &sliceRowSource{rows: []Row{
		traceRow(1000, -1),
		traceRow(0, -1),
		traceRow(500, 20),
		traceRow(800, -1),
	}}
	w := &memoryTraceWriter{}

	stats, err := ExtractTraces(context.Background(), rows, DefaultTraceSchema(), w)
	require.NoError(t, err)
	assert.Equal(t, TraceStats{Entries: 4, Accepted: 2, Records: 4}, stats)
	require.Len(t, w.records, 4)
	assert.Equal(t, int64(0), w.records[0].Entry)
	assert.Equal(t, int64(3), w.records[3].Entry)
}

func TestExtractTracesWriteError(t *testing.T) {
	rows := &sliceRowSource{rows: []Row{traceRow(1000, -1)}}
	w := &memoryTraceWriter{err: errors.New("write failed")}

	_, err := ExtractTraces(context.Background(), rows, DefaultTraceSchema(), w)
	assert.EqualError(t, err, "write failed")
}

func TestTraceSinkRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "run_pid.root")
	sink, err := CreateTraceSink(filename, "pid")
	require.NoError(t, err)
	for _, rec := range SelectTraces(9, traceRow(1000, -1), DefaultTraceSchema()) {
		require.NoError(t, sink.WriteTrace(rec))
	}
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	tr, err := OpenTree(filename, "pid", []string{"entry", "dE", "ToF"}, 0, -1)
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, int64(2), tr.Entries())

	_, row, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, 9., row.Scalar("entry"))
	assert.Equal(t, 100., row.Scalar("dE"))
	assert.Equal(t, 400., row.Scalar("ToF"))
}
