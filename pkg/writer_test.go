package merger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name   string
	closed *[]string
	err    error
	n      int
}

func (s *recordingSink) WriteRecord(*OutputRecord) error {
	s.n++
	return s.err
}

func (s *recordingSink) Close() error {
	*s.closed = append(*s.closed, s.name)
	return nil
}

func TestSplitSink(t *testing.T) {
	identified, unidentified := &MemorySink{}, &MemorySink{}
	sink := &SplitSink{Identified: identified, Unidentified: unidentified}

	records := []OutputRecord{
		{Event: &EventReconstruction{Entry: 0}, Zed: 11, AMass: 33},
		{Event: &EventReconstruction{Entry: 1}, Zed: UnsetPID, AMass: UnsetPID},
		{Event: &EventReconstruction{Entry: 2}, Zed: 10, AMass: UnsetPID},
	}
	for i := range records {
		require.NoError(t, sink.WriteRecord(&records[i]))
	}
	require.NoError(t, sink.Close())

	assert.Len(t, identified.Records, 1)
	assert.Len(t, unidentified.Records, 2)
	assert.True(t, identified.Closed)
	assert.True(t, unidentified.Closed)
}

func TestSplitSinkDropsUnidentified(t *testing.T) {
	identified := &MemorySink{}
	sink := &SplitSink{Identified: identified}

	rec := OutputRecord{Event: &EventReconstruction{}, Zed: UnsetPID, AMass: UnsetPID}
	require.NoError(t, sink.WriteRecord(&rec))
	require.NoError(t, sink.Close())
	assert.Empty(t, identified.Records)
}

func TestMultiSink(t *testing.T) {
	var closed []string
	first := &recordingSink{name: "first", closed: &closed}
	second := &recordingSink{name: "second", closed: &closed}
	sink := MultiSink{first, second}

	rec := OutputRecord{Event: &EventReconstruction{}}
	require.NoError(t, sink.WriteRecord(&rec))
	require.NoError(t, sink.Close())

	assert.Equal(t, 1, first.n)
	assert.Equal(t, 1, second.n)
	assert.Equal(t, []string{"second", "first"}, closed)

	first.err = errors.New("full")
	assert.EqualError(t, sink.WriteRecord(&rec), "full")
	assert.Equal(t, 1, second.n)
}

func TestHDF5Writer(t *testing.T) {
	m, err := NewMerger(testCalibration(t))
	require.NoError(t, err)

	w, err := NewWriter(filepath.Join(t.TempDir(), "run_reduced.h5"), 42)
	require.NoError(t, err)
	for _, entry := range []int64{0, 1, 2} {
		for _, rec := range m.ProcessEvent(testEvent(entry)) {
			require.NoError(t, w.WriteRecord(&rec))
		}
	}
	assert.Equal(t, 6, w.RecCounter)
	assert.True(t, w.FirstRecord)
	require.NoError(t, w.Close())
}
