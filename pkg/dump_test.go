package merger

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceRowSource struct {
	rows    []Row
	scalars map[string]bool
	next    int
}

func (s *sliceRowSource) Scalars() map[string]bool { return s.scalars }

func (s *sliceRowSource) Next() (int64, Row, error) {
	if s.next >= len(s.rows) {
		return -1, nil, io.EOF
	}
	s.next++
	return int64(s.next - 1), s.rows[s.next-1], nil
}

func TestRowAccessors(t *testing.T) {
	row := Row{"a": {1}, "v": {1, 2, 3}, "empty": {}}
	assert.Equal(t, 1., row.Scalar("a"))
	assert.Equal(t, UnsetValue, row.Scalar("empty"))
	assert.Equal(t, UnsetValue, row.Scalar("missing"))
	assert.Equal(t, 3., row.At("v", 2))
	assert.Equal(t, UnsetValue, row.At("v", 3))
	assert.Equal(t, UnsetValue, row.At("v", -1))
}

func TestParseCut(t *testing.T) {
	cut, err := ParseCut("Zed == 11 && dT * 1e6 < 100")
	require.NoError(t, err)
	assert.Equal(t, []string{"Zed", "dT"}, cut.Fields())
	assert.Equal(t, "Zed == 11 && dT * 1e6 < 100", cut.String())

	pass, err := cut.Pass(Row{"Zed": {11}, "dT": {5e-5}})
	require.NoError(t, err)
	assert.True(t, pass)

	pass, err = cut.Pass(Row{"Zed": {11}, "dT": {2e-4}})
	require.NoError(t, err)
	assert.False(t, pass)

	pass, err = cut.Pass(Row{"Zed": {12}, "dT": {5e-5}})
	require.NoError(t, err)
	assert.False(t, pass)
}

func TestParseCutOperators(t *testing.T) {
	cases := []struct {
		expr  string
		value float64
		pass  bool
	}{
		{"x <= 3", 3, true},
		{"x < 3", 3, false},
		{"x >= 3", 3, true},
		{"x > 3", 3, false},
		{"x != 3", 3, false},
		{"x == 3", 3, true},
		{"x > -1e3", -10, true},
	}
	for _, c := range cases {
		cut, err := ParseCut(c.expr)
		require.NoError(t, err, c.expr)
		pass, err := cut.Pass(Row{"x": {c.value}})
		require.NoError(t, err)
		assert.Equal(t, c.pass, pass, c.expr)
	}
}

func TestParseCutAlwaysTrue(t *testing.T) {
	for _, expr := range []string{"", "  ", "1 == 1"} {
		cut, err := ParseCut(expr)
		require.NoError(t, err, expr)
		assert.Empty(t, cut.Fields())
		pass, err := cut.Pass(Row{})
		require.NoError(t, err)
		assert.True(t, pass)
	}
}

func TestParseCutErrors(t *testing.T) {
	for _, expr := range []string{"1 == 2", "Zed 11", "Zed == abc", "a+b < 3", "x < 1 &&", "dT * e < 1", "(x) > 1"} {
		_, err := ParseCut(expr)
		assert.Error(t, err, expr)
	}
}

func TestCutUnknownField(t *testing.T) {
	cut, err := ParseCut("Zed == 11")
	require.NoError(t, err)
	_, err = cut.Pass(Row{"AMass": {33}})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestCutVector(t *testing.T) {
	cut, err := ParseCut("clover_E > 100 && clover_E < 200 && dr < 2")
	require.NoError(t, err)
	cut = cut.WithScalars(map[string]bool{"dr": true})
	row := Row{"clover_E": {50, 150, 250}, "dr": {1}}

	for i, expected := range []bool{false, true, false, false} {
		pass, err := cut.PassAt(row, i)
		require.NoError(t, err)
		assert.Equal(t, expected, pass, "index %d", i)
	}
	pass, err := cut.Pass(row)
	require.NoError(t, err)
	assert.True(t, pass)

	row["dr"] = []float64{3}
	pass, err = cut.Pass(row)
	require.NoError(t, err)
	assert.False(t, pass)
}

func TestCutShortestVector(t *testing.T) {
	cut, err := ParseCut("clover_T < 500 && cloverAB_E > 172")
	require.NoError(t, err)

	// Only the first instance exists in both vectors.
	row := Row{"clover_T": {600, 600, 100}, "cloverAB_E": {175}}
	pass, err := cut.Pass(row)
	require.NoError(t, err)
	assert.False(t, pass)

	row["cloverAB_E"] = []float64{175, 175, 175}
	pass, err = cut.Pass(row)
	require.NoError(t, err)
	assert.True(t, pass)

	row["cloverAB_E"] = []float64{}
	pass, err = cut.Pass(row)
	require.NoError(t, err)
	assert.False(t, pass)

	// A scalar branch is broadcast to every instance.
	pass, err = cut.WithScalars(map[string]bool{"cloverAB_E": true}).Pass(Row{"clover_T": {600, 100}, "cloverAB_E": {175}})
	require.NoError(t, err)
	assert.True(t, pass)

	assert.Nil(t, (*Cut)(nil).WithScalars(nil))
}

func TestDumpFieldScalar(t *testing.T) {
	rows := &sliceRowSource{rows: []Row{
		{"dE": {10}, "Zed": {11}, "clover_E": {300, 260}},
		{"dE": {20}, "Zed": {12}, "clover_E": {300}},
		{"dE": {30.5}, "Zed": {11}, "clover_E": {}},
	}, scalars: map[string]bool{"dE": true, "Zed": true}}
	cut, err := ParseCut("Zed == 11")
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := DumpField(context.Background(), rows, "dE", "keV", cut, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "dE(keV)\n10\n30.5\n", buf.String())
}

func TestDumpFieldScalarWithVectorCut(t *testing.T) {
	rows := &sliceRowSource{rows: []Row{
		{"dE": {10}, "clover_E": {200, 260}},
		{"dE": {20}, "clover_E": {100}},
		{"dE": {30}, "clover_E": {}},
	}, scalars: map[string]bool{"dE": true}}
	cut, err := ParseCut("clover_E > 250")
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := DumpField(context.Background(), rows, "dE", "keV", cut, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "dE(keV)\n10\n", buf.String())
}

func TestDumpFieldVector(t *testing.T) {
	rows := &sliceRowSource{rows: []Row{
		{"clover_E": {100, 200, 300}, "clover_T": {5, 50, 500}},
		{"clover_E": {400}, "clover_T": {500}},
		{"clover_E": {}, "clover_T": {}},
	}}
	cut, err := ParseCut(GammaCut(0, 100, 0, 10000, false))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := DumpField(context.Background(), rows, "clover_E", "keV", cut, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "clover_E(keV)\n100\n200\n", buf.String())
}

func TestDumpFieldVectorShortestLength(t *testing.T) {
	rows := &sliceRowSource{rows: []Row{
		{"clover_E": {100, 200, 300}, "clover_T": {5}, "dr": {0.1}},
	}, scalars: map[string]bool{"dr": true}}
	cut, err := ParseCut("clover_T < 100 && dr < 1")
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := DumpField(context.Background(), rows, "clover_E", "keV", cut, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "clover_E(keV)\n100\n", buf.String())
}

func TestDumpFieldUnknown(t *testing.T) {
	rows := &sliceRowSource{rows: []Row{{"dE": {1}}}}
	_, err := DumpField(context.Background(), rows, "ToF", "ns", nil, io.Discard)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestDumpFileZstd(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "dE.txt.zst")
	content := "dE(keV)\n10\n30.5\n"

	w, err := CreateDumpFile(filename)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])

	r, err := OpenDumpFile(filename)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, content, string(data))
}

func TestDumpFilePlain(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "dE.txt")
	w, err := CreateDumpFile(filename)
	require.NoError(t, err)
	_, err = io.WriteString(w, "x\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(raw))
}

func TestCutBuilders(t *testing.T) {
	assert.Equal(t,
		"cloverAB_T > 0 && cloverAB_T < 100 && cloverAB_E > 500 && cloverAB_E < 600",
		GammaCut(0, 100, 500, 600, true))
	assert.Equal(t,
		"dT * 1e6 > 10 && dT * 1e6 < 100 && dr < 2 && betaEnergyLowGain > 0 && betaEnergyLowGain < 600",
		BetaCut(10, 90, 2, DefaultBetaEnergyLow, DefaultBetaEnergyHigh))
	assert.Equal(t, "a > 1 && b < 2", JoinCuts("", " a > 1 ", "b < 2"))

	cut, err := ParseCut(JoinCuts(BetaCut(10, 90, 2, 50, 400), "Zed == 11"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dT", "dr", "betaEnergyLowGain", "Zed"}, cut.Fields())

	row := Row{"dT": {5e-5}, "dr": {1}, "betaEnergyLowGain": {450}, "Zed": {11}}
	pass, err := cut.Pass(row)
	require.NoError(t, err)
	assert.False(t, pass)
	row["betaEnergyLowGain"] = []float64{300}
	pass, err = cut.Pass(row)
	require.NoError(t, err)
	assert.True(t, pass)
}

func TestOutputRecordRow(t *testing.T) {
	m, err := NewMerger(testCalibration(t))
	require.NoError(t, err)
	rec := m.ProcessEvent(testEvent(4))[0]

	row := rec.Row()
	assert.Equal(t, 4., row.Scalar("entry"))
	assert.Equal(t, 11., row.Scalar("Zed"))
	assert.Equal(t, 2., row.Scalar("clover_mult"))
	assert.Len(t, row["clover_E"], 2)
	assert.Len(t, row["cloverGG_E1"], 2)
	assert.Equal(t, []float64{800}, row["cloverAB_E"])
	assert.Equal(t, 1., row.Scalar("vandle_mult"))
	assert.Equal(t, []float64{47}, row["vandle_bar"])
	assert.Len(t, row["vandle_corTof"], 1)
}
