package merger

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(name string, x0, y0, x1, y1 float64) *PIDCut {
	return &PIDCut{
		Name: name,
		X:    []float64{x0, x1, x1, x0},
		Y:    []float64{y0, y0, y1, y1},
	}
}

func TestPIDCutIsInside(t *testing.T) {
	cut := box("Na33CUT", 0, 0, 10, 10)
	assert.True(t, cut.IsInside(5, 5))
	assert.True(t, cut.IsInside(0.1, 9.9))
	assert.False(t, cut.IsInside(15, 5))
	assert.False(t, cut.IsInside(5, -1))

	triangle := &PIDCut{X: []float64{0, 10, 0}, Y: []float64{0, 0, 10}}
	assert.True(t, triangle.IsInside(2, 2))
	assert.False(t, triangle.IsInside(8, 8))

	line := &PIDCut{X: []float64{0, 10}, Y: []float64{0, 10}}
	assert.False(t, line.IsInside(5, 5))
}

func TestReadPIDCut(t *testing.T) {
	text := "Ne30CUT\n3\n0 0\n10 0\n0 10\n"
	cut, err := ReadPIDCut(strings.NewReader(text), "Ne30CUT.txt")
	require.NoError(t, err)
	assert.Equal(t, "Ne30CUT", cut.Name)
	assert.Equal(t, 3, cut.Len())
	assert.Equal(t, []float64{0, 10, 0}, cut.X)
	assert.Equal(t, []float64{0, 0, 10}, cut.Y)

	for _, bad := range []string{"", "Ne30CUT\nx\n", "Ne30CUT\n2\n0 0\n", "Ne30CUT\n1\n0\n"} {
		_, err := ReadPIDCut(strings.NewReader(bad), "bad.txt")
		assert.Error(t, err, "input %q", bad)
	}
}

func TestMakePIDCut(t *testing.T) {
	dir := t.TempDir()
	cut := box("Ne30CUT", 100.25, 200, 150, 260.5)

	filename, err := MakePIDCut(dir, cut)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "CUT", "Ne30CUT.txt"), filename)

	loaded, err := LoadPIDCut(filename)
	require.NoError(t, err)
	assert.Equal(t, cut, loaded)
}

func TestParseIsotope(t *testing.T) {
	cases := []struct {
		label string
		zed   int
		amass int
	}{
		{"Ne30", 10, 30},
		{"F29CUT", 9, 29},
		{"Na33CUT", 11, 33},
		{"Mg37CUT", 12, 37},
	}
	for _, c := range cases {
		zed, amass, err := ParseIsotope(c.label)
		require.NoError(t, err, c.label)
		assert.Equal(t, c.zed, zed, c.label)
		assert.Equal(t, c.amass, amass, c.label)
	}

	for _, bad := range []string{"cut", "Xx12", "Ne"} {
		_, _, err := ParseIsotope(bad)
		assert.Error(t, err, bad)
	}
}

func TestPIDGateClassify(t *testing.T) {
	gate, err := NewPIDGate(
		box("Na33CUT", 0, 0, 10, 10),
		box("Ne30CUT", 5, 5, 20, 20),
	)
	require.NoError(t, err)

	zed, amass := gate.Classify(7, 7)
	assert.Equal(t, 11, zed)
	assert.Equal(t, 33, amass)

	zed, amass = gate.Classify(15, 15)
	assert.Equal(t, 10, zed)
	assert.Equal(t, 30, amass)

	zed, amass = gate.Classify(50, 50)
	assert.Equal(t, UnsetPID, zed)
	assert.Equal(t, UnsetPID, amass)

	var none *PIDGate
	zed, amass = none.Classify(7, 7)
	assert.Equal(t, UnsetPID, zed)
	assert.Equal(t, UnsetPID, amass)

	_, err = NewPIDGate(box("junk", 0, 0, 1, 1))
	assert.Error(t, err)
}

func TestLoadPIDGate(t *testing.T) {
	dir := t.TempDir()
	for _, cut := range []*PIDCut{box("Na33CUT", 0, 0, 10, 10), box("Ne30CUT", 5, 5, 20, 20)} {
		_, err := MakePIDCut(dir, cut)
		require.NoError(t, err)
	}

	gate, err := LoadPIDGate(filepath.Join(dir, "CUT"), []string{"Ne30CUT", "Na33CUT"})
	require.NoError(t, err)
	require.Len(t, gate.Cuts, 2)
	assert.Equal(t, 10, gate.Cuts[0].Zed)

	zed, _ := gate.Classify(7, 7)
	assert.Equal(t, 10, zed)

	_, err = LoadPIDGate(filepath.Join(dir, "CUT"), []string{"Mg36CUT"})
	assert.Error(t, err)
}

func TestPIDGateDefaultOrder(t *testing.T) {
	dir := t.TempDir()
	for i, name := range DefaultPIDCutNames {
		x := float64(i * 100)
		_, err := MakePIDCut(dir, box(name, x, 0, x+50, 50))
		require.NoError(t, err)
	}
	gate, err := LoadPIDGate(filepath.Join(dir, "CUT"), DefaultPIDCutNames)
	require.NoError(t, err)

	zed, amass := gate.Classify(25, 25)
	assert.Equal(t, 9, zed)
	assert.Equal(t, 29, amass)

	zed, amass = gate.Classify(75, 25)
	assert.Equal(t, UnsetPID, zed)
	assert.Equal(t, UnsetPID, amass)
}
