package merger

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
)

const (
	DefaultNumBars = 48
	// Angle of the last bar and angular pitch between bars (degrees).
	barThetaOffset = -88.22
	barThetaPitch  = 3.75
)

type BarGeometry struct {
	Z0      float64
	XOffset float64
	Theta   float64
	Radians float64
}

// VandleSetup is the per-bar geometry of the neutron wall. It is built once
// per run and never modified afterwards.
type VandleSetup struct {
	NumBars int
	bars    map[int]BarGeometry
}

func NewVandleSetup(numBars int) *VandleSetup {
	if numBars <= 0 {
		numBars = DefaultNumBars
	}
	return &VandleSetup{NumBars: numBars, bars: make(map[int]BarGeometry)}
}

// BarTheta returns the angle (degrees) of bar i in the detector plane.
func BarTheta(numBars, bar int) float64 {
	return barThetaOffset + barThetaPitch*float64(numBars-1-bar)
}

// SetBar stores the calibration of one bar and computes its angle.
func (s *VandleSetup) SetBar(bar int, z0, xOffset float64) error {
	if bar < 0 || bar >= s.NumBars {
		return fmt.Errorf("bar %d out of range [0, %d)", bar, s.NumBars)
	}
	theta := BarTheta(s.NumBars, bar)
	s.bars[bar] = BarGeometry{
		Z0:      z0,
		XOffset: xOffset,
		Theta:   theta,
		Radians: theta * math.Pi / 180.,
	}
	return nil
}

func (s *VandleSetup) Bar(bar int) (BarGeometry, bool) {
	if s == nil {
		return BarGeometry{}, false
	}
	geo, ok := s.bars[bar]
	return geo, ok
}

// Bars returns the calibrated bar numbers in ascending order.
func (s *VandleSetup) Bars() []int {
	bars := maps.Keys(s.bars)
	slices.Sort(bars)
	return bars
}

// ReadVandleSetup parses a calibration table with one "bar z0 xOffset" entry
// per line. Lines containing '#' and blank lines are ignored.
func ReadVandleSetup(r io.Reader, name string, numBars int) (*VandleSetup, error) {
	setup := NewVandleSetup(numBars)
	scanner := bufio.NewScanner(r)
	nline := 0
	for scanner.Scan() {
		nline++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Contains(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, &ErrParseLine{Filename: name, Line: nline, Err: fmt.Errorf("expected 3 columns, got %d", len(fields))}
		}
		bar, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, &ErrParseLine{Filename: name, Line: nline, Err: err}
		}
		z0, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, &ErrParseLine{Filename: name, Line: nline, Err: err}
		}
		xOffset, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, &ErrParseLine{Filename: name, Line: nline, Err: err}
		}
		if err := setup.SetBar(bar, z0, xOffset); err != nil {
			return nil, &ErrParseLine{Filename: name, Line: nline, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	return setup, nil
}

func LoadVandleSetup(filename string, numBars int) (*VandleSetup, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()

	setup, err := ReadVandleSetup(file, filename, numBars)
	if err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("Loaded %d bars from %s", len(setup.bars), filename), "setup")
	return setup, nil
}

// CloverGroups maps a clover channel to its addback group (the physical
// clover the crystal belongs to).
type CloverGroups map[int]int

const (
	DefaultCloverChannels   = 12
	DefaultCrystalsPerGroup = 4
)

// DefaultCloverGroups returns the channel/crystalsPerGroup mapping used by
// the standard array.
func DefaultCloverGroups() CloverGroups {
	groups := make(CloverGroups, DefaultCloverChannels)
	for ch := 0; ch < DefaultCloverChannels; ch++ {
		groups[ch] = ch / DefaultCrystalsPerGroup
	}
	return groups
}

// Group returns the addback group of a channel. A channel missing from the
// table forms a group of its own, keyed below every configured group so it
// cannot collide with them. Configured groups are never negative.
func (g CloverGroups) Group(channel int) int {
	if group, ok := g[channel]; ok {
		return group
	}
	return -1 - channel
}

func (g CloverGroups) Channels() []int {
	channels := maps.Keys(g)
	slices.Sort(channels)
	return channels
}

func checkCloverGroup(channel, group int) error {
	if group < 0 {
		return fmt.Errorf("negative addback group %d for clover channel %d", group, channel)
	}
	return nil
}

// ParseCloverGroups converts the JSON form of the table (string keys) into
// CloverGroups. An empty map yields the default mapping.
func ParseCloverGroups(raw map[string]int) (CloverGroups, error) {
	if len(raw) == 0 {
		return DefaultCloverGroups(), nil
	}
	groups := make(CloverGroups, len(raw))
	for key, group := range raw {
		ch, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid clover channel %q: %w", key, err)
		}
		if err := checkCloverGroup(ch, group); err != nil {
			return nil, err
		}
		groups[ch] = group
	}
	return groups, nil
}
