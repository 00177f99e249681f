package merger

import (
	"fmt"
	"math"
)

const (
	// Bars whose reconstructed depth exceeds this value (cm) are rejected.
	MaxBarDepth = 60.
	// Flight path of the ideal VANDLE geometry (cm).
	DefaultIdealFlightPath = 105.
	// Below this energy (keV) no walk correction is applied and hits are
	// excluded from addback.
	GammaEnergyThreshold = 10.
)

// Empirical beta-gamma walk curve parameters.
const (
	walkPar0 = 2591.7
	walkPar1 = 0.
	walkPar2 = -0.544195
	walkPar3 = 20.0743
)

func GetBetaGammaWalk(gammaE float64) float64 {
	if gammaE < GammaEnergyThreshold {
		return 0
	}
	return walkPar0*math.Pow(gammaE-walkPar1, walkPar2) + walkPar3
}

// GetSpeedOfLight returns the effective light propagation speed in a bar
// (cm/ns) as a function of the deposited charge.
func GetSpeedOfLight(qdc float64) float64 {
	return -5.94268e+06*math.Pow(qdc+454.261, -2.27498) + 13.4352
}

// GetFlightPath returns the distance (cm) between the implant position and
// the interaction point in the bar. A return value of 0 marks a rejected
// geometry (unknown bar or depth outside the bar) and is never a valid
// distance.
func GetFlightPath(setup *VandleSetup, bar int, qdc, tdiff, ionX, ionY float64) float64 {
	geo, ok := setup.Bar(bar)
	if !ok {
		return 0
	}
	vandleX := geo.Z0 * math.Cos(geo.Radians)
	vandleY := geo.Z0 * math.Sin(geo.Radians)
	vandleZ := tdiff*GetSpeedOfLight(qdc)*0.5 + geo.XOffset
	if math.Abs(vandleZ) > MaxBarDepth {
		return 0
	}
	ionZ := 0.
	return math.Sqrt(math.Pow(vandleX-ionX, 2) + math.Pow(vandleY-ionY, 2) + math.Pow(vandleZ-ionZ, 2))
}

// GetCorrectedTOF scales a time of flight to the ideal flight path.
func GetCorrectedTOF(tof, flightPath, idealFlightPath float64) (float64, error) {
	if flightPath <= 0 || math.IsNaN(flightPath) || math.IsInf(flightPath, 0) {
		return InvalidValue, fmt.Errorf("%w: %g", ErrInvalidFlightPath, flightPath)
	}
	return tof / flightPath * idealFlightPath, nil
}

type TofWindow int

const (
	OutsideWindow TofWindow = iota
	NeutronWindow
	BackgroundWindow
)

func (w TofWindow) String() string {
	switch w {
	case NeutronWindow:
		return "neutron"
	case BackgroundWindow:
		return "background"
	default:
		return "outside"
	}
}

// TofWindows holds the corrected time of flight gates (ns). Both windows
// have exclusive bounds.
type TofWindows struct {
	NeutronLow     float64 `json:"neutron_low"`
	NeutronHigh    float64 `json:"neutron_high"`
	BackgroundLow  float64 `json:"background_low"`
	BackgroundHigh float64 `json:"background_high"`
	// Shift subtracted from background values before they are stored
	// next to the neutron ones.
	BackgroundShift float64 `json:"background_shift"`
}

func DefaultTofWindows() TofWindows {
	return TofWindows{
		NeutronLow:      25,
		NeutronHigh:     250,
		BackgroundLow:   250,
		BackgroundHigh:  475,
		BackgroundShift: 225,
	}
}

// Classify returns the window of a corrected time of flight and the value
// to store for it.
func (w TofWindows) Classify(ctof float64) (TofWindow, float64) {
	if ctof > w.NeutronLow && ctof < w.NeutronHigh {
		return NeutronWindow, ctof
	}
	if ctof > w.BackgroundLow && ctof < w.BackgroundHigh {
		return BackgroundWindow, ctof - w.BackgroundShift
	}
	return OutsideWindow, ctof
}
