package merger

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ShortQdcMode selects which short-gate QDC the accepted VANDLE hits carry.
type ShortQdcMode string

const (
	// Every hit keeps its own short-gate QDC.
	ShortQdcPerHit ShortQdcMode = "per-hit"
	// Every accepted hit carries the short-gate QDC of the last raw hit of
	// the event, in input order. This reproduces trees produced by the
	// legacy sorting code.
	ShortQdcLastHit ShortQdcMode = "last-hit"
)

func ParseShortQdcMode(s string) (ShortQdcMode, error) {
	switch ShortQdcMode(s) {
	case "", ShortQdcPerHit:
		return ShortQdcPerHit, nil
	case ShortQdcLastHit:
		return ShortQdcLastHit, nil
	}
	return "", fmt.Errorf("unknown short qdc mode %q", s)
}

// CrossTalkWindows are the rejection windows of SuppressCrossTalk. A hit is
// cross-talk of an accepted one when |dtof| < NarrowWidth on any bar, or
// when |dtof| < WideWidth and |dbar| <= BarDistance.
type CrossTalkWindows struct {
	NarrowWidth float64 `json:"narrow_width"`
	WideWidth   float64 `json:"wide_width"`
	BarDistance int     `json:"bar_distance"`
}

func DefaultCrossTalkWindows() CrossTalkWindows {
	return CrossTalkWindows{
		NarrowWidth: 10,
		WideWidth:   500,
		BarDistance: 10,
	}
}

func (w CrossTalkWindows) collides(candidate, accepted VandleHit) bool {
	dtof := math.Abs(candidate.TOF - accepted.TOF)
	if dtof < w.NarrowWidth {
		return true
	}
	dbar := candidate.Bar - accepted.Bar
	if dbar < 0 {
		dbar = -dbar
	}
	return dtof < w.WideWidth && dbar <= w.BarDistance
}

// SuppressCrossTalk returns the hits that survive cross-talk rejection in
// ascending time of flight, and whether any hit was rejected. Hits are
// scanned in time order (input order among equal times) and each one is
// compared against the hits already accepted, so the earliest hit of a
// cluster is the one kept.
func SuppressCrossTalk(hits []VandleHit, windows CrossTalkWindows, mode ShortQdcMode) ([]VandleHit, bool) {
	if len(hits) == 0 {
		return nil, false
	}
	sorted := make([]VandleHit, len(hits))
	copy(sorted, hits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TOF < sorted[j].TOF
	})

	lastShortQdc := hits[len(hits)-1].ShortQdc
	accepted := make([]VandleHit, 0, len(sorted))
	rejected := false
	for _, candidate := range sorted {
		accept := true
		for _, hit := range accepted {
			if windows.collides(candidate, hit) {
				accept = false
				break
			}
		}
		if !accept {
			rejected = true
			continue
		}
		if mode == ShortQdcLastHit {
			candidate.ShortQdc = lastShortQdc
		}
		accepted = append(accepted, candidate)
	}
	return accepted, rejected
}

// VandleCorrection holds the implant dependent part of the neutron
// reconstruction.
type VandleCorrection struct {
	CorTof      []float64
	MultNeutron int
	MultBKG     int
	InvalidPath int
	TofTest     []float64
	QdcTest     []float64
	BarTest     []int
}

// CorrectVandle scales every accepted hit to the ideal flight path seen from
// the implant position and sorts the results into the time windows.
// Hits with a rejected geometry are stored as InvalidValue and counted in
// InvalidPath.
func CorrectVandle(hits []VandleHit, setup *VandleSetup, ionX, ionY, idealFlightPath float64, windows TofWindows) VandleCorrection {
	corr := VandleCorrection{
		CorTof:  make([]float64, 0, len(hits)),
		TofTest: make([]float64, 0, len(hits)),
		QdcTest: make([]float64, 0, len(hits)),
		BarTest: make([]int, 0, len(hits)),
	}
	for _, hit := range hits {
		fp := GetFlightPath(setup, hit.Bar, hit.Qdc, hit.TDiff, ionX, ionY)
		ctof, err := GetCorrectedTOF(hit.TOF, fp, idealFlightPath)
		if err != nil {
			if !errors.Is(err, ErrInvalidFlightPath) {
				logger.Error(fmt.Errorf("vandle bar %d: %w", hit.Bar, err).Error())
			}
			corr.CorTof = append(corr.CorTof, InvalidValue)
			corr.InvalidPath++
			continue
		}
		corr.CorTof = append(corr.CorTof, ctof)

		window, value := windows.Classify(ctof)
		switch window {
		case NeutronWindow:
			corr.MultNeutron++
		case BackgroundWindow:
			corr.MultBKG++
		default:
			continue
		}
		corr.TofTest = append(corr.TofTest, value)
		corr.QdcTest = append(corr.QdcTest, hit.Qdc)
		corr.BarTest = append(corr.BarTest, hit.Bar)
	}
	return corr
}
