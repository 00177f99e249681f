package merger

import (
	"fmt"
	"math"
)

// Options are the tunable constants of the reconstruction.
type Options struct {
	AddbackThreshold float64
	IdealFlightPath  float64
	CrossTalk        CrossTalkWindows
	Tof              TofWindows
	ShortQdc         ShortQdcMode
}

func DefaultOptions() Options {
	return Options{
		AddbackThreshold: GammaEnergyThreshold,
		IdealFlightPath:  DefaultIdealFlightPath,
		CrossTalk:        DefaultCrossTalkWindows(),
		Tof:              DefaultTofWindows(),
		ShortQdc:         ShortQdcPerHit,
	}
}

// Calibration bundles everything the reconstruction reads. It is loaded once
// per run and shared read-only by all workers.
type Calibration struct {
	Setup   *VandleSetup
	Groups  CloverGroups
	Gate    *PIDGate
	Options Options
}

type Merger struct {
	cal *Calibration
}

func NewMerger(cal *Calibration) (*Merger, error) {
	if cal == nil {
		return nil, fmt.Errorf("merger: nil calibration")
	}
	if cal.Setup == nil {
		return nil, fmt.Errorf("merger: missing VANDLE setup")
	}
	if cal.Groups == nil {
		cal.Groups = DefaultCloverGroups()
	}
	if cal.Options.ShortQdc == "" {
		cal.Options.ShortQdc = ShortQdcPerHit
	}
	return &Merger{cal: cal}, nil
}

func (m *Merger) Calibration() *Calibration { return m.cal }

// Reconstruct computes the implant independent part of an event.
func (m *Merger) Reconstruct(ev InputEvent) *EventReconstruction {
	opts := m.cal.Options
	clovers := CorrectCloverTimes(ev.Clovers, ev.Beta.Time)
	addback := Addback(clovers, m.cal.Groups, opts.AddbackThreshold)
	vandles, scatter := SuppressCrossTalk(ev.Vandles, opts.CrossTalk, opts.ShortQdc)

	return &EventReconstruction{
		Entry:          ev.Entry,
		Beta:           ev.Beta,
		Clovers:        clovers,
		CloverPairs:    CloverPairs(clovers),
		Addback:        addback,
		AddbackPairs:   AddbackPairs(addback),
		Vandles:        vandles,
		NeutronScatter: scatter,
	}
}

// ProcessEvent returns one record per implant of the event, all of them
// sharing the same reconstruction. An event without implants yields none.
func (m *Merger) ProcessEvent(ev InputEvent) []OutputRecord {
	if len(ev.Implants) == 0 {
		return nil
	}
	rec := m.Reconstruct(ev)
	opts := m.cal.Options

	records := make([]OutputRecord, 0, len(ev.Implants))
	for i, implant := range ev.Implants {
		zed, amass := m.cal.Gate.Classify(implant.TOF, implant.DE)
		vandle := CorrectVandle(rec.Vandles, m.cal.Setup, implant.X, implant.Y, opts.IdealFlightPath, opts.Tof)

		records = append(records, OutputRecord{
			Event:             rec,
			Implant:           i,
			DE:                implant.DE,
			ToF:               implant.TOF,
			Zed:               zed,
			AMass:             amass,
			IonX:              implant.X,
			IonY:              implant.Y,
			DT:                (ev.Beta.Time - implant.Time) / 1e6,
			DR:                math.Hypot(implant.X-ev.Beta.X, implant.Y-ev.Beta.Y),
			VandleCorTof:      vandle.CorTof,
			VandleMultNeutron: vandle.MultNeutron,
			VandleMultBKG:     vandle.MultBKG,
			VandleInvalidPath: vandle.InvalidPath,
			VandleTofTest:     vandle.TofTest,
			VandleQdcTest:     vandle.QdcTest,
			VandleBarTest:     vandle.BarTest,
		})
	}
	return records
}
