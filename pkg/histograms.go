package merger

import (
	"errors"
	"fmt"

	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/root"
	"go-hep.org/x/hep/hbook"
)

// Histogram binnings. Energies in keV, times in ns.
const (
	corTofBins, corTofMin, corTofMax    = 600, -100., 500.
	pidTofBins, pidTofMin, pidTofMax    = 500, 0., 1000.
	pidDEBins, pidDEMin, pidDEMax       = 500, 0., 1000.
	gammaBins, gammaMin, gammaMax       = 4000, 0., 4000.
	gammaGGBins, gammaGGMin, gammaGGMax = 500, 0., 2000.
)

// HistogramSet accumulates the quick-look spectra of a run.
type HistogramSet struct {
	CorTof     *hbook.H1D
	PID        *hbook.H2D
	Addback    *hbook.H1D
	GammaGamma *hbook.H2D

	lastEvent *EventReconstruction
}

func named[T interface{ Annotation() hbook.Annotation }](h T, name, title string) T {
	h.Annotation()["name"] = name
	h.Annotation()["title"] = title
	return h
}

func NewHistogramSet() *HistogramSet {
	return &HistogramSet{
		CorTof: named(hbook.NewH1D(corTofBins, corTofMin, corTofMax),
			"ctof", "Corrected neutron TOF;TOF (ns);Counts"),
		PID: named(hbook.NewH2D(pidTofBins, pidTofMin, pidTofMax, pidDEBins, pidDEMin, pidDEMax),
			"pid", "Particle identification;ToF;dE"),
		Addback: named(hbook.NewH1D(gammaBins, gammaMin, gammaMax),
			"addback", "Addback gamma energy;E (keV);Counts"),
		GammaGamma: named(hbook.NewH2D(gammaGGBins, gammaGGMin, gammaGGMax, gammaGGBins, gammaGGMin, gammaGGMax),
			"addback_gg", "Addback gamma-gamma;E1 (keV);E2 (keV)"),
	}
}

// Fill adds one record. Gamma spectra are filled once per event, from the
// first of its records that reaches Fill. Records of one event must arrive
// consecutively.
func (h *HistogramSet) Fill(rec *OutputRecord) {
	h.PID.Fill(rec.ToF, rec.DE, 1)
	for _, ctof := range rec.VandleCorTof {
		if ctof != InvalidValue {
			h.CorTof.Fill(ctof, 1)
		}
	}
	if rec.Event == nil || rec.Event == h.lastEvent {
		return
	}
	h.lastEvent = rec.Event
	for _, c := range rec.Event.Addback {
		h.Addback.Fill(c.Energy, 1)
	}
	for _, p := range rec.Event.AddbackPairs {
		h.GammaGamma.Fill(p.E1, p.E2, 1)
	}
}

// Save writes the histograms into dir as ROOT TH1D/TH2D objects.
func (h *HistogramSet) Save(dir riofs.Directory) error {
	objects := []struct {
		name string
		obj  root.Object
	}{
		{"ctof", rhist.NewH1DFrom(h.CorTof)},
		{"pid", rhist.NewH2DFrom(h.PID)},
		{"addback", rhist.NewH1DFrom(h.Addback)},
		{"addback_gg", rhist.NewH2DFrom(h.GammaGamma)},
	}
	var errs []error
	for _, o := range objects {
		if err := dir.Put(o.name, o.obj); err != nil {
			errs = append(errs, fmt.Errorf("error saving histogram %s: %w", o.name, err))
		}
	}
	return errors.Join(errs...)
}

// HistogramSink fills a HistogramSet and saves it into Dir on Close. Dir
// must stay open until then, so the sink is closed before the file holding
// it.
type HistogramSink struct {
	Set *HistogramSet
	Dir riofs.Directory
}

func NewHistogramSink(dir riofs.Directory) *HistogramSink {
	return &HistogramSink{Set: NewHistogramSet(), Dir: dir}
}

func (s *HistogramSink) WriteRecord(rec *OutputRecord) error {
	s.Set.Fill(rec)
	return nil
}

func (s *HistogramSink) Close() error {
	if s.Dir == nil {
		return nil
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Saving histograms (%d PID entries)", s.Set.PID.Entries()), "histograms")
	}
	err := s.Set.Save(s.Dir)
	s.Dir = nil
	return err
}
