package merger

import (
	"fmt"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"
)

// PlotSpectrum saves h as an image; the format follows the file extension.
func PlotSpectrum(h *hbook.H1D, title, xlabel, filename string) error {
	p := hplot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Counts"

	hh := hplot.NewH1D(h)
	hh.Infos.Style = hplot.HInfoSummary
	p.Add(hh)
	p.Add(hplot.NewGrid())

	if err := p.Save(20*vg.Centimeter, 12*vg.Centimeter, filename); err != nil {
		return fmt.Errorf("error saving plot %s: %w", filename, err)
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Plot saved to %s", filename), "plots")
	}
	return nil
}

// PlotAddback saves the addback gamma spectrum of the set.
func (h *HistogramSet) PlotAddback(filename string) error {
	return PlotSpectrum(h.Addback, "Addback gamma energy", "E (keV)", filename)
}
