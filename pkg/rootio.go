package merger

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

var errReaderClosed = errors.New("tree reader closed")

type rowItem struct {
	entry int64
	row   Row
}

// TreeReader streams the entries of a ROOT tree as rows of float64 columns.
// Entries are decoded in a background goroutine; each Row is freshly
// allocated and may be retained by the caller.
type TreeReader struct {
	Filename string
	file     *riofs.File
	tree     rtree.Tree
	reader   *rtree.Reader
	rvars    []rtree.ReadVar
	fields   []string
	scalars  map[string]bool

	rows  chan rowItem
	done  chan struct{}
	errc  chan error
	err   error
	start sync.Once
	stop  sync.Once
}

func findReadVar(all []rtree.ReadVar, field string) (rtree.ReadVar, bool) {
	for _, rv := range all {
		if rv.Name == field {
			return rv, true
		}
	}
	for _, rv := range all {
		if rv.Leaf != "" && rv.Name+"."+rv.Leaf == field {
			return rv, true
		}
	}
	return rtree.ReadVar{}, false
}

// OpenTree opens treeName in filename and prepares to read the given
// fields (every leaf when fields is empty) for entries [beg, end). An end of
// -1 reads up to the last entry.
func OpenTree(filename, treeName string, fields []string, beg, end int64) (*TreeReader, error) {
	f, err := groot.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	obj, err := f.Get(treeName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error getting tree %q from %s: %w", treeName, filename, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("object %q in %s is a %T, not a tree", treeName, filename, obj)
	}

	all := rtree.NewReadVars(tree)
	rvars := all
	names := make([]string, 0, len(all))
	if len(fields) > 0 {
		rvars = make([]rtree.ReadVar, 0, len(fields))
		for _, field := range fields {
			rv, ok := findReadVar(all, field)
			if !ok {
				f.Close()
				return nil, fmt.Errorf("%w: %q in tree %s", ErrUnknownField, field, treeName)
			}
			rvars = append(rvars, rv)
			names = append(names, field)
		}
	} else {
		for _, rv := range rvars {
			names = append(names, rv.Name)
		}
	}

	nentries := tree.Entries()
	if beg < 0 {
		beg = 0
	}
	if beg > nentries {
		beg = nentries
	}
	if end < 0 || end > nentries {
		end = nentries
	}
	reader, err := rtree.NewReader(tree, rvars, rtree.WithRange(beg, end))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating reader for tree %s: %w", treeName, err)
	}

	scalars := make(map[string]bool, len(rvars))
	for i, rv := range rvars {
		if reflect.TypeOf(rv.Value).Elem().Kind() != reflect.Slice {
			scalars[names[i]] = true
		}
	}

	return &TreeReader{
		Filename: filename,
		file:     f,
		tree:     tree,
		reader:   reader,
		rvars:    rvars,
		fields:   names,
		scalars:  scalars,
		rows:     make(chan rowItem, 64),
		done:     make(chan struct{}),
		errc:     make(chan error, 1),
	}, nil
}

func (t *TreeReader) Entries() int64   { return t.tree.Entries() }
func (t *TreeReader) Fields() []string { return t.fields }

// Scalars names the fields read from single-valued branches.
func (t *TreeReader) Scalars() map[string]bool { return t.scalars }

func (t *TreeReader) run() {
	defer close(t.rows)
	err := t.reader.Read(func(ctx rtree.RCtx) error {
		row := make(Row, len(t.rvars))
		for i, rv := range t.rvars {
			row[t.fields[i]] = toFloats(rv.Value)
		}
		select {
		case t.rows <- rowItem{entry: ctx.Entry, row: row}:
			return nil
		case <-t.done:
			return errReaderClosed
		}
	})
	t.errc <- err
}

// Next returns the next entry and io.EOF after the last one.
func (t *TreeReader) Next() (int64, Row, error) {
	t.start.Do(func() { go t.run() })
	item, ok := <-t.rows
	if ok {
		return item.entry, item.row, nil
	}
	if t.errc != nil {
		t.err = <-t.errc
		t.errc = nil
	}
	if t.err != nil && !errors.Is(t.err, errReaderClosed) {
		return -1, nil, fmt.Errorf("error reading %s: %w", t.Filename, t.err)
	}
	return -1, nil, io.EOF
}

func (t *TreeReader) Close() error {
	var errs []error
	t.stop.Do(func() {
		close(t.done)
		t.start.Do(func() { close(t.rows) })
		for range t.rows {
		}
		if err := t.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing reader: %w", err))
		}
		if err := t.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	})
	return errors.Join(errs...)
}

func toFloats(v any) []float64 {
	switch v := v.(type) {
	case *float64:
		return []float64{*v}
	case *float32:
		return []float64{float64(*v)}
	case *int64:
		return []float64{float64(*v)}
	case *int32:
		return []float64{float64(*v)}
	case *int16:
		return []float64{float64(*v)}
	case *int8:
		return []float64{float64(*v)}
	case *uint64:
		return []float64{float64(*v)}
	case *uint32:
		return []float64{float64(*v)}
	case *uint16:
		return []float64{float64(*v)}
	case *uint8:
		return []float64{float64(*v)}
	case *bool:
		return []float64{boolToFloat(*v)}
	case *[]float64:
		out := make([]float64, len(*v))
		copy(out, *v)
		return out
	case *[]float32:
		return convertSlice(*v)
	case *[]int64:
		return convertSlice(*v)
	case *[]int32:
		return convertSlice(*v)
	case *[]int16:
		return convertSlice(*v)
	case *[]uint64:
		return convertSlice(*v)
	case *[]uint32:
		return convertSlice(*v)
	case *[]uint16:
		return convertSlice(*v)
	case *[]bool:
		out := make([]float64, len(*v))
		for i, b := range *v {
			out[i] = boolToFloat(b)
		}
		return out
	}
	return nil
}

type number interface {
	~float32 | ~float64 | ~int | ~int16 | ~int32 | ~int64 | ~uint16 | ~uint32 | ~uint64
}

func convertSlice[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = float64(x)
	}
	return out
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// TreeSchema names the branches of the merged input tree.
type TreeSchema struct {
	BetaTime           string `json:"beta_time"`
	BetaX              string `json:"beta_x"`
	BetaY              string `json:"beta_y"`
	BetaQdcHighGain    string `json:"beta_qdc_high_gain"`
	BetaQdcLowGain     string `json:"beta_qdc_low_gain"`
	BetaEnergyHighGain string `json:"beta_energy_high_gain"`
	BetaEnergyLowGain  string `json:"beta_energy_low_gain"`
	FitB1Energy        string `json:"fit_b1_energy"`
	FitB2Energy        string `json:"fit_b2_energy"`

	CloverEnergy    string `json:"clover_energy"`
	CloverRawEnergy string `json:"clover_raw_energy"`
	CloverTime      string `json:"clover_time"`
	CloverChannel   string `json:"clover_channel"`
	// Empty means every clover hit is high gain.
	CloverHighGain string `json:"clover_high_gain"`

	VandleTof      string `json:"vandle_tof"`
	VandleBar      string `json:"vandle_bar"`
	VandleQdc      string `json:"vandle_qdc"`
	VandleShortQdc string `json:"vandle_short_qdc"`
	VandleTDiff    string `json:"vandle_tdiff"`

	ImplantDE   string `json:"implant_de"`
	ImplantTOF  string `json:"implant_tof"`
	ImplantX    string `json:"implant_x"`
	ImplantY    string `json:"implant_y"`
	ImplantTime string `json:"implant_time"`
}

// DefaultTreeSchema returns the branch names of the mergedBeta tree.
func DefaultTreeSchema() TreeSchema {
	return TreeSchema{
		BetaTime:           "input_.high_gain_.time_",
		BetaX:              "input_.high_gain_.pos_x_",
		BetaY:              "input_.high_gain_.pos_y_",
		BetaQdcHighGain:    "input_.high_gain_.qdc_",
		BetaQdcLowGain:     "input_.low_gain_.qdc_",
		BetaEnergyHighGain: "input_.high_gain_.energy_",
		BetaEnergyLowGain:  "input_.low_gain_.energy_",
		FitB1Energy:        "input_.fit_b1_.energy_",
		FitB2Energy:        "input_.fit_b2_.energy_",
		CloverEnergy:       "clover_vec_.energy",
		CloverRawEnergy:    "clover_vec_.rawEnergy",
		CloverTime:         "clover_vec_.time",
		CloverChannel:      "clover_vec_.detNum",
		CloverHighGain:     "clover_vec_.cloverHigh",
		VandleTof:          "vandle_vec_.tof",
		VandleBar:          "vandle_vec_.barNum",
		VandleQdc:          "vandle_vec_.qdc",
		VandleShortQdc:     "vandle_vec_.sQdc",
		VandleTDiff:        "vandle_vec_.tDiff",
		ImplantDE:          "output_vec_.pid_pin0_",
		ImplantTOF:         "output_vec_.pid_tac1_",
		ImplantX:           "output_vec_.low_gain_.pos_x_",
		ImplantY:           "output_vec_.low_gain_.pos_y_",
		ImplantTime:        "output_vec_.low_gain_.time_",
	}
}

func (s TreeSchema) fields() []string {
	all := []string{
		s.BetaTime, s.BetaX, s.BetaY, s.BetaQdcHighGain, s.BetaQdcLowGain,
		s.BetaEnergyHighGain, s.BetaEnergyLowGain, s.FitB1Energy, s.FitB2Energy,
		s.CloverEnergy, s.CloverRawEnergy, s.CloverTime, s.CloverChannel, s.CloverHighGain,
		s.VandleTof, s.VandleBar, s.VandleQdc, s.VandleShortQdc, s.VandleTDiff,
		s.ImplantDE, s.ImplantTOF, s.ImplantX, s.ImplantY, s.ImplantTime,
	}
	fields := make([]string, 0, len(all))
	for _, f := range all {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// Decode builds an input event from a row read with this schema.
func (s TreeSchema) Decode(entry int64, row Row) InputEvent {
	ev := InputEvent{
		Entry: entry,
		Beta: BetaInfo{
			Time:           row.Scalar(s.BetaTime),
			X:              row.Scalar(s.BetaX),
			Y:              row.Scalar(s.BetaY),
			QdcHighGain:    row.Scalar(s.BetaQdcHighGain),
			QdcLowGain:     row.Scalar(s.BetaQdcLowGain),
			EnergyHighGain: row.Scalar(s.BetaEnergyHighGain),
			EnergyLowGain:  row.Scalar(s.BetaEnergyLowGain),
			FitB1Energy:    row.Scalar(s.FitB1Energy),
			FitB2Energy:    row.Scalar(s.FitB2Energy),
		},
	}

	energy := row[s.CloverEnergy]
	ev.Clovers = make([]CloverHit, len(energy))
	for i := range energy {
		ev.Clovers[i] = CloverHit{
			Energy:    energy[i],
			RawEnergy: row.At(s.CloverRawEnergy, i),
			Time:      row.At(s.CloverTime, i),
			Channel:   int(row.At(s.CloverChannel, i)),
			HighGain:  s.CloverHighGain == "" || row.At(s.CloverHighGain, i) == 1,
		}
	}

	tof := row[s.VandleTof]
	ev.Vandles = make([]VandleHit, len(tof))
	for i := range tof {
		ev.Vandles[i] = VandleHit{
			TOF:      tof[i],
			Bar:      int(row.At(s.VandleBar, i)),
			Qdc:      row.At(s.VandleQdc, i),
			ShortQdc: row.At(s.VandleShortQdc, i),
			TDiff:    row.At(s.VandleTDiff, i),
		}
	}

	de := row[s.ImplantDE]
	ev.Implants = make([]Implant, len(de))
	for i := range de {
		ev.Implants[i] = Implant{
			DE:   de[i],
			TOF:  row.At(s.ImplantTOF, i),
			X:    row.At(s.ImplantX, i),
			Y:    row.At(s.ImplantY, i),
			Time: row.At(s.ImplantTime, i),
		}
	}
	return ev
}

// RootEventSource reads InputEvents from a merged ROOT tree.
type RootEventSource struct {
	*TreeReader
	Schema TreeSchema
}

// OpenRootEventSource skips the first skip entries and reads at most
// maxEvents entries (all of them when maxEvents <= 0).
func OpenRootEventSource(filename, treeName string, schema TreeSchema, skip, maxEvents int) (*RootEventSource, error) {
	end := int64(-1)
	if maxEvents > 0 {
		end = int64(skip) + int64(maxEvents)
	}
	tr, err := OpenTree(filename, treeName, schema.fields(), int64(skip), end)
	if err != nil {
		return nil, err
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Number of entries in %s: %d", filename, tr.Entries()), "rootio")
	}
	return &RootEventSource{TreeReader: tr, Schema: schema}, nil
}

func (s *RootEventSource) Next() (InputEvent, error) {
	entry, row, err := s.TreeReader.Next()
	if err != nil {
		return InputEvent{}, err
	}
	return s.Schema.Decode(entry, row), nil
}

// outputBuffer holds the variables bound to the output tree branches.
type outputBuffer struct {
	entry int64

	dE, tof                        float64
	betaX, betaY, ionX, ionY       float64
	zed, amass                     int32
	betaQdcHigh, betaQdcLow        float64
	betaEnergyHigh, betaEnergyLow  float64
	fitEnergy, dT, dr              float64
	neutronScatter, invalidPath    int32
	cloverMult, cloverGGN          int32
	cloverE, cloverRawE, cloverT   []float64
	cloverCh                       []int32
	cloverGGE1, cloverGGT1         []float64
	cloverGGE2, cloverGGT2         []float64
	cloverABMult, cloverABGGN      int32
	cloverABE, cloverABT           []float64
	cloverABCh                     []int32
	cloverABGGE1, cloverABGGT1     []float64
	cloverABGGE2, cloverABGGT2     []float64
	vandleMult                     int32
	vandleMultNeutron, vandleMultB int32
	vandleTof, vandleQdc           []float64
	vandleSqdc, vandleTdiff        []float64
	vandleBar                      []int32
	vandleCorTof                   []float64
	vandleTestN                    int32
	vandleTofTest, vandleQdcTest   []float64
	vandleBarTest                  []int32
}

func (b *outputBuffer) writeVars() []rtree.WriteVar {
	return []rtree.WriteVar{
		{Name: "entry", Value: &b.entry},
		{Name: "dE", Value: &b.dE},
		{Name: "ToF", Value: &b.tof},
		{Name: "beta_x", Value: &b.betaX},
		{Name: "beta_y", Value: &b.betaY},
		{Name: "ion_x", Value: &b.ionX},
		{Name: "ion_y", Value: &b.ionY},
		{Name: "Zed", Value: &b.zed},
		{Name: "AMass", Value: &b.amass},
		{Name: "betaQdcHighGain", Value: &b.betaQdcHigh},
		{Name: "betaQdcLowGain", Value: &b.betaQdcLow},
		{Name: "betaEnergyHighGain", Value: &b.betaEnergyHigh},
		{Name: "betaEnergyLowGain", Value: &b.betaEnergyLow},
		{Name: "fit_energy", Value: &b.fitEnergy},
		{Name: "dT", Value: &b.dT},
		{Name: "dr", Value: &b.dr},
		{Name: "clover_mult", Value: &b.cloverMult},
		{Name: "clover_E", Value: &b.cloverE, Count: "clover_mult"},
		{Name: "clover_rawE", Value: &b.cloverRawE, Count: "clover_mult"},
		{Name: "clover_T", Value: &b.cloverT, Count: "clover_mult"},
		{Name: "clover_ch", Value: &b.cloverCh, Count: "clover_mult"},
		{Name: "cloverGG_n", Value: &b.cloverGGN},
		{Name: "cloverGG_E1", Value: &b.cloverGGE1, Count: "cloverGG_n"},
		{Name: "cloverGG_T1", Value: &b.cloverGGT1, Count: "cloverGG_n"},
		{Name: "cloverGG_E2", Value: &b.cloverGGE2, Count: "cloverGG_n"},
		{Name: "cloverGG_T2", Value: &b.cloverGGT2, Count: "cloverGG_n"},
		{Name: "cloverAB_mult", Value: &b.cloverABMult},
		{Name: "cloverAB_E", Value: &b.cloverABE, Count: "cloverAB_mult"},
		{Name: "cloverAB_T", Value: &b.cloverABT, Count: "cloverAB_mult"},
		{Name: "cloverAB_ch", Value: &b.cloverABCh, Count: "cloverAB_mult"},
		{Name: "cloverABGG_n", Value: &b.cloverABGGN},
		{Name: "cloverABGG_E1", Value: &b.cloverABGGE1, Count: "cloverABGG_n"},
		{Name: "cloverABGG_T1", Value: &b.cloverABGGT1, Count: "cloverABGG_n"},
		{Name: "cloverABGG_E2", Value: &b.cloverABGGE2, Count: "cloverABGG_n"},
		{Name: "cloverABGG_T2", Value: &b.cloverABGGT2, Count: "cloverABGG_n"},
		{Name: "neutron_scatter", Value: &b.neutronScatter},
		{Name: "vandle_mult", Value: &b.vandleMult},
		{Name: "vandle_mult_Neutron", Value: &b.vandleMultNeutron},
		{Name: "vandle_mult_BKG", Value: &b.vandleMultB},
		{Name: "vandle_invalid_path", Value: &b.invalidPath},
		{Name: "vandle_tof", Value: &b.vandleTof, Count: "vandle_mult"},
		{Name: "vandle_qdc", Value: &b.vandleQdc, Count: "vandle_mult"},
		{Name: "vandle_sqdc", Value: &b.vandleSqdc, Count: "vandle_mult"},
		{Name: "vandle_tdiff", Value: &b.vandleTdiff, Count: "vandle_mult"},
		{Name: "vandle_bar", Value: &b.vandleBar, Count: "vandle_mult"},
		{Name: "vandle_corTof", Value: &b.vandleCorTof, Count: "vandle_mult"},
		{Name: "vandle_test_n", Value: &b.vandleTestN},
		{Name: "vandle_tofTest", Value: &b.vandleTofTest, Count: "vandle_test_n"},
		{Name: "vandle_qdcTest", Value: &b.vandleQdcTest, Count: "vandle_test_n"},
		{Name: "vandle_barTest", Value: &b.vandleBarTest, Count: "vandle_test_n"},
	}
}

func intsToInt32(in []int) []int32 {
	out := make([]int32, len(in))
	for i, x := range in {
		out[i] = int32(x)
	}
	return out
}

func (b *outputBuffer) fill(rec *OutputRecord) {
	ev := rec.Event

	b.entry = ev.Entry
	b.dE = rec.DE
	b.tof = rec.ToF
	b.betaX = ev.Beta.X
	b.betaY = ev.Beta.Y
	b.ionX = rec.IonX
	b.ionY = rec.IonY
	b.zed = int32(rec.Zed)
	b.amass = int32(rec.AMass)
	b.betaQdcHigh = ev.Beta.QdcHighGain
	b.betaQdcLow = ev.Beta.QdcLowGain
	b.betaEnergyHigh = ev.Beta.EnergyHighGain
	b.betaEnergyLow = ev.Beta.EnergyLowGain
	b.fitEnergy = ev.Beta.FitEnergy()
	b.dT = rec.DT
	b.dr = rec.DR

	b.cloverMult = int32(len(ev.Clovers))
	b.cloverE = b.cloverE[:0]
	b.cloverRawE = b.cloverRawE[:0]
	b.cloverT = b.cloverT[:0]
	b.cloverCh = b.cloverCh[:0]
	for _, hit := range ev.Clovers {
		b.cloverE = append(b.cloverE, hit.Energy)
		b.cloverRawE = append(b.cloverRawE, hit.RawEnergy)
		b.cloverT = append(b.cloverT, hit.Time)
		b.cloverCh = append(b.cloverCh, int32(hit.Channel))
	}
	b.cloverGGN = int32(len(ev.CloverPairs))
	b.cloverGGE1, b.cloverGGT1, b.cloverGGE2, b.cloverGGT2 = splitPairs(ev.CloverPairs,
		b.cloverGGE1[:0], b.cloverGGT1[:0], b.cloverGGE2[:0], b.cloverGGT2[:0])

	b.cloverABMult = int32(len(ev.Addback))
	b.cloverABE = b.cloverABE[:0]
	b.cloverABT = b.cloverABT[:0]
	b.cloverABCh = b.cloverABCh[:0]
	for _, c := range ev.Addback {
		b.cloverABE = append(b.cloverABE, c.Energy)
		b.cloverABT = append(b.cloverABT, c.Time)
		b.cloverABCh = append(b.cloverABCh, int32(c.Channel))
	}
	b.cloverABGGN = int32(len(ev.AddbackPairs))
	b.cloverABGGE1, b.cloverABGGT1, b.cloverABGGE2, b.cloverABGGT2 = splitPairs(ev.AddbackPairs,
		b.cloverABGGE1[:0], b.cloverABGGT1[:0], b.cloverABGGE2[:0], b.cloverABGGT2[:0])

	b.neutronScatter = 0
	if ev.NeutronScatter {
		b.neutronScatter = 1
	}
	b.vandleMult = int32(len(ev.Vandles))
	b.vandleTof = b.vandleTof[:0]
	b.vandleQdc = b.vandleQdc[:0]
	b.vandleSqdc = b.vandleSqdc[:0]
	b.vandleTdiff = b.vandleTdiff[:0]
	b.vandleBar = b.vandleBar[:0]
	for _, hit := range ev.Vandles {
		b.vandleTof = append(b.vandleTof, hit.TOF)
		b.vandleQdc = append(b.vandleQdc, hit.Qdc)
		b.vandleSqdc = append(b.vandleSqdc, hit.ShortQdc)
		b.vandleTdiff = append(b.vandleTdiff, hit.TDiff)
		b.vandleBar = append(b.vandleBar, int32(hit.Bar))
	}
	b.vandleCorTof = append(b.vandleCorTof[:0], rec.VandleCorTof...)
	// Records without VANDLE reconstruction (isomer re-reduction) still
	// need one corrected value per hit.
	for len(b.vandleCorTof) < len(b.vandleTof) {
		b.vandleCorTof = append(b.vandleCorTof, InvalidValue)
	}
	b.vandleMultNeutron = int32(rec.VandleMultNeutron)
	b.vandleMultB = int32(rec.VandleMultBKG)
	b.invalidPath = int32(rec.VandleInvalidPath)
	b.vandleTestN = int32(len(rec.VandleTofTest))
	b.vandleTofTest = append(b.vandleTofTest[:0], rec.VandleTofTest...)
	b.vandleQdcTest = append(b.vandleQdcTest[:0], rec.VandleQdcTest...)
	b.vandleBarTest = append(b.vandleBarTest[:0], intsToInt32(rec.VandleBarTest)...)
}

func splitPairs(pairs []CoincidencePair, e1, t1, e2, t2 []float64) ([]float64, []float64, []float64, []float64) {
	for _, p := range pairs {
		e1 = append(e1, p.E1)
		t1 = append(t1, p.T1)
		e2 = append(e2, p.E2)
		t2 = append(t2, p.T2)
	}
	return e1, t1, e2, t2
}

// RootRecordSink writes output records to a flat ROOT tree.
type RootRecordSink struct {
	Filename string
	file     *riofs.File
	writer   rtree.Writer
	buf      *outputBuffer
	closed   bool
}

func CreateRootRecordSink(filename, treeName string) (*RootRecordSink, error) {
	f, err := groot.Create(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	buf := &outputBuffer{}
	w, err := rtree.NewWriter(f, treeName, buf.writeVars(), rtree.WithTitle(treeName))
	if err != nil {
		f.Close()
		return nil, &ErrCreateTable{TableName: treeName, Err: err}
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating ROOT file: %s", filename), "rootio")
	}
	return &RootRecordSink{Filename: filename, file: f, writer: w, buf: buf}, nil
}

func (s *RootRecordSink) WriteRecord(rec *OutputRecord) error {
	s.buf.fill(rec)
	if _, err := s.writer.Write(); err != nil {
		return fmt.Errorf("error writing tree entry: %w", err)
	}
	return nil
}

// Directory is where extra objects such as histograms are stored. It is only
// valid until Close.
func (s *RootRecordSink) Directory() riofs.Directory { return s.file }

func (s *RootRecordSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	if err := s.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing tree: %w", err))
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}
	return errors.Join(errs...)
}

// Chain reads the same tree from several files one after the other. Entry
// numbers continue across files.
type Chain struct {
	Filenames []string
	TreeName  string
	fields    []string
	current   *TreeReader
	next      int
	offset    int64
}

func OpenChain(filenames []string, treeName string, fields []string) (*Chain, error) {
	if len(filenames) == 0 {
		return nil, fmt.Errorf("empty chain for tree %s", treeName)
	}
	return &Chain{Filenames: filenames, TreeName: treeName, fields: fields}, nil
}

func (c *Chain) Next() (int64, Row, error) {
	for {
		if c.current == nil {
			if c.next >= len(c.Filenames) {
				return -1, nil, io.EOF
			}
			tr, err := OpenTree(c.Filenames[c.next], c.TreeName, c.fields, 0, -1)
			if err != nil {
				return -1, nil, err
			}
			c.current = tr
			c.next++
			if configuration.Verbosity > 1 {
				logger.Info(fmt.Sprintf("Chaining %s (%d entries)", tr.Filename, tr.Entries()), "rootio")
			}
		}
		entry, row, err := c.current.Next()
		if errors.Is(err, io.EOF) {
			c.offset += c.current.Entries()
			err = c.current.Close()
			c.current = nil
			if err != nil {
				return -1, nil, err
			}
			continue
		}
		if err != nil {
			return -1, nil, err
		}
		return c.offset + entry, row, nil
	}
}

// Scalars reports the single-valued fields of the file being read.
func (c *Chain) Scalars() map[string]bool {
	if c.current == nil {
		return nil
	}
	return c.current.Scalars()
}

func (c *Chain) Close() error {
	if c.current == nil {
		return nil
	}
	err := c.current.Close()
	c.current = nil
	return err
}
