package merger

import (
	"errors"
	"fmt"
	"sync"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// Writer stores output records as HDF5 tables: one row per record in
// Run/events and one row per hit, cluster or pair in the detector groups,
// linked back through the record number.
type Writer struct {
	File         *hdf5.File
	Filename     string
	RunNumber    int
	FirstRecord  bool
	RunGroup     *hdf5.Group
	CloverGroup  *hdf5.Group
	VandleGroup  *hdf5.Group
	EventTable   *table
	RunInfoTable *table
	CloverTable  *table
	AddbackTable *table
	PairsTable   *table
	VandleTable  *table
	TestTable    *table
	RecCounter   int
}

func NewWriter(filename string, runNumber int) (*Writer, error) {
	level := configuration.CompressionLevel
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating HDF5 file: %s", filename), "hdf5")
	}

	writer := &Writer{Filename: filename, RunNumber: runNumber}
	var err error
	if writer.File, err = openFile(filename); err != nil {
		return nil, err
	}
	fail := func(err error) (*Writer, error) {
		writer.Close()
		return nil, err
	}
	if writer.RunGroup, err = createGroup(writer.File, "Run"); err != nil {
		return fail(err)
	}
	if writer.CloverGroup, err = createGroup(writer.File, "Clover"); err != nil {
		return fail(err)
	}
	if writer.VandleGroup, err = createGroup(writer.File, "Vandle"); err != nil {
		return fail(err)
	}
	if writer.EventTable, err = createTable(writer.RunGroup, "events", eventHDF5{}, level); err != nil {
		return fail(err)
	}
	if writer.RunInfoTable, err = createTable(writer.RunGroup, "runInfo", runInfoHDF5{}, level); err != nil {
		return fail(err)
	}
	if writer.CloverTable, err = createTable(writer.CloverGroup, "hits", cloverHitHDF5{}, level); err != nil {
		return fail(err)
	}
	if writer.AddbackTable, err = createTable(writer.CloverGroup, "addback", addbackHDF5{}, level); err != nil {
		return fail(err)
	}
	if writer.PairsTable, err = createTable(writer.CloverGroup, "addbackPairs", pairHDF5{}, level); err != nil {
		return fail(err)
	}
	if writer.VandleTable, err = createTable(writer.VandleGroup, "hits", vandleHitHDF5{}, level); err != nil {
		return fail(err)
	}
	if writer.TestTable, err = createTable(writer.VandleGroup, "test", vandleTestHDF5{}, level); err != nil {
		return fail(err)
	}
	return writer, nil
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (w *Writer) WriteRecord(rec *OutputRecord) error {
	if !w.FirstRecord {
		if err := writeEntryToTable(w.RunInfoTable, runInfoHDF5{run_number: int32(w.RunNumber)}); err != nil {
			return err
		}
		w.FirstRecord = true
	}

	ev := rec.Event
	recNumber := int32(w.RecCounter)
	entry := eventHDF5{
		record:         recNumber,
		entry:          ev.Entry,
		implant:        int32(rec.Implant),
		dE:             rec.DE,
		tof:            rec.ToF,
		zed:            int32(rec.Zed),
		amass:          int32(rec.AMass),
		ionX:           rec.IonX,
		ionY:           rec.IonY,
		betaX:          ev.Beta.X,
		betaY:          ev.Beta.Y,
		betaEnergyLow:  ev.Beta.EnergyLowGain,
		betaEnergyHigh: ev.Beta.EnergyHighGain,
		fitEnergy:      ev.Beta.FitEnergy(),
		dT:             rec.DT,
		dr:             rec.DR,
		cloverMult:     int32(len(ev.Clovers)),
		addbackMult:    int32(len(ev.Addback)),
		vandleMult:     int32(len(ev.Vandles)),
		multNeutron:    int32(rec.VandleMultNeutron),
		multBKG:        int32(rec.VandleMultBKG),
		invalidPath:    int32(rec.VandleInvalidPath),
		neutronScatter: boolToInt32(ev.NeutronScatter),
	}
	if err := writeEntryToTable(w.EventTable, entry); err != nil {
		return err
	}

	// The arrays MUST be allocated with their final length, HDF5 reads
	// them through the slice header.
	clovers := make([]cloverHitHDF5, len(ev.Clovers))
	for i, hit := range ev.Clovers {
		clovers[i] = cloverHitHDF5{
			record:    recNumber,
			channel:   int32(hit.Channel),
			energy:    hit.Energy,
			rawEnergy: hit.RawEnergy,
			time:      hit.Time,
		}
	}
	addback := make([]addbackHDF5, len(ev.Addback))
	for i, c := range ev.Addback {
		addback[i] = addbackHDF5{record: recNumber, channel: int32(c.Channel), energy: c.Energy, time: c.Time}
	}
	pairs := make([]pairHDF5, len(ev.AddbackPairs))
	for i, p := range ev.AddbackPairs {
		pairs[i] = pairHDF5{record: recNumber, e1: p.E1, t1: p.T1, e2: p.E2, t2: p.T2}
	}
	vandles := make([]vandleHitHDF5, len(ev.Vandles))
	for i, hit := range ev.Vandles {
		corTof := InvalidValue
		if i < len(rec.VandleCorTof) {
			corTof = rec.VandleCorTof[i]
		}
		vandles[i] = vandleHitHDF5{
			record:   recNumber,
			bar:      int32(hit.Bar),
			tof:      hit.TOF,
			corTof:   corTof,
			qdc:      hit.Qdc,
			shortQdc: hit.ShortQdc,
			tdiff:    hit.TDiff,
		}
	}
	tests := make([]vandleTestHDF5, len(rec.VandleTofTest))
	for i := range rec.VandleTofTest {
		tests[i] = vandleTestHDF5{
			record: recNumber,
			bar:    int32(rec.VandleBarTest[i]),
			tof:    rec.VandleTofTest[i],
			qdc:    rec.VandleQdcTest[i],
		}
	}

	if err := writeArrayToTable(w.CloverTable, &clovers); err != nil {
		return err
	}
	if err := writeArrayToTable(w.AddbackTable, &addback); err != nil {
		return err
	}
	if err := writeArrayToTable(w.PairsTable, &pairs); err != nil {
		return err
	}
	if err := writeArrayToTable(w.VandleTable, &vandles); err != nil {
		return err
	}
	if err := writeArrayToTable(w.TestTable, &tests); err != nil {
		return err
	}

	w.RecCounter++
	return nil
}

func (w *Writer) Close() error {
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Closing HDF5 file %s (%d records)", w.Filename, w.RecCounter), "hdf5")
	}
	var errs []error

	if err := closeTables(w.EventTable, w.RunInfoTable, w.CloverTable, w.AddbackTable,
		w.PairsTable, w.VandleTable, w.TestTable); err != nil {
		errs = append(errs, err)
	}
	for name, group := range map[string]*hdf5.Group{"run": w.RunGroup, "clover": w.CloverGroup, "vandle": w.VandleGroup} {
		if group == nil {
			continue
		}
		if err := group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", name, err))
		}
	}
	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SplitSink sends identified records to Identified and the rest to
// Unidentified. A nil Unidentified drops them.
type SplitSink struct {
	Identified   RecordSink
	Unidentified RecordSink
}

func (s *SplitSink) WriteRecord(rec *OutputRecord) error {
	writer := s.Identified
	if !rec.Identified() {
		writer = s.Unidentified
	}
	if writer == nil {
		return nil
	}
	return writer.WriteRecord(rec)
}

func (s *SplitSink) Close() error {
	var errs []error
	for _, sink := range []RecordSink{s.Identified, s.Unidentified} {
		if sink == nil {
			continue
		}
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiSink writes every record to each of its sinks in order.
type MultiSink []RecordSink

func (m MultiSink) WriteRecord(rec *OutputRecord) error {
	for _, sink := range m {
		if err := sink.WriteRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the sinks in reverse order.
func (m MultiSink) Close() error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemorySink keeps copies of the records it receives.
type MemorySink struct {
	mu      sync.Mutex
	Records []OutputRecord
	Closed  bool
}

func (m *MemorySink) WriteRecord(rec *OutputRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, *rec)
	return nil
}

func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
