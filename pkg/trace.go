package merger

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

// TraceSchema names the branches of the implant detector tree read by the
// PID extraction.
type TraceSchema struct {
	ImplantEnergy string `json:"implant_energy"`
	RearB1Energy  string `json:"rear_b1_energy"`
	RearB2Energy  string `json:"rear_b2_energy"`
	IonX          string `json:"ion_x"`
	IonY          string `json:"ion_y"`
	TsLow         string `json:"ts_low"`
	TsHigh        string `json:"ts_high"`
	Pin0Energy    string `json:"pin0_energy"`
	Pin1Energy    string `json:"pin1_energy"`
	Pin0Time      string `json:"pin0_time"`
	Pin1Time      string `json:"pin1_time"`
	Tac0          string `json:"tac0"`
	Tac1          string `json:"tac1"`
}

const DefaultTraceTree = "pspmt"

func DefaultTraceSchema() TraceSchema {
	return TraceSchema{
		ImplantEnergy: "low_gain_.energy_",
		RearB1Energy:  "rit_b1_.energy_",
		RearB2Energy:  "rit_b2_.energy_",
		IonX:          "low_gain_.pos_x_",
		IonY:          "low_gain_.pos_y_",
		TsLow:         "external_ts_low_",
		TsHigh:        "external_ts_high_",
		Pin0Energy:    "pid_vec_.pin_0_energy",
		Pin1Energy:    "pid_vec_.pin_1_energy",
		Pin0Time:      "pid_vec_.pin_0_time",
		Pin1Time:      "pid_vec_.pin_1_time",
		Tac0:          "pid_vec_.tac_0",
		Tac1:          "pid_vec_.tac_1",
	}
}

// Fields lists the branches SelectTraces reads.
func (s TraceSchema) Fields() []string {
	return []string{
		s.ImplantEnergy, s.RearB1Energy, s.RearB2Energy, s.IonX, s.IonY, s.TsLow, s.TsHigh,
		s.Pin0Energy, s.Pin1Energy, s.Pin0Time, s.Pin1Time, s.Tac0, s.Tac1,
	}
}

// TraceRecord is one PID measurement of an accepted implant. ToF is the
// second TAC and dE the first PIN energy.
type TraceRecord struct {
	Entry      int64
	TsLow      float64
	TsHigh     float64
	DE         float64
	ToF        float64
	IonX       float64
	IonY       float64
	Pin0Energy float64
	Pin0Time   float64
	Pin1Energy float64
	Pin1Time   float64
	Tac0       float64
	Tac1       float64
}

// SelectTraces keeps entries with an implant (low gain energy > 0) and
// without a rear ion detector signal, returning one record per PID
// measurement. Rejected entries return nil.
func SelectTraces(entry int64, row Row, s TraceSchema) []TraceRecord {
	if row.Scalar(s.ImplantEnergy) <= 0 {
		return nil
	}
	if row.Scalar(s.RearB1Energy) >= 0 || row.Scalar(s.RearB2Energy) >= 0 {
		return nil
	}
	n := len(row[s.Tac1])
	records := make([]TraceRecord, n)
	for i := range records {
		records[i] = TraceRecord{
			Entry:      entry,
			TsLow:      row.Scalar(s.TsLow),
			TsHigh:     row.Scalar(s.TsHigh),
			DE:         row.At(s.Pin0Energy, i),
			ToF:        row.At(s.Tac1, i),
			IonX:       row.Scalar(s.IonX),
			IonY:       row.Scalar(s.IonY),
			Pin0Energy: row.At(s.Pin0Energy, i),
			Pin0Time:   row.At(s.Pin0Time, i),
			Pin1Energy: row.At(s.Pin1Energy, i),
			Pin1Time:   row.At(s.Pin1Time, i),
			Tac0:       row.At(s.Tac0, i),
			Tac1:       row.At(s.Tac1, i),
		}
	}
	return records
}

// TraceSink writes trace records to a flat ROOT tree.
type TraceSink struct {
	Filename string
	file     *riofs.File
	writer   rtree.Writer
	rec      TraceRecord
	closed   bool
}

func CreateTraceSink(filename, treeName string) (*TraceSink, error) {
	f, err := groot.Create(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	s := &TraceSink{Filename: filename, file: f}
	wvars := []rtree.WriteVar{
		{Name: "entry", Value: &s.rec.Entry},
		{Name: "ts_low", Value: &s.rec.TsLow},
		{Name: "ts_high", Value: &s.rec.TsHigh},
		{Name: "dE", Value: &s.rec.DE},
		{Name: "ToF", Value: &s.rec.ToF},
		{Name: "ion_x", Value: &s.rec.IonX},
		{Name: "ion_y", Value: &s.rec.IonY},
		{Name: "pin1_energy", Value: &s.rec.Pin1Energy},
		{Name: "pin1_time", Value: &s.rec.Pin1Time},
		{Name: "pin0_energy", Value: &s.rec.Pin0Energy},
		{Name: "pin0_time", Value: &s.rec.Pin0Time},
		{Name: "tac0", Value: &s.rec.Tac0},
		{Name: "tac1", Value: &s.rec.Tac1},
	}
	s.writer, err = rtree.NewWriter(f, treeName, wvars, rtree.WithTitle(treeName))
	if err != nil {
		f.Close()
		return nil, &ErrCreateTable{TableName: treeName, Err: err}
	}
	return s, nil
}

func (s *TraceSink) WriteTrace(rec TraceRecord) error {
	s.rec = rec
	if _, err := s.writer.Write(); err != nil {
		return fmt.Errorf("error writing trace entry %d: %w", rec.Entry, err)
	}
	return nil
}

func (s *TraceSink) Close() error {
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

// TraceStats counts what ExtractTraces read and wrote.
type TraceStats struct {
	Entries  int
	Accepted int
	Records  int
}

type TraceWriter interface {
	WriteTrace(rec TraceRecord) error
}

// ExtractTraces runs the PID selection over every row of rows.
func ExtractTraces(ctx context.Context, rows RowSource, schema TraceSchema, sink TraceWriter) (TraceStats, error) {
	stats := TraceStats{}
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		entry, row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Entries++
		records := SelectTraces(entry, row, schema)
		if len(records) > 0 {
			stats.Accepted++
		}
		for _, rec := range records {
			if err := sink.WriteTrace(rec); err != nil {
				return stats, err
			}
			stats.Records++
		}
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Accepted %d of %d entries, %d PID records", stats.Accepted, stats.Entries, stats.Records), "trace")
	}
	return stats, nil
}
