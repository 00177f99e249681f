package merger

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// FlatSchema names the branches of an already merged flat tree that is
// re-reduced for isomer searches.
type FlatSchema struct {
	Timestamp string `json:"timestamp"`
	DE        string `json:"de"`
	ToF       string `json:"tof"`
	Zed       string `json:"zed"`
	AMass     string `json:"amass"`
	IonX      string `json:"ion_x"`
	IonY      string `json:"ion_y"`
	FitB1     string `json:"fit_b1_energy"`
	FitB2     string `json:"fit_b2_energy"`

	CloverEnergy    string `json:"clover_energy"`
	CloverRawEnergy string `json:"clover_raw_energy"`
	// Walk corrected, relative to the beta.
	CloverTime    string `json:"clover_time"`
	CloverChannel string `json:"clover_channel"`
}

func DefaultFlatSchema() FlatSchema {
	return FlatSchema{
		Timestamp:       "ts",
		DE:              "dE",
		ToF:             "ToF",
		Zed:             "Zed",
		AMass:           "AMass",
		IonX:            "pos_x",
		IonY:            "pos_y",
		FitB1:           "FIT_b1_E",
		FitB2:           "FIT_b2_E",
		CloverEnergy:    "clover_E",
		CloverRawEnergy: "clover_rawE",
		CloverTime:      "clover_Twc",
		CloverChannel:   "clover_ch",
	}
}

func (s FlatSchema) fields() []string {
	all := []string{
		s.Timestamp, s.DE, s.ToF, s.Zed, s.AMass, s.IonX, s.IonY, s.FitB1, s.FitB2,
		s.CloverEnergy, s.CloverRawEnergy, s.CloverTime, s.CloverChannel,
	}
	fields := make([]string, 0, len(all))
	for _, f := range all {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// ReduceFlat rebuilds the gamma part of a flat tree entry. Clover times are
// taken as already corrected; pairs, addback and addback pairs are
// recomputed. The record carries no VANDLE or decay correlation data.
func ReduceFlat(entry int64, row Row, schema FlatSchema, groups CloverGroups, threshold float64) OutputRecord {
	n := len(row[schema.CloverEnergy])
	clovers := make([]CloverHit, n)
	for i := 0; i < n; i++ {
		clovers[i] = CloverHit{
			Energy:    row.At(schema.CloverEnergy, i),
			RawEnergy: row.At(schema.CloverRawEnergy, i),
			Time:      row.At(schema.CloverTime, i),
			Channel:   int(row.At(schema.CloverChannel, i)),
			HighGain:  true,
		}
	}
	addback := Addback(clovers, groups, threshold)

	ev := &EventReconstruction{
		Entry: entry,
		Beta: BetaInfo{
			Time:           row.Scalar(schema.Timestamp),
			X:              UnsetValue,
			Y:              UnsetValue,
			QdcHighGain:    UnsetValue,
			QdcLowGain:     UnsetValue,
			EnergyHighGain: UnsetValue,
			EnergyLowGain:  UnsetValue,
			FitB1Energy:    row.Scalar(schema.FitB1),
			FitB2Energy:    row.Scalar(schema.FitB2),
		},
		Clovers:      clovers,
		CloverPairs:  CloverPairs(clovers),
		Addback:      addback,
		AddbackPairs: AddbackPairs(addback),
	}
	return OutputRecord{
		Event: ev,
		DE:    row.Scalar(schema.DE),
		ToF:   row.Scalar(schema.ToF),
		Zed:   int(row.Scalar(schema.Zed)),
		AMass: int(row.Scalar(schema.AMass)),
		IonX:  row.Scalar(schema.IonX),
		IonY:  row.Scalar(schema.IonY),
		DT:    UnsetTiming,
		DR:    UnsetTiming,
	}
}

// FlatSource reads a flat tree and yields re-reduced records.
type FlatSource struct {
	*TreeReader
	Schema    FlatSchema
	Groups    CloverGroups
	Threshold float64
}

func OpenFlatSource(filename, treeName string, schema FlatSchema, groups CloverGroups, threshold float64, skip, maxEvents int) (*FlatSource, error) {
	end := int64(-1)
	if maxEvents > 0 {
		end = int64(skip) + int64(maxEvents)
	}
	tr, err := OpenTree(filename, treeName, schema.fields(), int64(skip), end)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = DefaultCloverGroups()
	}
	return &FlatSource{TreeReader: tr, Schema: schema, Groups: groups, Threshold: threshold}, nil
}

func (s *FlatSource) NextRecord() (OutputRecord, error) {
	entry, row, err := s.TreeReader.Next()
	if err != nil {
		return OutputRecord{}, err
	}
	return ReduceFlat(entry, row, s.Schema, s.Groups, s.Threshold), nil
}

// RecordSource yields finished output records and io.EOF after the last.
type RecordSource interface {
	NextRecord() (OutputRecord, error)
}

// CopyRecords writes every record of source to sink.
func CopyRecords(ctx context.Context, source RecordSource, sink RecordSink) (RunStats, error) {
	stats := RunStats{}
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rec, err := source.NextRecord()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("error reading record %d: %w", stats.Events, err)
		}
		stats.Events++
		if err := sink.WriteRecord(&rec); err != nil {
			return stats, fmt.Errorf("error writing entry %d: %w", rec.Event.Entry, err)
		}
		stats.Records++
		if rec.Identified() {
			stats.Identified++
		}
	}
}
