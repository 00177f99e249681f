package merger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Row maps a column name to its values for one entry. Scalar columns hold a
// single value.
type Row map[string][]float64

// Scalar returns the first value of a column, or UnsetValue when the column
// is missing or empty.
func (r Row) Scalar(name string) float64 {
	v := r[name]
	if len(v) == 0 {
		return UnsetValue
	}
	return v[0]
}

// At returns value i of a column, or UnsetValue when out of range.
func (r Row) At(name string, i int) float64 {
	v := r[name]
	if i < 0 || i >= len(v) {
		return UnsetValue
	}
	return v[i]
}

// Row flattens an output record into the columns of the output tree.
func (rec *OutputRecord) Row() Row {
	ev := rec.Event
	row := Row{
		"entry":               {float64(ev.Entry)},
		"dE":                  {rec.DE},
		"ToF":                 {rec.ToF},
		"beta_x":              {ev.Beta.X},
		"beta_y":              {ev.Beta.Y},
		"ion_x":               {rec.IonX},
		"ion_y":               {rec.IonY},
		"Zed":                 {float64(rec.Zed)},
		"AMass":               {float64(rec.AMass)},
		"betaQdcHighGain":     {ev.Beta.QdcHighGain},
		"betaQdcLowGain":      {ev.Beta.QdcLowGain},
		"betaEnergyHighGain":  {ev.Beta.EnergyHighGain},
		"betaEnergyLowGain":   {ev.Beta.EnergyLowGain},
		"fit_energy":          {ev.Beta.FitEnergy()},
		"dT":                  {rec.DT},
		"dr":                  {rec.DR},
		"clover_mult":         {float64(len(ev.Clovers))},
		"cloverAB_mult":       {float64(len(ev.Addback))},
		"vandle_mult":         {float64(len(ev.Vandles))},
		"vandle_mult_Neutron": {float64(rec.VandleMultNeutron)},
		"vandle_mult_BKG":     {float64(rec.VandleMultBKG)},
		"vandle_corTof":       rec.VandleCorTof,
		"vandle_tofTest":      rec.VandleTofTest,
		"vandle_qdcTest":      rec.VandleQdcTest,
		"vandle_barTest":      convertSlice(rec.VandleBarTest),
	}

	n := len(ev.Clovers)
	e, raw, t, ch := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, hit := range ev.Clovers {
		e[i], raw[i], t[i], ch[i] = hit.Energy, hit.RawEnergy, hit.Time, float64(hit.Channel)
	}
	row["clover_E"], row["clover_rawE"], row["clover_T"], row["clover_ch"] = e, raw, t, ch

	n = len(ev.Addback)
	e, t, ch = make([]float64, n), make([]float64, n), make([]float64, n)
	for i, c := range ev.Addback {
		e[i], t[i], ch[i] = c.Energy, c.Time, float64(c.Channel)
	}
	row["cloverAB_E"], row["cloverAB_T"], row["cloverAB_ch"] = e, t, ch

	row["cloverGG_E1"], row["cloverGG_T1"], row["cloverGG_E2"], row["cloverGG_T2"] = splitPairs(ev.CloverPairs, nil, nil, nil, nil)
	row["cloverABGG_E1"], row["cloverABGG_T1"], row["cloverABGG_E2"], row["cloverABGG_T2"] = splitPairs(ev.AddbackPairs, nil, nil, nil, nil)

	n = len(ev.Vandles)
	tof, qdc, sqdc, tdiff, bar := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, hit := range ev.Vandles {
		tof[i], qdc[i], sqdc[i], tdiff[i], bar[i] = hit.TOF, hit.Qdc, hit.ShortQdc, hit.TDiff, float64(hit.Bar)
	}
	row["vandle_tof"], row["vandle_qdc"], row["vandle_sqdc"], row["vandle_tdiff"], row["vandle_bar"] = tof, qdc, sqdc, tdiff, bar
	return row
}

type compareOp int

const (
	opLess compareOp = iota
	opLessEqual
	opGreater
	opGreaterEqual
	opEqual
	opNotEqual
)

// Two character operators come first so "<=" is not read as "<".
var cutOperators = []struct {
	token string
	op    compareOp
}{
	{"<=", opLessEqual},
	{">=", opGreaterEqual},
	{"==", opEqual},
	{"!=", opNotEqual},
	{"<", opLess},
	{">", opGreater},
}

func (op compareOp) eval(a, b float64) bool {
	switch op {
	case opLess:
		return a < b
	case opLessEqual:
		return a <= b
	case opGreater:
		return a > b
	case opGreaterEqual:
		return a >= b
	case opEqual:
		return a == b
	case opNotEqual:
		return a != b
	}
	return false
}

type cutClause struct {
	field string
	scale float64
	op    compareOp
	value float64
}

// Cut is a conjunction of "field [* scale] op number" clauses.
type Cut struct {
	expr    string
	clauses []cutClause
	scalars map[string]bool
}

func (c *Cut) String() string {
	if c == nil {
		return ""
	}
	return c.expr
}

// Fields returns the columns the cut reads.
func (c *Cut) Fields() []string {
	if c == nil {
		return nil
	}
	fields := make([]string, 0, len(c.clauses))
	seen := make(map[string]bool)
	for _, cl := range c.clauses {
		if !seen[cl.field] {
			seen[cl.field] = true
			fields = append(fields, cl.field)
		}
	}
	return fields
}

// ParseCut parses expressions such as "Zed == 11 && dT * 1e6 < 100". An
// empty expression accepts everything; "1 == 1" is accepted as well.
func ParseCut(expr string) (*Cut, error) {
	cut := &Cut{expr: strings.TrimSpace(expr)}
	if cut.expr == "" {
		return cut, nil
	}
	for _, part := range strings.Split(cut.expr, "&&") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty clause in cut %q", expr)
		}
		clause, always, err := parseClause(part)
		if err != nil {
			return nil, fmt.Errorf("cut %q: %w", expr, err)
		}
		if always {
			continue
		}
		cut.clauses = append(cut.clauses, clause)
	}
	return cut, nil
}

func parseClause(s string) (cutClause, bool, error) {
	for _, o := range cutOperators {
		idx := strings.Index(s, o.token)
		if idx < 0 {
			continue
		}
		lhs := strings.TrimSpace(s[:idx])
		rhs := strings.TrimSpace(s[idx+len(o.token):])
		value, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return cutClause{}, false, fmt.Errorf("invalid value %q", rhs)
		}
		if lhsValue, err := strconv.ParseFloat(lhs, 64); err == nil {
			if o.op.eval(lhsValue, value) {
				return cutClause{}, true, nil
			}
			return cutClause{}, false, fmt.Errorf("clause %q is never true", s)
		}
		clause := cutClause{field: lhs, scale: 1, op: o.op, value: value}
		if field, factor, ok := strings.Cut(lhs, "*"); ok {
			clause.field = strings.TrimSpace(field)
			clause.scale, err = strconv.ParseFloat(strings.TrimSpace(factor), 64)
			if err != nil {
				return cutClause{}, false, fmt.Errorf("invalid scale %q", factor)
			}
		}
		if clause.field == "" || strings.ContainsAny(clause.field, " ()+-/") {
			return cutClause{}, false, fmt.Errorf("invalid field %q", clause.field)
		}
		return clause, false, nil
	}
	return cutClause{}, false, fmt.Errorf("no comparison operator in %q", s)
}

// instances is the number of indices a row is evaluated over: the length of
// the shortest vector column among fields, or 1 when every field is scalar.
func instances(row Row, fields []string, scalars map[string]bool) int {
	n := -1
	for _, f := range fields {
		col, ok := row[f]
		if !ok || scalars[f] {
			continue
		}
		if n < 0 || len(col) < n {
			n = len(col)
		}
	}
	if n < 0 {
		return 1
	}
	return n
}

// WithScalars returns a copy of the cut that broadcasts the named columns to
// every index. Columns not named are treated as variable-length arrays.
func (c *Cut) WithScalars(scalars map[string]bool) *Cut {
	if c == nil {
		return nil
	}
	bound := *c
	bound.scalars = scalars
	return &bound
}

// PassAt evaluates the cut on index i of the row. A vector column shorter
// than i fails.
func (c *Cut) PassAt(row Row, i int) (bool, error) {
	if c == nil {
		return true, nil
	}
	for _, cl := range c.clauses {
		col, ok := row[cl.field]
		if !ok {
			return false, fmt.Errorf("%w: %q", ErrUnknownField, cl.field)
		}
		idx := i
		if c.scalars[cl.field] {
			idx = 0
		}
		if idx >= len(col) || !cl.op.eval(col[idx]*cl.scale, cl.value) {
			return false, nil
		}
	}
	return true, nil
}

// Pass reports whether any instance of the row passes the cut. Instances
// run up to the shortest vector column the cut reads.
func (c *Cut) Pass(row Row) (bool, error) {
	if c == nil {
		return true, nil
	}
	fields := c.Fields()
	for _, f := range fields {
		if _, ok := row[f]; !ok {
			return false, fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
	}
	n := instances(row, fields, c.scalars)
	for i := 0; i < n; i++ {
		ok, err := c.PassAt(row, i)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// RowSource yields rows and io.EOF after the last one.
type RowSource interface {
	Next() (int64, Row, error)
}

// ScalarSource is implemented by row sources that know which columns are
// single-valued branches.
type ScalarSource interface {
	Scalars() map[string]bool
}

// DumpField writes the header "field(unit)" and then one line per row
// passing the cut. A vector field writes its values at the passing indices
// instead. It returns the number of values written.
func DumpField(ctx context.Context, rows RowSource, field, unit string, cut *Cut, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s(%s)\n", field, unit); err != nil {
		return 0, err
	}
	fields := append([]string{field}, cut.Fields()...)
	scalarRows, _ := rows.(ScalarSource)
	count := 0
	write := func(v float64) {
		bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		bw.WriteByte('\n')
		count++
	}
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		_, row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, err
		}
		col, ok := row[field]
		if !ok {
			return count, fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		var scalars map[string]bool
		if scalarRows != nil {
			scalars = scalarRows.Scalars()
		}
		rowCut := cut.WithScalars(scalars)
		if scalars[field] {
			pass, err := rowCut.Pass(row)
			if err != nil {
				return count, err
			}
			if pass && len(col) > 0 {
				write(col[0])
			}
			continue
		}
		for _, f := range cut.Fields() {
			if _, ok := row[f]; !ok {
				return count, fmt.Errorf("%w: %q", ErrUnknownField, f)
			}
		}
		n := instances(row, fields, scalars)
		for i := 0; i < n; i++ {
			pass, err := rowCut.PassAt(row, i)
			if err != nil {
				return count, err
			}
			if pass {
				write(col[i])
			}
		}
	}
	return count, bw.Flush()
}

type zstdFile struct {
	*zstd.Encoder
	file *os.File
}

func (z *zstdFile) Close() error {
	return errors.Join(z.Encoder.Close(), z.file.Close())
}

// CreateDumpFile creates filename for writing, zstd compressed when the
// name ends in ".zst".
func CreateDumpFile(filename string) (io.WriteCloser, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	if !strings.HasSuffix(filename, ".zst") {
		return file, nil
	}
	enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("error creating zstd encoder: %w", err)
	}
	return &zstdFile{Encoder: enc, file: file}, nil
}

type zstdReader struct {
	*zstd.Decoder
	file *os.File
}

func (z *zstdReader) Close() error {
	z.Decoder.Close()
	return z.file.Close()
}

// OpenDumpFile opens a dump written by CreateDumpFile.
func OpenDumpFile(filename string) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	if !strings.HasSuffix(filename, ".zst") {
		return file, nil
	}
	dec, err := zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("error creating zstd decoder: %w", err)
	}
	return &zstdReader{Decoder: dec, file: file}, nil
}

// Column names of the relative gamma time and energy, raw and addback.
func cloverFields(addback bool) (timeField, energyField string) {
	if addback {
		return "cloverAB_T", "cloverAB_E"
	}
	return "clover_T", "clover_E"
}

// GammaCut gates on the beta-relative gamma time (ns) and energy (keV).
func GammaCut(timeLow, timeHigh, energyLow, energyHigh float64, addback bool) string {
	t, e := cloverFields(addback)
	return fmt.Sprintf("%s > %g && %s < %g && %s > %g && %s < %g", t, timeLow, t, timeHigh, e, energyLow, e, energyHigh)
}

// Default beta energy window (keV) of BetaCut.
const (
	DefaultBetaEnergyLow  = 0.
	DefaultBetaEnergyHigh = 600.
)

// BetaCut gates on the implant-beta time difference (ns), the implant-beta
// distance and the low gain beta energy (keV).
func BetaCut(windowStart, windowWidth, radius, energyLow, energyHigh float64) string {
	return fmt.Sprintf("dT * 1e6 > %g && dT * 1e6 < %g && dr < %g && betaEnergyLowGain > %g && betaEnergyLowGain < %g",
		windowStart, windowStart+windowWidth, radius, energyLow, energyHigh)
}

// JoinCuts combines non-empty cut expressions with "&&".
func JoinCuts(cuts ...string) string {
	parts := make([]string, 0, len(cuts))
	for _, c := range cuts {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " && ")
}
