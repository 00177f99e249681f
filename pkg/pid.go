package merger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// PIDCut is a closed polygon in the (ToF, dE) plane.
type PIDCut struct {
	Name string
	X    []float64
	Y    []float64
}

func (c *PIDCut) Len() int { return len(c.X) }

// IsInside reports whether (x, y) lies inside the polygon, using the even-odd
// crossing rule. The closing edge from the last vertex to the first is
// implied.
func (c *PIDCut) IsInside(x, y float64) bool {
	np := len(c.X)
	if np < 3 || len(c.Y) != np {
		return false
	}
	inside := false
	j := np - 1
	for i := 0; i < np; i++ {
		if (c.Y[i] < y && c.Y[j] >= y) || (c.Y[j] < y && c.Y[i] >= y) {
			if c.X[i]+(y-c.Y[i])/(c.Y[j]-c.Y[i])*(c.X[j]-c.X[i]) < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// ReadPIDCut parses a cut file: the cut name, the number of points, and one
// "x y" pair per line.
func ReadPIDCut(r io.Reader, filename string) (*PIDCut, error) {
	scanner := bufio.NewScanner(r)
	nline := 0
	next := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		nline++
		return strings.TrimSpace(scanner.Text()), nil
	}

	name, err := next()
	if err != nil {
		return nil, &ErrParseLine{Filename: filename, Line: nline + 1, Err: err}
	}
	if name == "" {
		return nil, &ErrParseLine{Filename: filename, Line: nline, Err: fmt.Errorf("empty cut name")}
	}
	line, err := next()
	if err != nil {
		return nil, &ErrParseLine{Filename: filename, Line: nline + 1, Err: err}
	}
	npoints, err := strconv.Atoi(line)
	if err != nil {
		return nil, &ErrParseLine{Filename: filename, Line: nline, Err: err}
	}
	if npoints < 0 {
		return nil, &ErrParseLine{Filename: filename, Line: nline, Err: fmt.Errorf("negative point count %d", npoints)}
	}

	cut := &PIDCut{
		Name: name,
		X:    make([]float64, npoints),
		Y:    make([]float64, npoints),
	}
	for i := 0; i < npoints; i++ {
		line, err := next()
		if err != nil {
			return nil, &ErrParseLine{Filename: filename, Line: nline + 1, Err: err}
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, &ErrParseLine{Filename: filename, Line: nline, Err: fmt.Errorf("expected \"x y\", got %q", line)}
		}
		if cut.X[i], err = strconv.ParseFloat(fields[0], 64); err != nil {
			return nil, &ErrParseLine{Filename: filename, Line: nline, Err: err}
		}
		if cut.Y[i], err = strconv.ParseFloat(fields[1], 64); err != nil {
			return nil, &ErrParseLine{Filename: filename, Line: nline, Err: err}
		}
	}
	return cut, nil
}

func LoadPIDCut(filename string) (*PIDCut, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()
	return ReadPIDCut(file, filename)
}

func WritePIDCut(w io.Writer, cut *PIDCut) error {
	if len(cut.X) != len(cut.Y) {
		return fmt.Errorf("cut %s: %d x values and %d y values", cut.Name, len(cut.X), len(cut.Y))
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, cut.Name)
	fmt.Fprintln(bw, len(cut.X))
	for i := range cut.X {
		fmt.Fprintf(bw, "%s %s\n",
			strconv.FormatFloat(cut.X[i], 'g', -1, 64),
			strconv.FormatFloat(cut.Y[i], 'g', -1, 64))
	}
	return bw.Flush()
}

// MakePIDCut writes cut to <dir>/CUT/<name>.txt and returns the path.
func MakePIDCut(dir string, cut *PIDCut) (string, error) {
	cutDir := filepath.Join(dir, "CUT")
	if err := os.MkdirAll(cutDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating cut directory: %w", err)
	}
	filename := filepath.Join(cutDir, cut.Name+".txt")
	file, err := os.Create(filename)
	if err != nil {
		return "", &ErrOpenFile{Filename: filename, Err: err}
	}
	if err := WritePIDCut(file, cut); err != nil {
		file.Close()
		return "", fmt.Errorf("error writing cut %s: %w", cut.Name, err)
	}
	return filename, file.Close()
}

var elementZ = map[string]int{
	"H": 1, "He": 2, "Li": 3, "Be": 4, "B": 5, "C": 6, "N": 7, "O": 8,
	"F": 9, "Ne": 10, "Na": 11, "Mg": 12, "Al": 13, "Si": 14, "P": 15,
	"S": 16, "Cl": 17, "Ar": 18, "K": 19, "Ca": 20, "Sc": 21, "Ti": 22,
	"V": 23, "Cr": 24, "Mn": 25, "Fe": 26, "Co": 27, "Ni": 28, "Cu": 29,
	"Zn": 30,
}

var isotopeRegexp = regexp.MustCompile(`^([A-Z][a-z]?)(\d+)`)

// ParseIsotope extracts (Z, A) from a label such as "Ne30" or "F29CUT".
func ParseIsotope(label string) (zed, amass int, err error) {
	m := isotopeRegexp.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid isotope label %q", label)
	}
	zed, ok := elementZ[m[1]]
	if !ok {
		return 0, 0, fmt.Errorf("unknown element %q in %q", m[1], label)
	}
	amass, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid mass number in %q: %w", label, err)
	}
	return zed, amass, nil
}

type IsotopeCut struct {
	Cut   *PIDCut
	Zed   int
	AMass int
}

// PIDGate classifies implants with an ordered list of cuts; the first cut
// containing the point wins.
type PIDGate struct {
	Cuts []IsotopeCut
}

func NewPIDGate(cuts ...*PIDCut) (*PIDGate, error) {
	gate := &PIDGate{Cuts: make([]IsotopeCut, 0, len(cuts))}
	for _, cut := range cuts {
		zed, amass, err := ParseIsotope(cut.Name)
		if err != nil {
			return nil, err
		}
		gate.Cuts = append(gate.Cuts, IsotopeCut{Cut: cut, Zed: zed, AMass: amass})
	}
	return gate, nil
}

// LoadPIDGate reads <dir>/<name>.txt for each name, keeping the given order.
func LoadPIDGate(dir string, names []string) (*PIDGate, error) {
	cuts := make([]*PIDCut, 0, len(names))
	for _, name := range names {
		cut, err := LoadPIDCut(filepath.Join(dir, name+".txt"))
		if err != nil {
			return nil, err
		}
		cuts = append(cuts, cut)
	}
	gate, err := NewPIDGate(cuts...)
	if err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("Loaded %d PID cuts from %s", len(cuts), dir), "pid")
	return gate, nil
}

// Classify returns the isotope of the first cut containing (tof, dE), or
// UnsetPID for both values when no cut does.
func (g *PIDGate) Classify(tof, dE float64) (zed, amass int) {
	if g == nil {
		return UnsetPID, UnsetPID
	}
	for _, c := range g.Cuts {
		if c.Cut.IsInside(tof, dE) {
			return c.Zed, c.AMass
		}
	}
	return UnsetPID, UnsetPID
}

// DefaultPIDCutNames is the priority order used for the N=20 island runs.
var DefaultPIDCutNames = []string{
	"F29CUT", "F27CUT", "F26CUT",
	"Ne29CUT", "Ne30CUT", "Ne31CUT", "Ne32CUT",
	"Na32CUT", "Na33CUT", "Na34CUT", "Na35CUT",
	"Mg36CUT", "Mg37CUT",
}
