package merger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFlightPath is returned when a time of flight is corrected
	// against the rejected-geometry sentinel (a zero flight path).
	ErrInvalidFlightPath = errors.New("invalid flight path")
	// ErrFtDomain is returned by CalcFtStrict when an input or an
	// intermediate value is outside the domain of the Fermi integral fit.
	ErrFtDomain = errors.New("ft calculation outside numeric domain")
	// ErrUnknownField is returned when a cut or a dump refers to a branch
	// that is not present in the row.
	ErrUnknownField = errors.New("unknown field")
)

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

// ErrParseLine represents a malformed line in a calibration or cut file.
type ErrParseLine struct {
	Filename string
	Line     int
	Err      error
}

func (e *ErrParseLine) Error() string {
	return fmt.Sprintf("error parsing %q line %d: %v", e.Filename, e.Line, e.Err)
}

func (e *ErrParseLine) Unwrap() error { return e.Err }

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error { return e.Err }

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error { return e.Err }
