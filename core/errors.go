package core

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNoData means the field is simply not present in the file.
	ErrNoData = errors.New("no data")
	// ErrUnsupported is returned for formats without a handler.
	ErrUnsupported = errors.New("unsupported format")
	// ErrInvalidCoordinate rejects out-of-range and (0,0) coordinates.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// ParseError reports a field that is present but malformed.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("malformed %s %q", e.Field, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ToolError reports a failed run of an external program.
type ToolError struct {
	Tool     string
	ExitCode int
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s: timed out", e.Tool)
	case e.ExitCode != 0:
		return fmt.Sprintf("%s: exit status %d: %s", e.Tool, e.ExitCode, e.Stderr)
	default:
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
}

func (e *ToolError) Unwrap() error { return e.Err }

// Failure classifies an extraction or write error for logging.
type Failure string

const (
	FailNone    Failure = ""
	FailAbsent  Failure = "absent"
	FailParse   Failure = "malformed"
	FailIO      Failure = "io"
	FailTool    Failure = "tool"
	FailInvalid Failure = "invalid"
	FailOther   Failure = "other"
)

// Classify maps err onto a Failure.
func Classify(err error) Failure {
	if err == nil {
		return FailNone
	}
	var pe *ParseError
	var te *ToolError
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, ErrNoData):
		return FailAbsent
	case errors.Is(err, ErrInvalidCoordinate):
		return FailInvalid
	case errors.As(err, &pe):
		return FailParse
	case errors.As(err, &te):
		return FailTool
	case errors.As(err, &pathErr):
		return FailIO
	default:
		return FailOther
	}
}
