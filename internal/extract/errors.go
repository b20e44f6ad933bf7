package extract

import "fmt"

// ExtractionError reports a malformed schema or input file. Line is 1 based, zero
// when the error is not tied to a line.
type ExtractionError struct {
	File string
	Line int
	Msg  string
}

func (e *ExtractionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("extract %s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("extract %s: %s", e.File, e.Msg)
}

func newError(file string, line int, format string, args ...any) *ExtractionError {
	return &ExtractionError{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}
