package document

import (
	"errors"
	"fmt"
)

// ErrFormat matches every *FormatError.
var ErrFormat = errors.New("invalid document format")

// ErrNotFound matches a FileError for a missing input file.
var ErrNotFound = errors.New("file not found")

// FormatError reports malformed input. Line and Column are 1-based and zero
// when the problem is structural rather than syntactic.
type FormatError struct {
	Line   int
	Column int
	Path   string
	Msg    string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid JSON at line %d, column %d: %s", e.Line, e.Column, e.Msg)
	}
	if e.Path != "" {
		return fmt.Sprintf("invalid document at %s: %s", e.Path, e.Msg)
	}
	return "invalid document: " + e.Msg
}

// Is makes errors.Is(err, ErrFormat) true for format errors.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// FileError wraps an I/O failure with the operation and path.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
