package sanitizer

import (
	"errors"
	"fmt"

	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

// ErrNoDistinctValue means the generator kept returning the original value.
var ErrNoDistinctValue = errors.New("no replacement distinct from the original")

// GeneratorError aborts a sanitization call: a detected value that cannot be
// replaced must not reach the output.
type GeneratorError struct {
	Category pii.Category
	Path     string
	Err      error
}

func (e *GeneratorError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("generating %s replacement: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("generating %s replacement at %s: %v", e.Category, e.Path, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }
