package litpatch

import (
	"errors"
	"fmt"
)

// Common errors. Callers classify with errors.Is.
var (
	ErrStructural     = errors.New("litpatch: structurally invalid document")
	ErrRecordNotFound = errors.New("litpatch: record not found")
	ErrFieldNotFound  = errors.New("litpatch: field not found")
	ErrDataFormat     = errors.New("litpatch: malformed update payload")
	ErrAnchorNotFound = errors.New("litpatch: anchor not found")
)

// StructuralError reports where brace/quote balance (or edit ordering) broke down.
type StructuralError struct {
	Offset int
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("litpatch: structurally invalid at offset %d: %s", e.Offset, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

func structural(off int, format string, args ...any) error {
	return &StructuralError{Offset: off, Reason: fmt.Sprintf(format, args...)}
}

// DataFormatError wraps a malformed payload coming from an update provider.
type DataFormatError struct {
	Source string
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("litpatch: malformed update payload: %v", e.Err)
	}
	return fmt.Sprintf("litpatch: malformed update payload from %s: %v", e.Source, e.Err)
}

func (e *DataFormatError) Unwrap() []error { return []error{ErrDataFormat, e.Err} }

// NewDataFormatError is used by providers to flag payloads they cannot decode.
func NewDataFormatError(source string, err error) error {
	return &DataFormatError{Source: source, Err: err}
}
