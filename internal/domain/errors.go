package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotFound is returned by Source lookups for models that never
	// loaded, including models excluded after a contained build failure.
	ErrModelNotFound = errors.New("model not found")

	// ErrCoordinateNotFound marks a configured raw coordinate name absent
	// from the raw dataset.
	ErrCoordinateNotFound = errors.New("coordinate not found in dataset")

	// ErrUnknownUnit marks a declared raw unit string with no entry in the
	// vmro3 conversion table.
	ErrUnknownUnit = errors.New("unrecognized unit")
)

// ModelLoadError is the umbrella for any adapter failure during a model
// build. It is contained at the model-build boundary: logged, counted, and
// the affected variable omitted. It never propagates past the Source.
type ModelLoadError struct {
	Model    string
	Variable string
	Err      error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q variable %q: %v", e.Model, e.Variable, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }
