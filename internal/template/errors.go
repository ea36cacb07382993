package template

import (
	"errors"
	"fmt"
)

// ErrNoTags is returned when a structurally valid document contains zero
// placeholder tags in any candidate part. Distinct from BadInputError: the
// archive parsed fine, it is just not usable as a template.
var ErrNoTags = errors.New("document contains no placeholder tags")

// BadInputError marks client-side input problems: bytes that do not open as
// a document archive, or a document missing its main body part.
type BadInputError struct {
	Reason string
	Err    error
}

func (e *BadInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *BadInputError) Unwrap() error {
	return e.Err
}

// IsBadInput reports whether err is a BadInputError anywhere in its chain.
func IsBadInput(err error) bool {
	var bie *BadInputError
	return errors.As(err, &bie)
}

// RenderError marks a failure inside the render stage. Stage names the step
// that failed so the surfaced message stays specific.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
