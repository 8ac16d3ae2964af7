package mvp

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDuplicateOutput: two products write the same output.
	ErrDuplicateOutput = errors.New("duplicate output")
	// ErrShapeConflict: two products disagree on the shape of a shared input.
	ErrShapeConflict = errors.New("shape conflict")
	// ErrUnitsConflict: two products disagree on the units of a shared input.
	ErrUnitsConflict = errors.New("units conflict")
	// ErrNameCollision: a name is used in two incompatible roles.
	ErrNameCollision = errors.New("name collision")
	// ErrInvalidShape: a non-positive batch size or dimension.
	ErrInvalidShape = errors.New("invalid shape")
)

// DeclError is a declaration error found by Setup. Its message carries the
// component label; Kind is one of the sentinel errors above.
type DeclError struct {
	Kind error
	msg  string
}

func (e *DeclError) Error() string { return e.msg }

func (e *DeclError) Unwrap() error { return e.Kind }

func (l *layout) declErrorf(kind error, format string, args ...any) error {
	return &DeclError{Kind: kind, msg: l.label + ": " + fmt.Sprintf(format, args...)}
}
