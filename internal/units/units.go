// Package units parses physical unit expressions and converts values
// between compatible units.
//
// Expressions are products and quotients of symbols with optional integer
// powers, e.g. "N*m", "ft*lbf", "kg*m/s**2" or "(m/s)**2". Dimensional
// analysis uses gonum's unit dimensions, so "ft*lbf" and "N*m" are
// compatible and "m" and "s" are not.
package units

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/unit"
)

var (
	// ErrUnknownUnit is returned for a symbol missing from the table.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrIncompatible is returned when two units have different dimensions.
	ErrIncompatible = errors.New("incompatible units")
	// ErrSyntax is returned for a malformed unit expression.
	ErrSyntax = errors.New("invalid unit expression")
)

// Quantity is a parsed unit expression.
type Quantity struct {
	expr   string
	scale  float64
	offset float64
	dims   *unit.Unit
}

// Expr returns the expression the quantity was parsed from.
func (q *Quantity) Expr() string { return q.expr }

// Scale returns the factor that converts a value in q to SI.
func (q *Quantity) Scale() float64 { return q.scale }

// Offset returns the additive offset applied before scaling to SI.
// It is non-zero only for absolute temperature scales.
func (q *Quantity) Offset() float64 { return q.offset }

// Dimensions returns the physical dimensions of q.
func (q *Quantity) Dimensions() unit.Dimensions { return q.dims.Dimensions() }

// Compatible reports whether q and o measure the same physical dimension.
func (q *Quantity) Compatible(o *Quantity) bool {
	return unit.DimensionsMatch(q.dims, o.dims)
}

func (q *Quantity) String() string {
	return fmt.Sprintf("%s (%g SI, %v)", q.expr, q.scale, q.dims.Dimensions())
}

func (q *Quantity) mul(o *Quantity) *Quantity {
	return &Quantity{scale: q.scale * o.scale, dims: q.dims.Copy().Mul(o.dims)}
}

func (q *Quantity) div(o *Quantity) *Quantity {
	return &Quantity{scale: q.scale / o.scale, dims: q.dims.Copy().Div(o.dims)}
}

func (q *Quantity) pow(n int) *Quantity {
	out := dimensionless()
	base := q
	if n < 0 {
		base = dimensionless().div(q)
		n = -n
	}
	for ; n > 0; n-- {
		out = out.mul(base)
	}
	return out
}

func dimensionless() *Quantity {
	return &Quantity{scale: 1, dims: unit.New(1, unit.Dimensions{})}
}

var cache sync.Map // string -> *Quantity

// Parse parses a unit expression. Results are cached; the returned
// Quantity must not be modified.
func Parse(expr string) (*Quantity, error) {
	if q, ok := cache.Load(expr); ok {
		return q.(*Quantity), nil
	}
	q, err := newParser(expr).parse()
	if err != nil {
		return nil, err
	}
	q.expr = expr
	cache.Store(expr, q)
	return q, nil
}

// Compatible reports whether a and b parse to the same dimensions.
// Unparseable expressions are never compatible.
func Compatible(a, b string) bool {
	qa, err := Parse(a)
	if err != nil {
		return false
	}
	qb, err := Parse(b)
	if err != nil {
		return false
	}
	return qa.Compatible(qb)
}

// Factors returns scale and offset such that a value v in from converts to
// (v + offset) * scale in to.
func Factors(from, to string) (scale, offset float64, err error) {
	qf, err := Parse(from)
	if err != nil {
		return 0, 0, err
	}
	qt, err := Parse(to)
	if err != nil {
		return 0, 0, err
	}
	if !qf.Compatible(qt) {
		return 0, 0, errors.Wrapf(ErrIncompatible, "%q (%v) and %q (%v)",
			from, qf.Dimensions(), to, qt.Dimensions())
	}
	scale = qf.scale / qt.scale
	offset = qf.offset - qt.offset*qt.scale/qf.scale
	return scale, offset, nil
}

// Convert returns values expressed in from converted to to. An empty unit
// on either side means the values carry no units and are returned as a
// copy.
func Convert(values []float64, from, to string) ([]float64, error) {
	out := make([]float64, len(values))
	if from == "" || to == "" || from == to {
		copy(out, values)
		return out, nil
	}
	scale, offset, err := Factors(from, to)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		out[i] = (v + offset) * scale
	}
	return out, nil
}

// ConvertValue converts a single value.
func ConvertValue(v float64, from, to string) (float64, error) {
	out, err := Convert([]float64{v}, from, to)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}
