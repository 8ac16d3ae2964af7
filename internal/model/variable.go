package model

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Variable is a named, shaped and optionally unit-tagged slot of a
// component or a source.
type Variable struct {
	Name  string
	Shape []int
	Units string
}

// Size is the number of scalar entries in the variable.
func (v Variable) Size() int {
	n := 1
	for _, d := range v.Shape {
		n *= d
	}
	return n
}

// UnitsLabel renders the units the way declaration errors do: an absent
// unit is None.
func UnitsLabel(u string) string {
	if u == "" {
		return "None"
	}
	return u
}

// ShapeString renders a shape as a tuple, e.g. (1, 3, 3).
func ShapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Partial is one sparse Jacobian block d(output Of)/d(input Wrt) in
// coordinate form. Rows and Cols are fixed once the owning component is set
// up; only Values change between evaluations.
type Partial struct {
	Of, Wrt int
	Rows    []int
	Cols    []int
	Values  []float64
}

// Dense scatters the block into an nOf x nWrt gonum matrix.
func (p *Partial) Dense(nOf, nWrt int) *mat.Dense {
	d := mat.NewDense(nOf, nWrt, nil)
	for i, r := range p.Rows {
		d.Set(r, p.Cols[i], d.At(r, p.Cols[i])+p.Values[i])
	}
	return d
}

// Component is a computational node of a Problem.
//
// Setup is called once per Problem.Setup, before any other method. Compute
// and ComputePartials receive one slice per entry of Inputs (and Outputs),
// in the same order, and are never called concurrently on one instance.
type Component interface {
	Setup(pathname string) error
	Inputs() []Variable
	Outputs() []Variable
	Compute(inputs, outputs [][]float64) error
	Partials() []*Partial
	ComputePartials(inputs [][]float64) error
}
