// Package mvp implements MatrixVectorProductComp, a model component that
// computes batched matrix-vector products b[k] = A[k] x[k] together with
// their analytic partial derivatives.
//
// One component may carry several products. Products may share a matrix or
// a vector input, in which case they must agree on its batch size, shape
// and units. Declarations are only validated by Setup.
package mvp

import (
	"github.com/rs/zerolog"

	"graphmdo/internal/model"
)

// Product is one declared matrix-vector product.
type Product struct {
	MatrixName string
	VectorName string
	OutputName string

	// BatchSize is the number of independent (matrix, vector) pairs.
	BatchSize int
	Rows      int
	Cols      int

	MatrixUnits string
	VectorUnits string
	OutputUnits string
}

// MatrixShape is (batch, rows, cols).
func (p Product) MatrixShape() []int { return []int{p.BatchSize, p.Rows, p.Cols} }

// VectorShape is (batch, cols).
func (p Product) VectorShape() []int { return []int{p.BatchSize, p.Cols} }

// OutputShape is (batch, rows).
func (p Product) OutputShape() []int { return []int{p.BatchSize, p.Rows} }

type settings struct {
	product  Product
	batchSet bool
	shapeSet bool
	logger   zerolog.Logger
	engine   Engine
}

// Option configures the default product of New, or an extra product of
// AddProduct. WithLogger and WithEngine only apply to New.
type Option func(*settings)

// WithMatrixName renames the default matrix input (A).
func WithMatrixName(name string) Option {
	return func(s *settings) { s.product.MatrixName = name }
}

// WithVectorName renames the default vector input (x).
func WithVectorName(name string) Option {
	return func(s *settings) { s.product.VectorName = name }
}

// WithOutputName renames the default output (b).
func WithOutputName(name string) Option {
	return func(s *settings) { s.product.OutputName = name }
}

// WithBatchSize sets the number of products computed per evaluation.
func WithBatchSize(n int) Option {
	return func(s *settings) {
		s.product.BatchSize = n
		s.batchSet = true
	}
}

// WithShape sets the matrix shape; the vector length follows cols.
func WithShape(rows, cols int) Option {
	return func(s *settings) {
		s.product.Rows, s.product.Cols = rows, cols
		s.shapeSet = true
	}
}

// WithMatrixUnits tags the matrix input with units.
func WithMatrixUnits(u string) Option {
	return func(s *settings) { s.product.MatrixUnits = u }
}

// WithVectorUnits tags the vector input with units.
func WithVectorUnits(u string) Option {
	return func(s *settings) { s.product.VectorUnits = u }
}

// WithOutputUnits tags the output with units.
func WithOutputUnits(u string) Option {
	return func(s *settings) { s.product.OutputUnits = u }
}

// WithLogger sets the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithEngine replaces the evaluation backend.
func WithEngine(e Engine) Option {
	return func(s *settings) { s.engine = e }
}

type declaration struct {
	Product
	batchSet bool
	shapeSet bool
}

// resolved is a validated product with the indices of its slots.
type resolved struct {
	Product
	matrix, vector, output int
	dMatrix, dVector       *model.Partial
}

// Comp is the batched matrix-vector product component.
type Comp struct {
	log    zerolog.Logger
	engine Engine
	decls  []declaration

	layout
}

var _ model.Component = (*Comp)(nil)

// New returns a component with its default product declared: b = A x with a
// batch size of 1 and a 3x3 matrix, unless overridden by opts.
func New(opts ...Option) *Comp {
	s := settings{
		product: Product{
			MatrixName: "A",
			VectorName: "x",
			OutputName: "b",
			BatchSize:  1,
			Rows:       3,
			Cols:       3,
		},
		logger: zerolog.Nop(),
		engine: DenseEngine{},
	}
	for _, o := range opts {
		o(&s)
	}
	return &Comp{
		log:    s.logger,
		engine: s.engine,
		decls:  []declaration{{Product: s.product, batchSet: true, shapeSet: true}},
	}
}

// AddProduct declares output = matrix * vector. Batch size and shape
// default to those of the default product; units default to none.
func (c *Comp) AddProduct(matrix, vector, output string, opts ...Option) {
	s := settings{product: Product{MatrixName: matrix, VectorName: vector, OutputName: output}}
	for _, o := range opts {
		o(&s)
	}
	c.decls = append(c.decls, declaration{Product: s.product, batchSet: s.batchSet, shapeSet: s.shapeSet})
}

// Label identifies the component in error messages.
func (c *Comp) Label() string { return c.label }

// Products returns the validated products in declaration order.
func (c *Comp) Products() []Product {
	out := make([]Product, len(c.products))
	for i, p := range c.products {
		out[i] = p.Product
	}
	return out
}

// Inputs returns the matrix and vector slots in first-use order.
func (c *Comp) Inputs() []model.Variable { return c.inputs }

// Outputs returns one slot per product.
func (c *Comp) Outputs() []model.Variable { return c.outputs }

// Partials returns the Jacobian blocks, two per product.
func (c *Comp) Partials() []*model.Partial { return c.partials }
