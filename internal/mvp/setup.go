package mvp

import (
	"slices"

	"graphmdo/internal/model"
)

type role int

const (
	roleMatrix role = iota
	roleVector
)

func (r role) String() string {
	if r == roleMatrix {
		return "matrix"
	}
	return "vector"
}

// layout is the validated variable table built by Setup.
type layout struct {
	label    string
	products []resolved
	inputs   []model.Variable
	outputs  []model.Variable
	partials []*model.Partial
}

// Setup validates every declared product and allocates the input, output
// and Jacobian slots. pathname is the component's name in its model and is
// used in error messages. Setup rebuilds its state from the declarations on
// every call; on error the component keeps its previous state.
func (c *Comp) Setup(pathname string) error {
	l := &layout{label: "MatrixVectorProductComp (" + pathname + ")"}
	if err := c.build(l); err != nil {
		return err
	}
	c.layout = *l
	return nil
}

func (c *Comp) build(l *layout) error {
	def := c.decls[0].Product
	inIdx := make(map[string]int)
	inRole := make(map[string]role)
	outIdx := make(map[string]int)

	for _, d := range c.decls {
		p := d.Product
		if !d.batchSet {
			p.BatchSize = def.BatchSize
		}
		if !d.shapeSet {
			p.Rows, p.Cols = def.Rows, def.Cols
		}
		if p.BatchSize <= 0 || p.Rows <= 0 || p.Cols <= 0 {
			return l.declErrorf(ErrInvalidShape, "Invalid shape %s specified for matrix '%s'.",
				model.ShapeString(p.MatrixShape()), p.MatrixName)
		}
		if p.MatrixName == p.VectorName {
			return l.declErrorf(ErrNameCollision, "'%s' is used as both the matrix and the vector of output '%s'.",
				p.MatrixName, p.OutputName)
		}
		if _, ok := outIdx[p.OutputName]; ok {
			return l.declErrorf(ErrDuplicateOutput, "Multiple definition of output '%s'.", p.OutputName)
		}

		r := resolved{Product: p}
		var err error
		if r.matrix, err = l.declareInput(inIdx, inRole, roleMatrix, p.MatrixName, p.MatrixShape(), p.MatrixUnits); err != nil {
			return err
		}
		if r.vector, err = l.declareInput(inIdx, inRole, roleVector, p.VectorName, p.VectorShape(), p.VectorUnits); err != nil {
			return err
		}

		r.output = len(l.outputs)
		outIdx[p.OutputName] = r.output
		l.outputs = append(l.outputs, model.Variable{Name: p.OutputName, Shape: p.OutputShape(), Units: p.OutputUnits})

		r.dMatrix, r.dVector = sparsity(r)
		l.partials = append(l.partials, r.dMatrix, r.dVector)
		l.products = append(l.products, r)

		c.log.Debug().
			Str("component", l.label).
			Str("output", p.OutputName).
			Str("matrix", p.MatrixName).
			Str("vector", p.VectorName).
			Ints("shape", p.MatrixShape()).
			Msg("declared product")
	}

	for name := range outIdx {
		if _, ok := inIdx[name]; ok {
			return l.declErrorf(ErrNameCollision, "'%s' is declared as both an input and an output.", name)
		}
	}
	return nil
}

// declareInput returns the slot index of a matrix or vector input,
// allocating it on first use and checking shape, then units, on reuse.
func (l *layout) declareInput(idx map[string]int, roles map[string]role, rl role, name string, shape []int, units string) (int, error) {
	i, ok := idx[name]
	if !ok {
		i = len(l.inputs)
		idx[name] = i
		roles[name] = rl
		l.inputs = append(l.inputs, model.Variable{Name: name, Shape: shape, Units: units})
		return i, nil
	}
	if roles[name] != rl {
		return 0, l.declErrorf(ErrNameCollision, "'%s' is used as both a %s and a %s.", name, roles[name], rl)
	}
	prev := l.inputs[i]
	if !slices.Equal(prev.Shape, shape) {
		return 0, l.declErrorf(ErrShapeConflict, "Conflicting shapes specified for %s '%s', %s and %s.",
			rl, name, model.ShapeString(prev.Shape), model.ShapeString(shape))
	}
	if prev.Units != units {
		return 0, l.declErrorf(ErrUnitsConflict, "Conflicting units specified for %s '%s', '%s' and '%s'.",
			rl, name, model.UnitsLabel(prev.Units), model.UnitsLabel(units))
	}
	return i, nil
}
