// Package graph evaluates batched matrix-vector products on a gorgonia
// expression graph.
package graph

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

type signature struct {
	batch, rows, cols int
}

// program is one compiled b = A x graph for a fixed signature. The matrix
// node is (batch, rows, cols) and the vector node (batch, cols, 1), so the
// product is a single BatchedMatMul.
type program struct {
	g       *gorgonia.ExprGraph
	a, x, b *gorgonia.Node
	vm      gorgonia.VM
}

func compile(sig signature) (*program, error) {
	g := gorgonia.NewGraph()
	a := gorgonia.NewTensor(g, tensor.Float64, 3,
		gorgonia.WithShape(sig.batch, sig.rows, sig.cols),
		gorgonia.WithName("A"))
	x := gorgonia.NewTensor(g, tensor.Float64, 3,
		gorgonia.WithShape(sig.batch, sig.cols, 1),
		gorgonia.WithName("x"))

	b, err := gorgonia.BatchedMatMul(a, x)
	if err != nil {
		return nil, errors.Wrapf(err, "batched matmul %v", sig)
	}
	return &program{g: g, a: a, x: x, b: b, vm: gorgonia.NewTapeMachine(g)}, nil
}

func (p *program) run(dst, a, x []float64, sig signature) error {
	defer p.vm.Reset()

	at := tensor.New(tensor.WithShape(sig.batch, sig.rows, sig.cols), tensor.WithBacking(a))
	xt := tensor.New(tensor.WithShape(sig.batch, sig.cols, 1), tensor.WithBacking(x))
	if err := gorgonia.Let(p.a, at); err != nil {
		return errors.Wrap(err, "bind matrix")
	}
	if err := gorgonia.Let(p.x, xt); err != nil {
		return errors.Wrap(err, "bind vector")
	}
	if err := p.vm.RunAll(); err != nil {
		return errors.Wrap(err, "run graph")
	}

	switch data := p.b.Value().Data().(type) {
	case []float64:
		copy(dst, data)
	case float64:
		dst[0] = data
	default:
		return errors.Errorf("unexpected output type %T", data)
	}
	return nil
}

// Engine is an mvp.Engine backed by gorgonia. It compiles one graph per
// (batch, rows, cols) signature and reuses it. Calls are serialised.
type Engine struct {
	log zerolog.Logger

	mu       sync.Mutex
	programs map[signature]*program
}

// NewEngine returns an empty engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log, programs: make(map[signature]*program)}
}

// MatVec implements mvp.Engine.
func (e *Engine) MatVec(dst, a, x []float64, batch, rows, cols int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sig := signature{batch, rows, cols}
	p, ok := e.programs[sig]
	if !ok {
		var err error
		if p, err = compile(sig); err != nil {
			return err
		}
		e.programs[sig] = p
		e.log.Debug().Int("batch", batch).Int("rows", rows).Int("cols", cols).Msg("compiled product graph")
	}
	return p.run(dst, a, x, sig)
}

// Close releases the tape machines of every compiled graph.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var first error
	for sig, p := range e.programs {
		if err := p.vm.Close(); err != nil && first == nil {
			first = err
		}
		delete(e.programs, sig)
	}
	return first
}
