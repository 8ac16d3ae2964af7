package mvp

import (
	"gonum.org/v1/gonum/mat"
)

// Engine computes dst[k] = a[k] * x[k] for every batch element k. a is
// (batch, rows, cols), x is (batch, cols) and dst is (batch, rows), all
// flattened in row-major order.
type Engine interface {
	MatVec(dst, a, x []float64, batch, rows, cols int) error
}

// DenseEngine multiplies each batch element with gonum.
type DenseEngine struct{}

// MatVec implements Engine.
func (DenseEngine) MatVec(dst, a, x []float64, batch, rows, cols int) error {
	mn := rows * cols
	for k := 0; k < batch; k++ {
		ak := mat.NewDense(rows, cols, a[k*mn:(k+1)*mn])
		xk := mat.NewVecDense(cols, x[k*cols:(k+1)*cols])
		bk := mat.NewVecDense(rows, dst[k*rows:(k+1)*rows])
		bk.MulVec(ak, xk)
	}
	return nil
}

// Compute writes every product's output from the current inputs. inputs
// and outputs are indexed like Inputs and Outputs.
func (c *Comp) Compute(inputs, outputs [][]float64) error {
	for _, p := range c.products {
		err := c.engine.MatVec(outputs[p.output], inputs[p.matrix], inputs[p.vector], p.BatchSize, p.Rows, p.Cols)
		if err != nil {
			return err
		}
	}
	return nil
}
