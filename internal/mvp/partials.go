package mvp

import "graphmdo/internal/model"

// sparsity builds the fixed coordinate pattern of both Jacobian blocks of a
// product. Batch element k of the output only depends on batch element k of
// the inputs, so each block is block diagonal.
//
// Both blocks have one nonzero per matrix entry (k, i, j), stored at the
// entry's flat index:
//
//	db/dA: row k*r+i, col k*r*c+i*c+j, value x[k, j]
//	db/dx: row k*r+i, col k*c+j,       value A[k, i, j]
func sparsity(p resolved) (dMatrix, dVector *model.Partial) {
	n, r, c := p.BatchSize, p.Rows, p.Cols
	nnz := n * r * c
	dMatrix = &model.Partial{
		Of:     p.output,
		Wrt:    p.matrix,
		Rows:   make([]int, nnz),
		Cols:   make([]int, nnz),
		Values: make([]float64, nnz),
	}
	dVector = &model.Partial{
		Of:     p.output,
		Wrt:    p.vector,
		Rows:   make([]int, nnz),
		Cols:   make([]int, nnz),
		Values: make([]float64, nnz),
	}
	for k := 0; k < n; k++ {
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				e := k*r*c + i*c + j
				row := k*r + i
				dMatrix.Rows[e], dMatrix.Cols[e] = row, e
				dVector.Rows[e], dVector.Cols[e] = row, k*c+j
			}
		}
	}
	return dMatrix, dVector
}

// ComputePartials refreshes the values of every Jacobian block from the
// current inputs. It assumes Setup succeeded.
func (c *Comp) ComputePartials(inputs [][]float64) error {
	for _, p := range c.products {
		a, x := inputs[p.matrix], inputs[p.vector]
		copy(p.dVector.Values, a)

		vals := p.dMatrix.Values
		for k := 0; k < p.BatchSize; k++ {
			xk := x[k*p.Cols : (k+1)*p.Cols]
			base := k * p.Rows * p.Cols
			for i := 0; i < p.Rows; i++ {
				copy(vals[base+i*p.Cols:base+(i+1)*p.Cols], xk)
			}
		}
	}
	return nil
}
