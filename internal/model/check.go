package model

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PartialCheck compares one analytic Jacobian block with its finite
// difference estimate.
type PartialCheck struct {
	Of, Wrt string
	Forward *mat.Dense
	FD      *mat.Dense
	AbsErr  float64
	RelErr  float64
}

// CheckPartials evaluates every component's analytic partials at the
// current inputs and compares them with central finite differences of
// Compute. Results are keyed by component name, in Partials order.
//
// Components are checked concurrently; each check works on private copies
// of its inputs and outputs.
func (p *Problem) CheckPartials(ctx context.Context) (map[string][]PartialCheck, error) {
	if !p.ready {
		return nil, ErrNotSetup
	}
	for _, e := range p.entries {
		if err := e.transfer(); err != nil {
			return nil, err
		}
	}

	results := make([][]PartialCheck, len(p.entries))
	g, ctx := errgroup.WithContext(ctx)
	for i, e := range p.entries {
		g.Go(func() error {
			checks, err := e.checkPartials(ctx)
			if err != nil {
				return errors.Wrapf(err, "check partials of %q", e.name)
			}
			results[i] = checks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]PartialCheck, len(p.entries))
	for i, e := range p.entries {
		out[e.name] = results[i]
		for _, c := range results[i] {
			p.log.Debug().
				Str("component", e.name).
				Str("of", c.Of).
				Str("wrt", c.Wrt).
				Float64("abs_err", c.AbsErr).
				Float64("rel_err", c.RelErr).
				Msg("checked partial")
		}
	}
	return out, nil
}

func (e *entry) checkPartials(ctx context.Context) ([]PartialCheck, error) {
	in := make([][]float64, len(e.in))
	for i, s := range e.in {
		in[i] = append([]float64(nil), s.data...)
	}
	if err := e.comp.ComputePartials(in); err != nil {
		return nil, err
	}

	var checks []PartialCheck
	for _, part := range e.comp.Partials() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		of, wrt := e.out[part.Of], e.in[part.Wrt]
		nOf, nWrt := of.v.Size(), wrt.v.Size()

		var computeErr error
		scratch := make([][]float64, len(e.out))
		for i, s := range e.out {
			scratch[i] = make([]float64, len(s.data))
		}
		work := make([][]float64, len(in))
		f := func(y, x []float64) {
			copy(work, in)
			work[part.Wrt] = x
			if err := e.comp.Compute(work, scratch); err != nil && computeErr == nil {
				computeErr = err
			}
			copy(y, scratch[part.Of])
		}
		approx := mat.NewDense(nOf, nWrt, nil)
		fd.Jacobian(approx, f, in[part.Wrt], &fd.JacobianSettings{Formula: fd.Central})
		if computeErr != nil {
			return nil, computeErr
		}

		fwd := part.Dense(nOf, nWrt)
		a, b := fwd.RawMatrix().Data, approx.RawMatrix().Data
		c := PartialCheck{
			Of:      of.v.Name,
			Wrt:     wrt.v.Name,
			Forward: fwd,
			FD:      approx,
			AbsErr:  floats.Distance(a, b, 2),
		}
		if n := floats.Norm(b, 2); n > 0 {
			c.RelErr = c.AbsErr / n
		} else {
			c.RelErr = c.AbsErr
		}
		checks = append(checks, c)
	}
	return checks, nil
}
