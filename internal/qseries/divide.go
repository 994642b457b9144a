package qseries

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"siegelcore/pkg/algebra"
)

// Divide solves q*den = num for q on the cone of prec, component-wise for
// vector-valued numerators. Indices are processed by total degree N+M; every
// proper splitting strictly lowers the degree, so each coefficient of q is
// determined by earlier ones. The solve needs an invertible constant term:
// a divisor vanishing at the origin is not invertible to any order and is
// reported as an inexact division.
func (b *Backend) Divide(ctx context.Context, num, den algebra.Form, prec int) (algebra.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fn, err := asForm(num)
	if err != nil {
		return nil, err
	}
	fd, err := asForm(den)
	if err != nil {
		return nil, err
	}
	if fd.sym != 0 {
		return nil, fmt.Errorf("divisor must be scalar, has symmetric weight %d: %w",
			fd.sym, algebra.ErrUnsupported)
	}
	if prec < 0 {
		return nil, fmt.Errorf("negative precision %d: %w", prec, algebra.ErrUnsupported)
	}
	if fn.prec < prec || fd.prec < prec {
		return nil, fmt.Errorf("division at precision %d over inputs at %d and %d: %w",
			prec, fn.prec, fd.prec, algebra.ErrInsufficientPrecision)
	}
	origin := algebra.Index{}
	unit := fd.scalarAt(origin)
	if unit.Sign() == 0 {
		return nil, fmt.Errorf("divisor of weight %d has no unit constant term: %w",
			fd.weight, algebra.ErrInexactDivision)
	}
	invUnit := new(big.Rat).Inv(unit)

	order := coneIndices(prec)
	sort.Slice(order, func(i, j int) bool {
		di, dj := order[i].N+order[i].M, order[j].N+order[j].M
		if di != dj {
			return di < dj
		}
		return order[i].Less(order[j])
	})

	dim := fn.sym + 1
	out := newForm(fn.weight-fd.weight, fn.sym, prec)
	for _, t := range order {
		acc := fn.coeffs[t].Clone()
		for t2, dv := range fd.coeffs {
			if t2 == origin || dv[0].Sign() == 0 {
				continue
			}
			t1 := algebra.Index{N: t.N - t2.N, R: t.R - t2.R, M: t.M - t2.M}
			if t1.N < 0 || t1.M < 0 || !t1.Valid() {
				continue
			}
			qv, ok := out.coeffs[t1]
			if !ok {
				continue
			}
			for i := 0; i < dim; i++ {
				acc[i].Sub(acc[i], new(big.Rat).Mul(qv[i], dv[0]))
			}
		}
		tv := out.coeffs[t]
		for i := 0; i < dim; i++ {
			tv[i].Mul(acc[i], invUnit)
		}
	}
	return out, nil
}
