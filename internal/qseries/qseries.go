// Package qseries is the reference algebra backend: exact rational Fourier
// coefficient tables for degree-two expansions, indexed over the
// semi-definite cone up to a precision bound. It realizes generator
// combinations, differential-bracket kernels, Hecke operators and exact
// division, all over synthetic generator tables with the structure the
// construction graph relies on. A Backend instance owns its generator cache;
// there is no process-wide state.
package qseries

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"siegelcore/pkg/algebra"
)

// Backend implements algebra.Backend. The zero value is not usable; call New.
type Backend struct {
	mu   sync.RWMutex
	gens map[genKey]*form
}

// New returns a backend with an empty generator cache. The cache lives as
// long as the backend and is safe for concurrent use.
func New() *Backend {
	return &Backend{gens: make(map[genKey]*form)}
}

var _ algebra.Backend = (*Backend)(nil)

// asForm unwraps a form produced by this backend.
func asForm(f algebra.Form) (*form, error) {
	if ff, ok := f.(*form); ok {
		return ff, nil
	}
	return nil, fmt.Errorf("form %T was not produced by this backend: %w", f, algebra.ErrUnsupported)
}

// Scalar realizes a generator combination at prec: for each monomial the
// convolution product of its generator tables, scaled and summed.
func (b *Backend) Scalar(ctx context.Context, spec algebra.ScalarSpec, prec int) (algebra.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if prec < 0 {
		return nil, fmt.Errorf("negative precision %d: %w", prec, algebra.ErrUnsupported)
	}
	if len(spec.Terms) == 0 {
		return nil, fmt.Errorf("empty scalar combination: %w", algebra.ErrUnsupported)
	}
	weight := spec.Terms[0].Weight()
	for _, t := range spec.Terms {
		if len(t.Gens) == 0 {
			return nil, fmt.Errorf("monomial without generators: %w", algebra.ErrUnsupported)
		}
		if t.Coeff == nil {
			return nil, fmt.Errorf("monomial without coefficient: %w", algebra.ErrUnsupported)
		}
		if t.Weight() != weight {
			return nil, fmt.Errorf("monomial weights %d and %d in one combination: %w",
				weight, t.Weight(), algebra.ErrWeightMismatch)
		}
	}

	out := newForm(weight, 0, prec)
	for _, term := range spec.Terms {
		prod, err := b.generator(term.Gens[0], prec)
		if err != nil {
			return nil, err
		}
		w := term.Gens[0]
		for _, g := range term.Gens[1:] {
			next, err := b.generator(g, prec)
			if err != nil {
				return nil, err
			}
			w += g
			prod = conv(prod, next, w, prec)
		}
		for ix, v := range prod.coeffs {
			if v[0].Sign() == 0 {
				continue
			}
			tv := out.coeffs[ix]
			tv[0].Add(tv[0], new(big.Rat).Mul(term.Coeff, v[0]))
		}
	}
	return out, nil
}

// Add returns a+b at the smaller of the two precisions.
func (b *Backend) Add(x, y algebra.Form) (algebra.Form, error) {
	fx, err := asForm(x)
	if err != nil {
		return nil, err
	}
	fy, err := asForm(y)
	if err != nil {
		return nil, err
	}
	if fx.weight != fy.weight || fx.sym != fy.sym {
		return nil, fmt.Errorf("adding weight (%d, %d) to (%d, %d): %w",
			fx.weight, fx.sym, fy.weight, fy.sym, algebra.ErrWeightMismatch)
	}
	prec := fx.prec
	if fy.prec < prec {
		prec = fy.prec
	}
	out := newForm(fx.weight, fx.sym, prec)
	for ix, tv := range out.coeffs {
		if v, ok := fx.coeffs[ix]; ok {
			tv.AddInto(v)
		}
		if v, ok := fy.coeffs[ix]; ok {
			tv.AddInto(v)
		}
	}
	return out, nil
}

// ScalarMul scales every coefficient by c. A form from another backend
// yields nil, which the next operation rejects.
func (b *Backend) ScalarMul(c *big.Rat, f algebra.Form) algebra.Form {
	ff, err := asForm(f)
	if err != nil {
		return nil
	}
	out := ff.clone()
	for _, v := range out.coeffs {
		v.ScaleInto(c)
	}
	return out
}

// Mul multiplies two forms, at most one of them vector-valued, truncating to
// the smaller precision.
func (b *Backend) Mul(ctx context.Context, x, y algebra.Form) (algebra.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fx, err := asForm(x)
	if err != nil {
		return nil, err
	}
	fy, err := asForm(y)
	if err != nil {
		return nil, err
	}
	if fx.sym > 0 && fy.sym > 0 {
		return nil, fmt.Errorf("product of two vector-valued forms: %w", algebra.ErrUnsupported)
	}
	prec := fx.prec
	if fy.prec < prec {
		prec = fy.prec
	}
	weight := fx.weight + fy.weight
	switch {
	case fx.sym == 0 && fy.sym == 0:
		return conv(fx, fy, weight, prec), nil
	case fx.sym == 0:
		return convVec(fx, fy, weight, prec), nil
	default:
		return convVec(fy, fx, weight, prec), nil
	}
}

// Downsample restricts f to a smaller cone.
func (b *Backend) Downsample(f algebra.Form, prec int) (algebra.Form, error) {
	ff, err := asForm(f)
	if err != nil {
		return nil, err
	}
	if prec < 0 {
		return nil, fmt.Errorf("negative precision %d: %w", prec, algebra.ErrUnsupported)
	}
	if prec > ff.prec {
		return nil, fmt.Errorf("form carries precision %d, cannot extend to %d: %w",
			ff.prec, prec, algebra.ErrInsufficientPrecision)
	}
	return ff.restrict(prec), nil
}

// Indices enumerates the cone of prec in (N, R, M) order.
func (b *Backend) Indices(prec int) []algebra.Index {
	return coneIndices(prec)
}
