package qseries

import (
	"math"
	"math/big"
	"sort"

	"siegelcore/pkg/algebra"
)

// form is a dense coefficient table over the semi-definite cone of its
// precision: every index with 0 <= N, M <= prec and R*R <= 4*N*M carries a
// vector of length sym+1. Tables are never mutated after they leave the
// backend; Coefficient clones on the way out.
type form struct {
	weight int
	sym    int
	prec   int
	coeffs map[algebra.Index]algebra.Vec
}

func (f *form) Precision() int { return f.prec }
func (f *form) Weight() int    { return f.weight }
func (f *form) SymWeight() int { return f.sym }

func (f *form) Coefficient(ix algebra.Index) (algebra.Vec, bool) {
	v, ok := f.coeffs[ix]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// newForm allocates a zero table over the full cone of prec.
func newForm(weight, sym, prec int) *form {
	f := &form{weight: weight, sym: sym, prec: prec, coeffs: make(map[algebra.Index]algebra.Vec)}
	dim := sym + 1
	for n := 0; n <= prec; n++ {
		for m := 0; m <= prec; m++ {
			bound := isqrt(4 * n * m)
			for r := -bound; r <= bound; r++ {
				f.coeffs[algebra.Index{N: n, R: r, M: m}] = algebra.NewVec(dim)
			}
		}
	}
	return f
}

func (f *form) clone() *form {
	out := &form{weight: f.weight, sym: f.sym, prec: f.prec, coeffs: make(map[algebra.Index]algebra.Vec, len(f.coeffs))}
	for ix, v := range f.coeffs {
		out.coeffs[ix] = v.Clone()
	}
	return out
}

// restrict copies the table down to a smaller cone.
func (f *form) restrict(prec int) *form {
	out := newForm(f.weight, f.sym, prec)
	for ix := range out.coeffs {
		if v, ok := f.coeffs[ix]; ok {
			out.coeffs[ix] = v.Clone()
		}
	}
	return out
}

// scalarAt reads the single component of a scalar table, zero when the index
// falls outside the cone.
func (f *form) scalarAt(ix algebra.Index) *big.Rat {
	if v, ok := f.coeffs[ix]; ok {
		return v[0]
	}
	return ratZero
}

var ratZero = new(big.Rat)

// isqrt returns the integer square root of x. The float seed is corrected so
// perfect squares land exactly.
func isqrt(x int) int {
	if x <= 0 {
		return 0
	}
	r := int(math.Sqrt(float64(x)))
	for r > 0 && r*r > x {
		r--
	}
	for (r+1)*(r+1) <= x {
		r++
	}
	return r
}

// coneIndices enumerates the cone of prec sorted by Index.Less.
func coneIndices(prec int) []algebra.Index {
	if prec < 0 {
		return nil
	}
	var out []algebra.Index
	for n := 0; n <= prec; n++ {
		for m := 0; m <= prec; m++ {
			bound := isqrt(4 * n * m)
			for r := -bound; r <= bound; r++ {
				out = append(out, algebra.Index{N: n, R: r, M: m})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// conv multiplies two scalar tables by Fourier convolution, truncated to
// prec. The sum of two cone indices stays in the cone, so every target slot
// exists.
func conv(a, b *form, weight, prec int) *form {
	out := newForm(weight, 0, prec)
	for t1, v1 := range a.coeffs {
		if t1.N > prec || t1.M > prec || v1[0].Sign() == 0 {
			continue
		}
		for t2, v2 := range b.coeffs {
			if v2[0].Sign() == 0 {
				continue
			}
			n, m := t1.N+t2.N, t1.M+t2.M
			if n > prec || m > prec {
				continue
			}
			t := algebra.Index{N: n, R: t1.R + t2.R, M: m}
			tv := out.coeffs[t]
			tv[0].Add(tv[0], new(big.Rat).Mul(v1[0], v2[0]))
		}
	}
	return out
}

// convVec multiplies a scalar table into a vector table component-wise.
func convVec(s, vec *form, weight, prec int) *form {
	out := newForm(weight, vec.sym, prec)
	for t1, v1 := range s.coeffs {
		if t1.N > prec || t1.M > prec || v1[0].Sign() == 0 {
			continue
		}
		for t2, v2 := range vec.coeffs {
			if v2.IsZero() {
				continue
			}
			n, m := t1.N+t2.N, t1.M+t2.M
			if n > prec || m > prec {
				continue
			}
			tv := out.coeffs[algebra.Index{N: n, R: t1.R + t2.R, M: m}]
			for i := range tv {
				tv[i].Add(tv[i], new(big.Rat).Mul(v1[0], v2[i]))
			}
		}
	}
	return out
}
