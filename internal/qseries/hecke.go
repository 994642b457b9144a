package qseries

import (
	"context"
	"fmt"
	"math/big"

	"siegelcore/pkg/algebra"
)

// Hecke applies the index-m operator to f, producing a table at prec. The
// index must be a prime or the square of a prime; f must carry precision
// m*prec, since the coefficient formulas read indices scaled by up to m.
func (b *Backend) Hecke(ctx context.Context, f algebra.Form, m, prec int) (algebra.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ff, err := asForm(f)
	if err != nil {
		return nil, err
	}
	if prec < 0 {
		return nil, fmt.Errorf("negative precision %d: %w", prec, algebra.ErrUnsupported)
	}
	p, i, err := primePowerSplit(m)
	if err != nil {
		return nil, err
	}
	if ff.prec < m*prec {
		return nil, fmt.Errorf("operator index %d at precision %d needs input precision %d, form carries %d: %w",
			m, prec, m*prec, ff.prec, algebra.ErrInsufficientPrecision)
	}
	if ff.sym > 0 {
		return heckeVector(ff, p, i, prec), nil
	}
	if i == 1 {
		return heckeTP(ff, p, prec), nil
	}
	return heckeTP2(ff, p, prec), nil
}

// primePowerSplit factors m as p^i with p prime and i in {1, 2}.
func primePowerSplit(m int) (p, i int, err error) {
	if m < 2 {
		return 0, 0, fmt.Errorf("operator index %d must be at least 2: %w", m, algebra.ErrUnsupported)
	}
	for d := 2; d*d <= m; d++ {
		if m%d != 0 {
			continue
		}
		if m == d*d {
			return d, 2, nil
		}
		return 0, 0, fmt.Errorf("operator index %d is neither a prime nor the square of a prime: %w",
			m, algebra.ErrUnsupported)
	}
	return m, 1, nil
}

// transformIndex conjugates the half-integral matrix of t by g: the index of
// g^T * T * g for T = [[N, R/2], [R/2, M]].
func transformIndex(t algebra.Index, g [2][2]int) algebra.Index {
	a, bb := g[0][0], g[0][1]
	c, d := g[1][0], g[1][1]
	return algebra.Index{
		N: a*a*t.N + a*c*t.R + c*c*t.M,
		R: 2*a*bb*t.N + (a*d+bb*c)*t.R + 2*c*d*t.M,
		M: bb*bb*t.N + bb*d*t.R + d*d*t.M,
	}
}

func indexDivisibleBy(t algebra.Index, d int) bool {
	return t.N%d == 0 && t.R%d == 0 && t.M%d == 0
}

func scaleIndex(t algebra.Index, a int) algebra.Index {
	return algebra.Index{N: t.N * a, R: t.R * a, M: t.M * a}
}

func divIndex(t algebra.Index, a int) algebra.Index {
	return algebra.Index{N: t.N / a, R: t.R / a, M: t.M / a}
}

func ipow(base, exp int) int {
	out := 1
	for ; exp > 0; exp-- {
		out *= base
	}
	return out
}

// ratPow returns base^exp as a rational, with negative exponents inverted.
func ratPow(base, exp int) *big.Rat {
	neg := exp < 0
	if neg {
		exp = -exp
	}
	n := new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(exp)), nil)
	if neg {
		return new(big.Rat).SetFrac(big.NewInt(1), n)
	}
	return new(big.Rat).SetInt(n)
}

// doubleCosetReps returns integral representatives of the double cosets of
// diag(1, p^i) modulo the modular group acting on the right.
func doubleCosetReps(p, i int) [][2][2]int {
	if i == 0 {
		return [][2][2]int{{{1, 0}, {0, 1}}}
	}
	pi := ipow(p, i)
	var out [][2][2]int
	for u := 0; u < pi; u++ {
		out = append(out, [2][2]int{{1, 0}, {u, pi}})
	}
	for u := 0; u < ipow(p, i-1); u++ {
		out = append(out, [2][2]int{{p * u, pi}, {-1, 0}})
	}
	return out
}

// heckeTP evaluates the degree-two T(p) coefficient formula: the four-part
// sum over left cosets, with p-power weights 2k-3 and k-2.
func heckeTP(f *form, p, prec int) *form {
	k := f.weight
	out := newForm(k, 0, prec)
	w1 := ratPow(p, 2*k-3)
	w2 := ratPow(p, k-2)
	for t, tv := range out.coeffs {
		n, r, m := t.N, t.R, t.M
		acc := new(big.Rat)
		if n%p == 0 && r%p == 0 && m%p == 0 {
			acc.Add(acc, new(big.Rat).Mul(w1, f.scalarAt(algebra.Index{N: n / p, R: r / p, M: m / p})))
		}
		acc.Add(acc, f.scalarAt(algebra.Index{N: p * n, R: p * r, M: p * m}))
		if m%p == 0 {
			acc.Add(acc, new(big.Rat).Mul(w2, f.scalarAt(algebra.Index{N: m / p, R: -r, M: p * n})))
		}
		for u := 0; u < p; u++ {
			q := n + r*u + m*u*u
			if q%p != 0 {
				continue
			}
			acc.Add(acc, new(big.Rat).Mul(w2, f.scalarAt(algebra.Index{N: q / p, R: r + 2*u*m, M: p * m})))
		}
		tv[0].Set(acc)
	}
	return out
}

// heckeTP2 evaluates T(p^2) as the sum over triples (i1, i2, i3) with
// i1+i2+i3 = 2 of double-coset contributions.
func heckeTP2(f *form, p, prec int) *form {
	k := f.weight
	out := newForm(k, 0, prec)
	for t, tv := range out.coeffs {
		acc := new(big.Rat)
		for i1 := 0; i1 <= 2; i1++ {
			for i2 := 0; i1+i2 <= 2; i2++ {
				i3 := 2 - i1 - i2
				if !indexDivisibleBy(t, ipow(p, i3)) {
					continue
				}
				scale := ratPow(p, i2*(k-2)+i3*(2*k-3))
				sum := new(big.Rat)
				div := ipow(p, i2+i3)
				for _, g := range doubleCosetReps(p, i2) {
					tg := transformIndex(t, g)
					if !indexDivisibleBy(tg, div) {
						continue
					}
					a := scaleIndex(divIndex(tg, div), ipow(p, i1))
					sum.Add(sum, f.scalarAt(a))
				}
				acc.Add(acc, new(big.Rat).Mul(scale, sum))
			}
		}
		tv[0].Set(acc)
	}
	return out
}

// heckeVector evaluates T(p^i) on a vector-valued table. Each admissible
// decomposition contributes the coefficient at the transformed index, moved
// through the symmetric-tensor action of the inverse transpose of the coset
// representative, weighted by p^(i*mu + beta - mu*alpha) for
// mu = 2k + sym - 3.
func heckeVector(f *form, p, i, prec int) *form {
	k, j := f.weight, f.sym
	mu := 2*k + j - 3
	out := newForm(k, j, prec)
	for t, tv := range out.coeffs {
		for al := 0; al <= i; al++ {
			for bt := 0; bt <= i-al; bt++ {
				gm := i - al - bt
				if !indexDivisibleBy(t, ipow(p, gm)) {
					continue
				}
				weight := ratPow(p, i*mu+bt-mu*al)
				div := ipow(p, bt+gm)
				for _, g := range doubleCosetReps(p, bt) {
					tg := transformIndex(t, g)
					if !indexDivisibleBy(tg, div) {
						continue
					}
					a := scaleIndex(divIndex(tg, div), ipow(p, al))
					v, ok := f.coeffs[a]
					if !ok || v.IsZero() {
						continue
					}
					acted := symAction(invTranspose(g), v, k, j)
					for s := range tv {
						tv[s].Add(tv[s], new(big.Rat).Mul(weight, acted[s]))
					}
				}
			}
		}
	}
	return out
}

// invTranspose returns the inverse transpose of an integral coset
// representative as a rational matrix.
func invTranspose(g [2][2]int) [2][2]*big.Rat {
	a, bb := g[0][0], g[0][1]
	c, d := g[1][0], g[1][1]
	det := int64(a*d - bb*c)
	mk := func(num int) *big.Rat {
		return new(big.Rat).SetFrac(big.NewInt(int64(num)), big.NewInt(det))
	}
	return [2][2]*big.Rat{
		{mk(d), mk(-c)},
		{mk(-bb), mk(a)},
	}
}

// symAction applies a rational matrix to a symmetric-tensor coefficient of
// weight k and symmetric weight j: substitute the matrix into the degree-j
// binary form the vector represents and rescale by det^k.
func symAction(mt [2][2]*big.Rat, v algebra.Vec, k, j int) algebra.Vec {
	a, bb := mt[0][0], mt[0][1]
	c, d := mt[1][0], mt[1][1]
	det := new(big.Rat).Sub(new(big.Rat).Mul(a, d), new(big.Rat).Mul(bb, c))
	dt := ratExp(det, k)

	out := algebra.NewVec(j + 1)
	for i, vi := range v {
		if vi.Sign() == 0 {
			continue
		}
		prod := polyMul(linPow(a, c, j-i), linPow(bb, d, i))
		for s := range out {
			out[s].Add(out[s], new(big.Rat).Mul(vi, prod[s]))
		}
	}
	out.ScaleInto(dt)
	return out
}

// linPow expands (x*u1 + y*u2)^e; slot s carries the coefficient of
// u1^(e-s) u2^s.
func linPow(x, y *big.Rat, e int) []*big.Rat {
	out := make([]*big.Rat, e+1)
	for s := 0; s <= e; s++ {
		binom := new(big.Int).Binomial(int64(e), int64(s))
		c := new(big.Rat).SetInt(binom)
		c.Mul(c, ratExp(x, e-s))
		c.Mul(c, ratExp(y, s))
		out[s] = c
	}
	return out
}

// polyMul convolves coefficient slices of binary forms.
func polyMul(a, b []*big.Rat) []*big.Rat {
	out := make([]*big.Rat, len(a)+len(b)-1)
	for i := range out {
		out[i] = new(big.Rat)
	}
	for i, ai := range a {
		if ai.Sign() == 0 {
			continue
		}
		for s, bs := range b {
			out[i+s].Add(out[i+s], new(big.Rat).Mul(ai, bs))
		}
	}
	return out
}

// ratExp raises a rational to a non-negative integer power.
func ratExp(x *big.Rat, e int) *big.Rat {
	out := new(big.Rat).SetInt64(1)
	for ; e > 0; e-- {
		out.Mul(out, x)
	}
	return out
}
