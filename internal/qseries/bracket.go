package qseries

import (
	"context"
	"fmt"
	"math/big"

	"siegelcore/pkg/algebra"
)

// Bracket applies the differential-bracket kernel selected by spec to scalar
// inputs. Pairs take increments 0 and 2, triples 1 and 3, quadruples 1 and 3
// with a kernel tag; the quadruple kernels compose the pair and triple ones
// with an extra scalar factor. All kernels act per coefficient splitting, so
// the output at an index depends only on input coefficients at or below it.
func (b *Backend) Bracket(ctx context.Context, spec algebra.BracketSpec, forms []algebra.Form, prec int) (algebra.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if prec < 0 {
		return nil, fmt.Errorf("negative precision %d: %w", prec, algebra.ErrUnsupported)
	}
	j := spec.SymWeight
	if j < 0 || j%2 != 0 {
		return nil, fmt.Errorf("bracket kernels need an even symmetric weight, got %d: %w",
			j, algebra.ErrUnsupported)
	}
	in := make([]*form, len(forms))
	weight := spec.Inc
	for i, f := range forms {
		ff, err := asForm(f)
		if err != nil {
			return nil, err
		}
		if ff.sym != 0 {
			return nil, fmt.Errorf("bracket input %d is vector-valued: %w", i, algebra.ErrUnsupported)
		}
		if ff.prec < prec {
			return nil, fmt.Errorf("bracket input %d carries precision %d, need %d: %w",
				i, ff.prec, prec, algebra.ErrInsufficientPrecision)
		}
		in[i] = ff
		weight += ff.weight
	}

	switch {
	case len(in) == 2 && spec.Inc == 0 && spec.Tag == "":
		return bracketPair(j, in[0], in[1], false, weight, prec), nil
	case len(in) == 2 && spec.Inc == 2 && spec.Tag == "":
		return bracketPair(j, in[0], in[1], true, weight, prec), nil
	case len(in) == 3 && spec.Inc == 1 && spec.Tag == "":
		return bracketTriple(j, in[0], in[1], in[2], false, weight, prec), nil
	case len(in) == 3 && spec.Inc == 3 && spec.Tag == "":
		return bracketTriple(j, in[0], in[1], in[2], true, weight, prec), nil
	case len(in) == 4 && (spec.Inc == 1 || spec.Inc == 3):
		return bracketQuadruple(j, spec.Inc, spec.Tag, in, weight, prec)
	default:
		return nil, fmt.Errorf("no bracket kernel for %d inputs, increment %d, tag %q: %w",
			len(in), spec.Inc, spec.Tag, algebra.ErrUnsupported)
	}
}

// bracketQuadruple builds the four-input kernels from the smaller ones. Tag
// "a" multiplies the third input into the triple bracket of the others; tag
// "b" multiplies it into the pair bracket and closes with the vector-valued
// bracket against the fourth.
func bracketQuadruple(j, inc int, tag string, in []*form, weight, prec int) (algebra.Form, error) {
	det3 := inc == 3
	f1, f2, f3, f4 := in[0], in[1], in[2], in[3]
	switch tag {
	case "a":
		t := bracketTriple(j, f1, f2, f4, det3, f1.weight+f2.weight+f4.weight+inc, prec)
		return convVec(f3, t, weight, prec), nil
	case "b":
		p := bracketPair(j, f1, f2, det3, f1.weight+f2.weight+inc-1, prec)
		pf := convVec(f3, p, p.weight+f3.weight, prec)
		return vecBracket(f4, pf, weight, prec), nil
	default:
		return nil, fmt.Errorf("no quadruple kernel for tag %q: %w", tag, algebra.ErrUnsupported)
	}
}

// quadOf reads the index as the coefficient triple of its quadratic form
// n*u1^2 + r*u1*u2 + m*u2^2.
func quadOf(t algebra.Index) [3]int {
	return [3]int{t.N, t.R, t.M}
}

// quadPow expands a quadratic form to the h-th power; slot s of the result
// carries the coefficient of u1^(2h-s) u2^s.
func quadPow(q [3]*big.Rat, h int) []*big.Rat {
	out := []*big.Rat{new(big.Rat).SetInt64(1)}
	for ; h > 0; h-- {
		out = polyMul(out, q[:])
	}
	return out
}

// satohBase is the first-order pair kernel wg*Q(t1) - wf*Q(t2).
func satohBase(wf int, t1 algebra.Index, wg int, t2 algebra.Index) [3]*big.Rat {
	q1, q2 := quadOf(t1), quadOf(t2)
	var out [3]*big.Rat
	for c := 0; c < 3; c++ {
		out[c] = new(big.Rat).SetInt64(int64(wg*q1[c] - wf*q2[c]))
	}
	return out
}

// polarPairing is the symmetric bilinear pairing of two quadratic forms,
// n1*m2 + n2*m1 - r1*r2/2.
func polarPairing(t1, t2 algebra.Index) *big.Rat {
	return new(big.Rat).SetFrac64(int64(2*t1.N*t2.M+2*t2.N*t1.M-t1.R*t2.R), 2)
}

func det3x3(t1, t2, t3 algebra.Index) int {
	return t1.N*(t2.R*t3.M-t3.R*t2.M) -
		t1.R*(t2.N*t3.M-t3.N*t2.M) +
		t1.M*(t2.N*t3.R-t3.N*t2.R)
}

// bracketPair evaluates the two-input kernel: per splitting t1+t2, the
// (j/2)-th power of the Satoh base, with the polar pairing as an extra
// factor for the determinant-squared variant.
func bracketPair(j int, f, g *form, det2 bool, weight, prec int) *form {
	out := newForm(weight, j, prec)
	h := j / 2
	for t1, v1 := range f.coeffs {
		if t1.N > prec || t1.M > prec || v1[0].Sign() == 0 {
			continue
		}
		for t2, v2 := range g.coeffs {
			if v2[0].Sign() == 0 {
				continue
			}
			n, m := t1.N+t2.N, t1.M+t2.M
			if n > prec || m > prec {
				continue
			}
			kernel := quadPow(satohBase(f.weight, t1, g.weight, t2), h)
			c := new(big.Rat).Mul(v1[0], v2[0])
			if det2 {
				c.Mul(c, polarPairing(t1, t2))
				if c.Sign() == 0 {
					continue
				}
			}
			tv := out.coeffs[algebra.Index{N: n, R: t1.R + t2.R, M: m}]
			for s := range tv {
				tv[s].Add(tv[s], new(big.Rat).Mul(c, kernel[s]))
			}
		}
	}
	return out
}

// bracketTriple evaluates the three-input kernels: the determinant of the
// index rows scales the (j/2)-th power of the weighted quadratic sum, with
// the polar pairing of the first two indices as the extra determinant-cubed
// factor.
func bracketTriple(j int, f, g, h *form, det3 bool, weight, prec int) *form {
	out := newForm(weight, j, prec)
	half := j / 2
	for t1, v1 := range f.coeffs {
		if t1.N > prec || t1.M > prec || v1[0].Sign() == 0 {
			continue
		}
		for t2, v2 := range g.coeffs {
			if v2[0].Sign() == 0 || t1.N+t2.N > prec || t1.M+t2.M > prec {
				continue
			}
			for t3, v3 := range h.coeffs {
				if v3[0].Sign() == 0 {
					continue
				}
				n, m := t1.N+t2.N+t3.N, t1.M+t2.M+t3.M
				if n > prec || m > prec {
					continue
				}
				d := det3x3(t1, t2, t3)
				if d == 0 {
					continue
				}
				c := new(big.Rat).Mul(v1[0], v2[0])
				c.Mul(c, v3[0])
				c.Mul(c, new(big.Rat).SetInt64(int64(d)))
				if det3 {
					c.Mul(c, polarPairing(t1, t2))
					if c.Sign() == 0 {
						continue
					}
				}
				kernel := quadPow(tripleBase(f.weight, t1, g.weight, t2, h.weight, t3), half)
				r := t1.R + t2.R + t3.R
				tv := out.coeffs[algebra.Index{N: n, R: r, M: m}]
				for s := range tv {
					tv[s].Add(tv[s], new(big.Rat).Mul(c, kernel[s]))
				}
			}
		}
	}
	return out
}

// tripleBase is the symmetric weighted sum of the three quadratic forms.
func tripleBase(w1 int, t1 algebra.Index, w2 int, t2 algebra.Index, w3 int, t3 algebra.Index) [3]*big.Rat {
	q1, q2, q3 := quadOf(t1), quadOf(t2), quadOf(t3)
	var out [3]*big.Rat
	for c := 0; c < 3; c++ {
		out[c] = new(big.Rat).SetInt64(int64(w2*w3*q1[c] + w1*w3*q2[c] + w1*w2*q3[c]))
	}
	return out
}

// vecBracket closes a scalar against a vector-valued form with the
// first-order discriminant kernel, raising the weight by one.
func vecBracket(f, vec *form, weight, prec int) *form {
	out := newForm(weight, vec.sym, prec)
	for t1, v1 := range f.coeffs {
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
			factor := int64(vec.weight*t1.Det4() - f.weight*t2.Det4())
			if factor == 0 {
				continue
			}
			c := new(big.Rat).Mul(v1[0], new(big.Rat).SetInt64(factor))
			tv := out.coeffs[algebra.Index{N: n, R: t1.R + t2.R, M: m}]
			for s := range tv {
				tv[s].Add(tv[s], new(big.Rat).Mul(c, v2[s]))
			}
		}
	}
	return out
}
