// Package label renders construction graphs for humans: compact names for
// reports and logs, LaTeX for write-ups. It reads node structure only and
// never mutates anything.
package label

import (
	"fmt"
	"math/big"
	"strings"

	"siegelcore/pkg/construction"
)

var genLaTeX = map[int]string{
	4:  `\phi_{4}`,
	6:  `\phi_{6}`,
	5:  `\chi_{5}`,
	10: `\chi_{10}`,
	12: `\chi_{12}`,
	35: `\chi_{35}`,
}

// Name returns a compact structural name for a construction, built from the
// scalar combination names of its parameters.
func Name(n construction.Node) string {
	switch v := n.(type) {
	case *construction.Leaf:
		combs := v.Combinations()
		parts := make([]string, len(combs))
		for i, c := range combs {
			parts[i] = c.Name()
		}
		mods := fmt.Sprintf("j=%d,inc=%d", v.SymWeight(), v.Inc())
		if v.Tag() != "" {
			mods += ",tag=" + v.Tag()
		}
		return fmt.Sprintf("bracket[%s](%s)", mods, strings.Join(parts, ","))
	case *construction.HeckeTransform:
		return fmt.Sprintf("T(%d) %s", v.M(), Name(v.Base()))
	case *construction.LinearDivide:
		bases := v.Bases()
		parts := make([]string, len(bases))
		for i, b := range bases {
			parts[i] = Name(b)
		}
		return fmt.Sprintf("div[%s](%s)", v.Divisor().Name(), strings.Join(parts, ","))
	case *construction.ScalarMultiply:
		return fmt.Sprintf("%s * %s", v.Scalar().Name(), Name(v.Base()))
	default:
		return n.Key().String()
	}
}

// LaTeX renders a construction fully inline, recursing into dependencies.
func LaTeX(n construction.Node) string {
	switch v := n.(type) {
	case *construction.Leaf:
		return leafLaTeX(v)
	case *construction.HeckeTransform:
		return fmt.Sprintf(`\mathrm{T}(%d) %s`, v.M(), LaTeX(v.Base()))
	case *construction.LinearDivide:
		bases := v.Bases()
		names := make([]string, len(bases))
		for i, b := range bases {
			names[i] = `\left(` + LaTeX(b) + `\right)`
		}
		return divideLaTeX(v, names)
	case *construction.ScalarMultiply:
		return Scalar(v.Scalar()) + " " + LaTeX(v.Base())
	default:
		return n.Key().String()
	}
}

// LaTeXWithDeps renders a construction one level deep: depth-1 dependencies
// appear under the variable names given by deps, keyed by identity key.
// Dependencies missing from the map render inline.
func LaTeXWithDeps(n construction.Node, deps map[construction.Key]string) string {
	name := func(d construction.Node) string {
		if v, ok := deps[d.Key()]; ok {
			return v
		}
		return LaTeX(d)
	}
	switch v := n.(type) {
	case *construction.Leaf:
		return leafLaTeX(v)
	case *construction.HeckeTransform:
		return fmt.Sprintf(`%s \mid \mathrm{T}(%d)`, name(v.Base()), v.M())
	case *construction.LinearDivide:
		bases := v.Bases()
		names := make([]string, len(bases))
		for i, b := range bases {
			names[i] = name(b)
		}
		return divideLaTeX(v, names)
	case *construction.ScalarMultiply:
		return Scalar(v.Scalar()) + " " + name(v.Base())
	default:
		return n.Key().String()
	}
}

// Scalar renders a scalar combination as a polynomial in the named
// generators.
func Scalar(c construction.ScalarCombination) string {
	terms := c.Terms()
	if len(terms) == 0 {
		return "0"
	}
	one := big.NewRat(1, 1)
	var b strings.Builder
	for i, t := range terms {
		neg := t.Coeff.Sign() < 0
		switch {
		case i == 0 && neg:
			b.WriteString("-")
		case i > 0 && neg:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		abs := new(big.Rat).Abs(t.Coeff)
		mono := monomialLaTeX(t.Gens)
		if abs.Cmp(one) != 0 || mono == "" {
			b.WriteString(ratLaTeX(abs))
			if mono != "" {
				b.WriteString(" ")
			}
		}
		b.WriteString(mono)
	}
	return b.String()
}

func monomialLaTeX(gens []int) string {
	var parts []string
	for i := 0; i < len(gens); {
		j := i
		for j < len(gens) && gens[j] == gens[i] {
			j++
		}
		parts = append(parts, genLaTeX[gens[i]]+expt(j-i))
		i = j
	}
	return strings.Join(parts, " ")
}

func expt(n int) string {
	if n == 1 {
		return ""
	}
	return fmt.Sprintf("^{%d}", n)
}

func ratLaTeX(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return fmt.Sprintf(`\frac{%s}{%s}`, r.Num(), r.Denom())
}

// rankinCohen renders the bracket wrapper: arguments in braces subscripted
// with the determinant power and symmetric weight.
func rankinCohen(inc, symWeight int, args []string) string {
	sub := fmt.Sprintf(`\mathrm{Sym}(%d)`, symWeight)
	if inc != 0 {
		sub = fmt.Sprintf(`\det%s \mathrm{Sym}(%d)`, expt(inc), symWeight)
	}
	return fmt.Sprintf(`\left\{%s\right\}_{%s}`, strings.Join(args, ", "), sub)
}

func leafLaTeX(l *construction.Leaf) string {
	combs := l.Combinations()
	args := make([]string, len(combs))
	for i, c := range combs {
		args[i] = Scalar(c)
	}
	if len(combs) != 4 {
		return rankinCohen(l.Inc(), l.SymWeight(), args)
	}
	// The quadruple kernels are compositions and render as such.
	f1, f2, f3, f4 := args[0], args[1], args[2], args[3]
	if l.Tag() == "a" {
		return f3 + " " + rankinCohen(l.Inc(), l.SymWeight(), []string{f1, f2, f4})
	}
	inner := f3 + " " + rankinCohen(l.Inc()-1, l.SymWeight(), []string{f1, f2})
	return rankinCohen(1, l.SymWeight(), []string{f4, inner})
}

// divideLaTeX renders a division as a single fraction: coefficients are
// gcd-normalized to integers, the gcd folds into the fraction with the
// divisor.
func divideLaTeX(d *construction.LinearDivide, names []string) string {
	coeffs := d.Coeffs()
	g := ratGCD(coeffs)
	if g.Sign() == 0 {
		g = big.NewRat(1, 1)
	}

	var terms []string
	for i, c := range coeffs {
		if c.Sign() == 0 {
			continue
		}
		q := new(big.Rat).Quo(c, g)
		s := q.Num().String() + " " + names[i]
		if len(terms) > 0 && q.Sign() > 0 {
			s = "+ " + s
		}
		terms = append(terms, s)
	}
	if len(terms) == 0 {
		terms = []string{"0"}
	}

	den := Scalar(d.Divisor())
	if g.Denom().Cmp(big.NewInt(1)) != 0 {
		den = scaledScalar(d.Divisor(), g.Denom())
	}
	return fmt.Sprintf(`\frac{%s}{%s} \left(%s\right)`, g.Num(), den, strings.Join(terms, " "))
}

// scaledScalar renders k times a combination, distributing k into the
// coefficients.
func scaledScalar(c construction.ScalarCombination, k *big.Int) string {
	terms := c.Terms()
	factor := new(big.Rat).SetInt(k)
	for i := range terms {
		terms[i].Coeff = new(big.Rat).Mul(terms[i].Coeff, factor)
	}
	scaled, err := construction.Polynomial(terms)
	if err != nil {
		return Scalar(c)
	}
	return Scalar(scaled)
}

// ratGCD returns the positive rational g with every input an integer
// multiple of g and those integers coprime: gcd of the numerators over the
// lcm of the denominators. All-zero input yields zero.
func ratGCD(rs []*big.Rat) *big.Rat {
	num := new(big.Int)
	den := big.NewInt(1)
	for _, r := range rs {
		if r.Sign() == 0 {
			continue
		}
		num.GCD(nil, nil, num, new(big.Int).Abs(r.Num()))
		d := r.Denom()
		shared := new(big.Int).GCD(nil, nil, den, d)
		den.Div(new(big.Int).Mul(den, d), shared)
	}
	if num.Sign() == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(num, den)
}
