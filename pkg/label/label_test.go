package label

import (
	"math/big"
	"strings"
	"testing"

	"siegelcore/pkg/algebra"
	"siegelcore/pkg/construction"
)

func mustMonomial(t *testing.T, gens ...int) construction.ScalarCombination {
	t.Helper()
	c, err := construction.Monomial(gens...)
	if err != nil {
		t.Fatalf("Monomial(%v): %v", gens, err)
	}
	return c
}

func mustLeaf(t *testing.T, j, inc int, gens ...[]int) *construction.Leaf {
	t.Helper()
	combs := make([]construction.ScalarCombination, len(gens))
	for i, g := range gens {
		combs[i] = mustMonomial(t, g...)
	}
	l, err := construction.NewLeaf(j, combs, inc, "")
	if err != nil {
		t.Fatalf("NewLeaf: %v", err)
	}
	return l
}

func TestScalarMonomial(t *testing.T) {
	if got := Scalar(mustMonomial(t, 4, 4, 6)); got != `\phi_{4}^{2} \phi_{6}` {
		t.Fatalf("got %q", got)
	}
	if got := Scalar(mustMonomial(t, 10)); got != `\chi_{10}` {
		t.Fatalf("got %q", got)
	}
}

func TestScalarPolynomial(t *testing.T) {
	c, err := construction.Polynomial([]algebra.ScalarTerm{
		{Gens: []int{4, 4, 4}, Coeff: big.NewRat(2, 1)},
		{Gens: []int{12}, Coeff: big.NewRat(-1, 2)},
	})
	if err != nil {
		t.Fatalf("Polynomial: %v", err)
	}
	want := `2 \phi_{4}^{3} - \frac{1}{2} \chi_{12}`
	if got := Scalar(c); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLeafLaTeXPair(t *testing.T) {
	l := mustLeaf(t, 2, 0, []int{4}, []int{6})
	want := `\left\{\phi_{4}, \phi_{6}\right\}_{\mathrm{Sym}(2)}`
	if got := LaTeX(l); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLeafLaTeXDetPower(t *testing.T) {
	l := mustLeaf(t, 4, 3, []int{4}, []int{5}, []int{5})
	got := LaTeX(l)
	if !strings.Contains(got, `\det^{3} \mathrm{Sym}(4)`) {
		t.Fatalf("expected det^3 subscript, got %q", got)
	}
	if !strings.Contains(got, `\chi_{5}, \chi_{5}`) {
		t.Fatalf("expected both chi_5 arguments, got %q", got)
	}
}

func TestLeafLaTeXQuadrupleTags(t *testing.T) {
	combs := []construction.ScalarCombination{
		mustMonomial(t, 4), mustMonomial(t, 6),
		mustMonomial(t, 4), mustMonomial(t, 6),
	}
	a, err := construction.NewLeaf(2, combs, 1, "a")
	if err != nil {
		t.Fatalf("NewLeaf a: %v", err)
	}
	b, err := construction.NewLeaf(2, combs, 1, "b")
	if err != nil {
		t.Fatalf("NewLeaf b: %v", err)
	}
	// Tag a multiplies the third argument outside the bracket of the rest.
	wantA := `\phi_{4} \left\{\phi_{4}, \phi_{6}, \phi_{6}\right\}_{\det \mathrm{Sym}(2)}`
	if got := LaTeX(a); got != wantA {
		t.Fatalf("tag a: got %q, want %q", got, wantA)
	}
	// Tag b nests a pair bracket inside a vector bracket.
	gotB := LaTeX(b)
	if !strings.Contains(gotB, `\left\{\phi_{4}, \phi_{6}\right\}_{\mathrm{Sym}(2)}`) {
		t.Fatalf("tag b: expected nested pair bracket, got %q", gotB)
	}
	if !strings.HasPrefix(gotB, `\left\{\phi_{6}, `) {
		t.Fatalf("tag b: expected outer bracket led by the fourth argument, got %q", gotB)
	}
}

func TestHeckeLaTeX(t *testing.T) {
	l := mustLeaf(t, 2, 0, []int{4}, []int{6})
	h, err := construction.NewHeckeTransform(l, 2)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	want := `\mathrm{T}(2) ` + LaTeX(l)
	if got := LaTeX(h); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	deps := map[construction.Key]string{l.Key(): "F"}
	if got := LaTeXWithDeps(h, deps); got != `F \mid \mathrm{T}(2)` {
		t.Fatalf("got %q", got)
	}
}

func TestDivideLaTeXNormalizesGCD(t *testing.T) {
	l := mustLeaf(t, 2, 0, []int{4}, []int{6})
	h2, err := construction.NewHeckeTransform(l, 2)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	h3, err := construction.NewHeckeTransform(l, 3)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	d, err := construction.NewLinearDivide(
		[]construction.Node{h2, h3},
		[]*big.Rat{big.NewRat(3, 2), big.NewRat(-3, 1)},
		mustMonomial(t, 10), 0)
	if err != nil {
		t.Fatalf("NewLinearDivide: %v", err)
	}
	deps := map[construction.Key]string{h2.Key(): "X", h3.Key(): "Y"}
	want := `\frac{3}{2 \chi_{10}} \left(1 X -2 Y\right)`
	if got := LaTeXWithDeps(d, deps); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDivideLaTeXSkipsZeroCoefficients(t *testing.T) {
	l := mustLeaf(t, 2, 0, []int{4}, []int{6})
	h2, err := construction.NewHeckeTransform(l, 2)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	h3, err := construction.NewHeckeTransform(l, 3)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	d, err := construction.NewLinearDivide(
		[]construction.Node{h2, h3},
		[]*big.Rat{big.NewRat(0, 1), big.NewRat(2, 1)},
		mustMonomial(t, 10), 0)
	if err != nil {
		t.Fatalf("NewLinearDivide: %v", err)
	}
	deps := map[construction.Key]string{h2.Key(): "X", h3.Key(): "Y"}
	got := LaTeXWithDeps(d, deps)
	if strings.Contains(got, "X") {
		t.Fatalf("zero coefficient term must not render, got %q", got)
	}
	if !strings.Contains(got, "1 Y") {
		t.Fatalf("expected normalized coefficient on Y, got %q", got)
	}
}

func TestMultiplyLaTeX(t *testing.T) {
	l := mustLeaf(t, 2, 0, []int{4}, []int{6})
	m, err := construction.NewScalarMultiply(l, mustMonomial(t, 12))
	if err != nil {
		t.Fatalf("NewScalarMultiply: %v", err)
	}
	deps := map[construction.Key]string{l.Key(): "G"}
	if got := LaTeXWithDeps(m, deps); got != `\chi_{12} G` {
		t.Fatalf("got %q", got)
	}
}

func TestName(t *testing.T) {
	l := mustLeaf(t, 2, 0, []int{4}, []int{6})
	if got := Name(l); got != "bracket[j=2,inc=0](f_4,f_6)" {
		t.Fatalf("leaf name %q", got)
	}
	h, err := construction.NewHeckeTransform(l, 2)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	if got := Name(h); got != "T(2) bracket[j=2,inc=0](f_4,f_6)" {
		t.Fatalf("hecke name %q", got)
	}
	d, err := construction.NewLinearDivide(
		[]construction.Node{h}, []*big.Rat{big.NewRat(1, 1)}, mustMonomial(t, 10), 2)
	if err != nil {
		t.Fatalf("NewLinearDivide: %v", err)
	}
	if got := Name(d); got != "div[f_10](T(2) bracket[j=2,inc=0](f_4,f_6))" {
		t.Fatalf("divide name %q", got)
	}
}

func TestLaTeXWithDepsFallsBackInline(t *testing.T) {
	l := mustLeaf(t, 2, 0, []int{4}, []int{6})
	h, err := construction.NewHeckeTransform(l, 2)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	got := LaTeXWithDeps(h, nil)
	if !strings.Contains(got, `\left\{\phi_{4}, \phi_{6}\right\}`) {
		t.Fatalf("expected inline dependency rendering, got %q", got)
	}
}
