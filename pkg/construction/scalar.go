package construction

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"siegelcore/pkg/algebra"
)

// Generator weights of the scalar ring the backends realize. The weight 5
// generator is the distinguished odd one: brackets absorb it in pairs, scalar
// multiplication rejects it.
const chi5Weight = 5

var generatorWeights = map[int]bool{4: true, 5: true, 6: true, 10: true, 12: true, 35: true}

// ScalarCombination is a homogeneous rational combination of generator
// monomials. It parameterizes construction nodes and is not itself a managed
// node: the engine never schedules or caches one. Values are immutable and
// canonical, so two combinations describing the same form compare equal.
type ScalarCombination struct {
	terms  []algebra.ScalarTerm
	weight int
	chi5   int
	canon  string
}

// Monomial builds the product of the named generators with coefficient one.
func Monomial(gens ...int) (ScalarCombination, error) {
	return Polynomial([]algebra.ScalarTerm{{Gens: gens, Coeff: big.NewRat(1, 1)}})
}

// Polynomial builds a combination from explicit monomial terms. Terms are
// normalized: generator lists sorted, equal monomials merged, zero terms
// dropped. All monomials must share one total weight.
func Polynomial(terms []algebra.ScalarTerm) (ScalarCombination, error) {
	if len(terms) == 0 {
		return ScalarCombination{}, configErrorf("scalar combination needs at least one term")
	}
	merged := make(map[string]algebra.ScalarTerm)
	var keys []string
	for _, t := range terms {
		if len(t.Gens) == 0 {
			return ScalarCombination{}, configErrorf("scalar term needs at least one generator")
		}
		if t.Coeff == nil {
			return ScalarCombination{}, configErrorf("scalar term coefficient must not be nil")
		}
		gens := append([]int(nil), t.Gens...)
		sort.Ints(gens)
		for _, g := range gens {
			if !generatorWeights[g] {
				return ScalarCombination{}, configErrorf("unknown generator weight %d", g)
			}
		}
		k := genKey(gens)
		if have, ok := merged[k]; ok {
			have.Coeff = new(big.Rat).Add(have.Coeff, t.Coeff)
			merged[k] = have
			continue
		}
		merged[k] = algebra.ScalarTerm{Gens: gens, Coeff: new(big.Rat).Set(t.Coeff)}
		keys = append(keys, k)
	}
	var norm []algebra.ScalarTerm
	for _, k := range keys {
		if merged[k].Coeff.Sign() == 0 {
			continue
		}
		norm = append(norm, merged[k])
	}
	if len(norm) == 0 {
		return ScalarCombination{}, configErrorf("scalar combination cancels to zero")
	}
	sort.Slice(norm, func(i, j int) bool { return lessGens(norm[i].Gens, norm[j].Gens) })

	weight := norm[0].Weight()
	chi5 := 0
	for _, t := range norm {
		if t.Weight() != weight {
			return ScalarCombination{}, configErrorf("mixed weights %d and %d in one scalar combination", weight, t.Weight())
		}
		if d := chi5Count(t.Gens); d > chi5 {
			chi5 = d
		}
	}

	var b strings.Builder
	b.WriteString("s{")
	for i, t := range norm {
		if i > 0 {
			b.WriteByte('+')
		}
		for j, g := range t.Gens {
			if j > 0 {
				b.WriteByte('.')
			}
			b.WriteString(strconv.Itoa(g))
		}
		b.WriteByte(':')
		b.WriteString(t.Coeff.String())
	}
	b.WriteByte('}')

	return ScalarCombination{terms: norm, weight: weight, chi5: chi5, canon: b.String()}, nil
}

// Weight returns the shared total weight of the monomials.
func (c ScalarCombination) Weight() int { return c.weight }

// Chi5Degree returns the largest multiplicity of the weight 5 generator
// across the monomials. Bracket kernels absorb pairs of them, which is where
// leaf precision corrections come from.
func (c ScalarCombination) Chi5Degree() int { return c.chi5 }

// IsZero reports whether c is the zero value. Constructed combinations are
// never zero.
func (c ScalarCombination) IsZero() bool { return c.canon == "" }

// Equal reports whether two combinations describe the same form.
func (c ScalarCombination) Equal(other ScalarCombination) bool { return c.canon == other.canon }

// Spec returns an independent backend description of the combination.
func (c ScalarCombination) Spec() algebra.ScalarSpec {
	terms := make([]algebra.ScalarTerm, len(c.terms))
	for i, t := range c.terms {
		terms[i] = algebra.ScalarTerm{
			Gens:  append([]int(nil), t.Gens...),
			Coeff: new(big.Rat).Set(t.Coeff),
		}
	}
	return algebra.ScalarSpec{Terms: terms}
}

// Terms returns an independent copy of the normalized monomials.
func (c ScalarCombination) Terms() []algebra.ScalarTerm {
	return c.Spec().Terms
}

// Name returns a short stable identifier: f_4_6 for plain monomials, a hash
// tag for general combinations.
func (c ScalarCombination) Name() string {
	if c.IsZero() {
		return "f_zero"
	}
	if len(c.terms) == 1 && c.terms[0].Coeff.Cmp(big.NewRat(1, 1)) == 0 {
		parts := make([]string, len(c.terms[0].Gens))
		for i, g := range c.terms[0].Gens {
			parts[i] = strconv.Itoa(g)
		}
		return "f_" + strings.Join(parts, "_")
	}
	sum := sha256.Sum256([]byte(c.canon))
	return "c_" + hex.EncodeToString(sum[:4])
}

func (c ScalarCombination) canonical() string { return c.canon }

func genKey(sorted []int) string {
	parts := make([]string, len(sorted))
	for i, g := range sorted {
		parts[i] = strconv.Itoa(g)
	}
	return strings.Join(parts, ".")
}

func lessGens(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func chi5Count(gens []int) int {
	n := 0
	for _, g := range gens {
		if g == chi5Weight {
			n++
		}
	}
	return n
}
