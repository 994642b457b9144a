package construction

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"siegelcore/pkg/algebra"
)

// Node is one vertex of a construction graph: a recipe for a vector-valued
// form, identified by a canonical key and executable against any backend.
// Implementations are immutable after construction and safe for concurrent
// use. The variant set is closed; callers branch on the concrete types Leaf,
// HeckeTransform, LinearDivide and ScalarMultiply.
type Node interface {
	// Key returns the canonical identity of this construction.
	Key() Key
	// Weight returns the determinant weight of the resulting form.
	Weight() int
	// SymWeight returns the symmetric weight of the resulting form.
	SymWeight() int
	// Requirement translates a precision demanded of this node into the
	// precision it demands of its inputs, dependency forms and backend
	// evaluations alike. It is monotone and never below the demand.
	Requirement(target int) int
	// Dependencies lists the nodes this construction consumes, in the order
	// Compute expects their forms. Scalar combinations are parameters, not
	// dependencies, and do not appear here.
	Dependencies() []Node
	// Compute realizes the construction at exactly prec. deps carries the
	// dependency forms in Dependencies() order, each at no less than
	// Requirement(prec).
	Compute(ctx context.Context, backend algebra.Backend, prec int, deps []algebra.Form) (algebra.Form, error)

	isNode()
}

// Leaf builds a vector-valued form directly from scalar generator
// combinations through a differential-bracket kernel. It has no node
// dependencies; the scalar inputs are realized by the backend at compute
// time.
type Leaf struct {
	symWeight int
	combs     []ScalarCombination
	inc       int
	tag       string
	weight    int
	corr      int
	key       Key
}

// NewLeaf validates the kernel selection and returns the leaf. Supported
// shapes: two combinations with increment 0 or 2, three with increment 1 or
// 3, four with increment 1 or 3 and a kernel tag "a" or "b".
func NewLeaf(symWeight int, combs []ScalarCombination, inc int, tag string) (*Leaf, error) {
	if symWeight < 0 {
		return nil, configErrorf("symmetric weight must not be negative, got %d", symWeight)
	}
	for i, c := range combs {
		if c.IsZero() {
			return nil, configErrorf("scalar combination %d is empty", i)
		}
	}
	switch len(combs) {
	case 2:
		if inc != 0 && inc != 2 {
			return nil, configErrorf("pair bracket supports increments 0 and 2, got %d", inc)
		}
		if tag != "" {
			return nil, configErrorf("pair bracket takes no kernel tag, got %q", tag)
		}
	case 3:
		if inc != 1 && inc != 3 {
			return nil, configErrorf("triple bracket supports increments 1 and 3, got %d", inc)
		}
		if tag != "" {
			return nil, configErrorf("triple bracket takes no kernel tag, got %q", tag)
		}
	case 4:
		if inc != 1 && inc != 3 {
			return nil, configErrorf("quadruple bracket supports increments 1 and 3, got %d", inc)
		}
		if tag != "a" && tag != "b" {
			return nil, configErrorf("quadruple bracket needs kernel tag a or b, got %q", tag)
		}
	default:
		return nil, configErrorf("bracket arity must be 2, 3 or 4, got %d", len(combs))
	}

	weight := inc
	chi5Sum := 0
	for _, c := range combs {
		weight += c.Weight()
		chi5Sum += c.Chi5Degree()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "leaf[j=%d,inc=%d,tag=%s](", symWeight, inc, tag)
	for i, c := range combs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.canonical())
	}
	b.WriteByte(')')

	return &Leaf{
		symWeight: symWeight,
		combs:     append([]ScalarCombination(nil), combs...),
		inc:       inc,
		tag:       tag,
		weight:    weight,
		corr:      chi5Sum / 2,
		key:       newKey(b.String()),
	}, nil
}

func (l *Leaf) Key() Key       { return l.key }
func (l *Leaf) Weight() int    { return l.weight }
func (l *Leaf) SymWeight() int { return l.symWeight }

// Requirement adds the precision the kernel loses absorbing pairs of the
// weight 5 generator.
func (l *Leaf) Requirement(target int) int { return target + l.corr }

// Dependencies is empty: scalar combinations are parameters.
func (l *Leaf) Dependencies() []Node { return nil }

// Combinations returns an independent copy of the scalar inputs in kernel
// order.
func (l *Leaf) Combinations() []ScalarCombination {
	return append([]ScalarCombination(nil), l.combs...)
}

// Inc returns the determinant-weight increment of the kernel.
func (l *Leaf) Inc() int { return l.inc }

// Tag returns the kernel tag for quadruple brackets, otherwise empty.
func (l *Leaf) Tag() string { return l.tag }

func (l *Leaf) Compute(ctx context.Context, backend algebra.Backend, prec int, deps []algebra.Form) (algebra.Form, error) {
	if len(deps) != 0 {
		return nil, fmt.Errorf("leaf construction takes no dependency forms, got %d", len(deps))
	}
	in := l.Requirement(prec)
	forms := make([]algebra.Form, len(l.combs))
	for i, c := range l.combs {
		f, err := backend.Scalar(ctx, c.Spec(), in)
		if err != nil {
			return nil, fmt.Errorf("scalar input %s: %w", c.Name(), err)
		}
		forms[i] = f
	}
	spec := algebra.BracketSpec{SymWeight: l.symWeight, Inc: l.inc, Tag: l.tag}
	return backend.Bracket(ctx, spec, forms, prec)
}

func (*Leaf) isNode() {}

// HeckeTransform applies the index-m Hecke operator to a base construction.
type HeckeTransform struct {
	base Node
	m    int
	key  Key
}

// NewHeckeTransform validates the index and returns the transform. Whether a
// particular index has an action is the backend's call; structurally anything
// from 2 up is allowed.
func NewHeckeTransform(base Node, m int) (*HeckeTransform, error) {
	if base == nil {
		return nil, configErrorf("hecke transform needs a base construction")
	}
	if m < 2 {
		return nil, configErrorf("hecke index must be at least 2, got %d", m)
	}
	canonical := fmt.Sprintf("hecke[m=%d](%s)", m, base.Key().Canonical())
	return &HeckeTransform{base: base, m: m, key: newKey(canonical)}, nil
}

func (h *HeckeTransform) Key() Key       { return h.key }
func (h *HeckeTransform) Weight() int    { return h.base.Weight() }
func (h *HeckeTransform) SymWeight() int { return h.base.SymWeight() }

// Requirement scales by the operator index: coefficients up to m*target feed
// coefficients up to target.
func (h *HeckeTransform) Requirement(target int) int { return h.m * target }

func (h *HeckeTransform) Dependencies() []Node { return []Node{h.base} }

// Base returns the transformed construction.
func (h *HeckeTransform) Base() Node { return h.base }

// M returns the operator index.
func (h *HeckeTransform) M() int { return h.m }

func (h *HeckeTransform) Compute(ctx context.Context, backend algebra.Backend, prec int, deps []algebra.Form) (algebra.Form, error) {
	if len(deps) != 1 {
		return nil, fmt.Errorf("hecke transform takes exactly one dependency form, got %d", len(deps))
	}
	return backend.Hecke(ctx, deps[0], h.m, prec)
}

func (*HeckeTransform) isNode() {}

// LinearDivide forms a rational linear combination of base constructions and
// divides it exactly by a scalar combination. The divisor is a parameter
// evaluated inside Compute at the raised precision, not a dependency node;
// only the bases appear in Dependencies.
type LinearDivide struct {
	bases   []Node
	coeffs  []*big.Rat
	divisor ScalarCombination
	inc     int
	weight  int
	key     Key
}

// NewLinearDivide validates shape and weight agreement and returns the node.
// inc is the extra precision the division consumes; the result of dividing at
// target+inc is truncated back to target.
func NewLinearDivide(bases []Node, coeffs []*big.Rat, divisor ScalarCombination, inc int) (*LinearDivide, error) {
	if len(bases) == 0 {
		return nil, configErrorf("division needs at least one base construction")
	}
	if len(coeffs) != len(bases) {
		return nil, configErrorf("got %d coefficients for %d bases", len(coeffs), len(bases))
	}
	if divisor.IsZero() {
		return nil, configErrorf("division needs a divisor")
	}
	if inc < 0 {
		return nil, configErrorf("precision increment must not be negative, got %d", inc)
	}
	for i, b := range bases {
		if b == nil {
			return nil, configErrorf("base construction %d is nil", i)
		}
		if coeffs[i] == nil {
			return nil, configErrorf("coefficient %d is nil", i)
		}
		if b.Weight() != bases[0].Weight() || b.SymWeight() != bases[0].SymWeight() {
			return nil, configErrorf("base %d has weight (%d, %d), want (%d, %d)",
				i, b.Weight(), b.SymWeight(), bases[0].Weight(), bases[0].SymWeight())
		}
	}

	cp := make([]*big.Rat, len(coeffs))
	for i, c := range coeffs {
		cp[i] = new(big.Rat).Set(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "div[inc=%d,den=%s,coeffs=[", inc, divisor.canonical())
	for i, c := range cp {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.String())
	}
	b.WriteString("]](")
	for i, base := range bases {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(base.Key().Canonical())
	}
	b.WriteByte(')')

	return &LinearDivide{
		bases:   append([]Node(nil), bases...),
		coeffs:  cp,
		divisor: divisor,
		inc:     inc,
		weight:  bases[0].Weight() - divisor.Weight(),
		key:     newKey(b.String()),
	}, nil
}

func (d *LinearDivide) Key() Key       { return d.key }
func (d *LinearDivide) Weight() int    { return d.weight }
func (d *LinearDivide) SymWeight() int { return d.bases[0].SymWeight() }

// Requirement raises the target by the declared division slack.
func (d *LinearDivide) Requirement(target int) int { return target + d.inc }

func (d *LinearDivide) Dependencies() []Node { return append([]Node(nil), d.bases...) }

// Bases returns an independent copy of the combined constructions.
func (d *LinearDivide) Bases() []Node { return append([]Node(nil), d.bases...) }

// Coeffs returns an independent copy of the combination coefficients.
func (d *LinearDivide) Coeffs() []*big.Rat {
	cp := make([]*big.Rat, len(d.coeffs))
	for i, c := range d.coeffs {
		cp[i] = new(big.Rat).Set(c)
	}
	return cp
}

// Divisor returns the scalar combination divided by.
func (d *LinearDivide) Divisor() ScalarCombination { return d.divisor }

// Inc returns the declared precision slack.
func (d *LinearDivide) Inc() int { return d.inc }

func (d *LinearDivide) Compute(ctx context.Context, backend algebra.Backend, prec int, deps []algebra.Form) (algebra.Form, error) {
	if len(deps) != len(d.bases) {
		return nil, fmt.Errorf("division takes %d dependency forms, got %d", len(d.bases), len(deps))
	}
	num := backend.ScalarMul(d.coeffs[0], deps[0])
	for i := 1; i < len(deps); i++ {
		term := backend.ScalarMul(d.coeffs[i], deps[i])
		sum, err := backend.Add(num, term)
		if err != nil {
			return nil, fmt.Errorf("combining base %d: %w", i, err)
		}
		num = sum
	}
	in := d.Requirement(prec)
	den, err := backend.Scalar(ctx, d.divisor.Spec(), in)
	if err != nil {
		return nil, fmt.Errorf("divisor %s: %w", d.divisor.Name(), err)
	}
	return backend.Divide(ctx, num, den, prec)
}

func (*LinearDivide) isNode() {}

// ScalarMultiply multiplies a base construction by a scalar combination.
type ScalarMultiply struct {
	base   Node
	scalar ScalarCombination
	key    Key
}

// NewScalarMultiply validates the factor and returns the node. Combinations
// carrying the weight 5 generator have no multiplication rule and are
// rejected here rather than at compute time.
func NewScalarMultiply(base Node, scalar ScalarCombination) (*ScalarMultiply, error) {
	if base == nil {
		return nil, configErrorf("scalar multiplication needs a base construction")
	}
	if scalar.IsZero() {
		return nil, configErrorf("scalar multiplication needs a factor")
	}
	if scalar.Chi5Degree() > 0 {
		return nil, UnsupportedCombinationError{
			Detail: fmt.Sprintf("scalar factor %s contains the weight 5 generator", scalar.Name()),
		}
	}
	canonical := fmt.Sprintf("mul[scalar=%s](%s)", scalar.canonical(), base.Key().Canonical())
	return &ScalarMultiply{base: base, scalar: scalar, key: newKey(canonical)}, nil
}

func (m *ScalarMultiply) Key() Key       { return m.key }
func (m *ScalarMultiply) Weight() int    { return m.base.Weight() + m.scalar.Weight() }
func (m *ScalarMultiply) SymWeight() int { return m.base.SymWeight() }

// Requirement passes the target through unchanged.
func (m *ScalarMultiply) Requirement(target int) int { return target }

func (m *ScalarMultiply) Dependencies() []Node { return []Node{m.base} }

// Base returns the multiplied construction.
func (m *ScalarMultiply) Base() Node { return m.base }

// Scalar returns the factor.
func (m *ScalarMultiply) Scalar() ScalarCombination { return m.scalar }

func (m *ScalarMultiply) Compute(ctx context.Context, backend algebra.Backend, prec int, deps []algebra.Form) (algebra.Form, error) {
	if len(deps) != 1 {
		return nil, fmt.Errorf("scalar multiplication takes exactly one dependency form, got %d", len(deps))
	}
	factor, err := backend.Scalar(ctx, m.scalar.Spec(), prec)
	if err != nil {
		return nil, fmt.Errorf("scalar factor %s: %w", m.scalar.Name(), err)
	}
	return backend.Mul(ctx, factor, deps[0])
}

func (*ScalarMultiply) isNode() {}
