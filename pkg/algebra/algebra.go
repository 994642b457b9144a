// Package algebra defines the stable surface between construction graphs and
// the coefficient-table backends that realize them. It carries the index and
// vector types shared by every backend, the opaque Form handle, and the
// Backend capability set the execution engine drives. It deliberately contains
// no arithmetic of its own.
package algebra

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

// Index identifies one Fourier coefficient of a degree-two expansion. It is
// the reduced triple (N, R, M) of a half-integral symmetric matrix
// [[N, R/2], [R/2, M]].
type Index struct {
	N int `json:"n"`
	R int `json:"r"`
	M int `json:"m"`
}

// Valid reports whether the triple lies in the positive semi-definite cone,
// the only region where coefficients are defined.
func (ix Index) Valid() bool {
	return ix.N >= 0 && ix.M >= 0 && ix.R*ix.R <= 4*ix.N*ix.M
}

// Det4 returns 4NM - R*R, four times the determinant of the underlying
// half-integral matrix.
func (ix Index) Det4() int {
	return 4*ix.N*ix.M - ix.R*ix.R
}

// Less orders indices lexicographically by (N, R, M). Backends use it to fix
// a deterministic enumeration for encoding and rank computations.
func (ix Index) Less(other Index) bool {
	if ix.N != other.N {
		return ix.N < other.N
	}
	if ix.R != other.R {
		return ix.R < other.R
	}
	return ix.M < other.M
}

func (ix Index) String() string {
	return fmt.Sprintf("(%d, %d, %d)", ix.N, ix.R, ix.M)
}

// ScalarTerm is a single monomial in the graded generator ring: an ordered
// list of generator weights with an exact rational coefficient.
type ScalarTerm struct {
	Gens  []int
	Coeff *big.Rat
}

// Weight returns the total weight of the monomial.
func (t ScalarTerm) Weight() int {
	w := 0
	for _, g := range t.Gens {
		w += g
	}
	return w
}

// ScalarSpec describes a scalar modular form as a rational combination of
// generator monomials. Backends realize it against their own generator
// tables; the engine never inspects coefficients through it.
type ScalarSpec struct {
	Terms []ScalarTerm
}

// BracketSpec selects a differential-bracket kernel by the symmetric weight of
// its output, the determinant-weight increment, and, for the four-argument
// kernels, a variant tag.
type BracketSpec struct {
	SymWeight int
	Inc       int
	Tag       string
}

// Form is an immutable coefficient table produced by a backend. A form
// computed at precision P resolves every index the backend assigns to P and
// can be restricted to any lower precision, never extended.
type Form interface {
	Precision() int
	Weight() int
	SymWeight() int
	Coefficient(ix Index) (Vec, bool)
}

// Backend is the capability set the execution engine requires of an algebra
// implementation. All operations are exact; results carry the precision they
// were requested at. Implementations must be safe for concurrent use.
type Backend interface {
	// Scalar realizes a generator combination at the given precision.
	Scalar(ctx context.Context, spec ScalarSpec, prec int) (Form, error)
	// Bracket applies the differential-bracket kernel selected by spec to the
	// given scalar forms, producing a vector-valued form at prec. The inputs
	// must already carry enough precision for the kernel's internal divisions.
	Bracket(ctx context.Context, spec BracketSpec, forms []Form, prec int) (Form, error)
	// Add returns a+b. Weights and symmetric weights must agree; the result
	// carries the smaller of the two precisions.
	Add(a, b Form) (Form, error)
	// ScalarMul scales every coefficient of f by c.
	ScalarMul(c *big.Rat, f Form) Form
	// Mul multiplies a scalar form into a (possibly vector-valued) form.
	Mul(ctx context.Context, a, b Form) (Form, error)
	// Divide returns num/den truncated to prec. The divisor must be exactly
	// invertible to that order; otherwise the error wraps ErrInexactDivision.
	Divide(ctx context.Context, num, den Form, prec int) (Form, error)
	// Hecke applies the index-m Hecke operator, reading num coefficients up to
	// m*prec from f and producing a form at prec.
	Hecke(ctx context.Context, f Form, m, prec int) (Form, error)
	// Downsample restricts f to a lower precision. Requesting more precision
	// than f carries wraps ErrInsufficientPrecision.
	Downsample(f Form, prec int) (Form, error)
	// Indices enumerates, in deterministic order, every index a form at the
	// given precision resolves.
	Indices(prec int) []Index
	// Encode serializes a form to a stable byte representation: encoding the
	// same table twice yields identical bytes.
	Encode(f Form) ([]byte, error)
	// Decode restores a form previously produced by Encode.
	Decode(data []byte) (Form, error)
}

// Sentinel errors reported by backends. Implementations wrap these so callers
// can classify failures with errors.Is without depending on backend types.
var (
	// ErrInexactDivision reports a divisor that is not exactly invertible to
	// the requested order.
	ErrInexactDivision = errors.New("inexact division")
	// ErrInsufficientPrecision reports an attempt to read or restrict a form
	// beyond the precision it carries.
	ErrInsufficientPrecision = errors.New("insufficient precision")
	// ErrUnsupported reports an operation combination the backend has no
	// kernel for.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrWeightMismatch reports an arithmetic combination of forms whose
	// weights or symmetric weights disagree.
	ErrWeightMismatch = errors.New("weight mismatch")
)
