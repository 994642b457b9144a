package algebra

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Vec is one coefficient of a vector-valued form: the component vector of an
// element of the symmetric-tensor representation, length symmetric weight + 1.
// Components are exact rationals. Scalar forms use length-1 vectors.
type Vec []*big.Rat

// NewVec returns a zero vector with dim components.
func NewVec(dim int) Vec {
	v := make(Vec, dim)
	for i := range v {
		v[i] = new(big.Rat)
	}
	return v
}

// Clone returns an independent copy of v.
func (v Vec) Clone() Vec {
	out := make(Vec, len(v))
	for i, c := range v {
		out[i] = new(big.Rat).Set(c)
	}
	return out
}

// IsZero reports whether every component of v is zero.
func (v Vec) IsZero() bool {
	for _, c := range v {
		if c.Sign() != 0 {
			return false
		}
	}
	return true
}

// Equal reports component-wise equality. Vectors of different lengths are
// never equal.
func (v Vec) Equal(other Vec) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i].Cmp(other[i]) != 0 {
			return false
		}
	}
	return true
}

// AddInto adds other into v in place. Lengths must agree.
func (v Vec) AddInto(other Vec) {
	for i := range v {
		v[i].Add(v[i], other[i])
	}
}

// ScaleInto multiplies every component of v by c in place.
func (v Vec) ScaleInto(c *big.Rat) {
	for i := range v {
		v[i].Mul(v[i], c)
	}
}

// MarshalJSON renders the vector as an array of "p/q" strings. The canonical
// big.Rat form keeps the encoding stable across runs.
func (v Vec) MarshalJSON() ([]byte, error) {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = c.String()
	}
	return json.Marshal(parts)
}

// UnmarshalJSON parses an array of rational strings as produced by
// MarshalJSON. Plain integers are accepted as well.
func (v *Vec) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	out := make(Vec, len(parts))
	for i, s := range parts {
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return fmt.Errorf("invalid rational %q", s)
		}
		out[i] = r
	}
	*v = out
	return nil
}
