package qseries

import (
	"encoding/json"
	"fmt"

	"siegelcore/pkg/algebra"
)

// codedForm is the wire shape of a table. Coefficients cover the full cone
// in (N, R, M) order, so encoding the same table twice yields identical
// bytes.
type codedForm struct {
	Weight       int          `json:"weight"`
	SymWeight    int          `json:"sym_weight"`
	Precision    int          `json:"precision"`
	Coefficients []codedCoeff `json:"coefficients"`
}

type codedCoeff struct {
	Index algebra.Index `json:"index"`
	Value algebra.Vec   `json:"value"`
}

// Encode serializes a form produced by this backend.
func (b *Backend) Encode(f algebra.Form) ([]byte, error) {
	ff, err := asForm(f)
	if err != nil {
		return nil, err
	}
	order := coneIndices(ff.prec)
	out := codedForm{
		Weight:       ff.weight,
		SymWeight:    ff.sym,
		Precision:    ff.prec,
		Coefficients: make([]codedCoeff, 0, len(order)),
	}
	for _, ix := range order {
		out.Coefficients = append(out.Coefficients, codedCoeff{Index: ix, Value: ff.coeffs[ix]})
	}
	return json.Marshal(out)
}

// Decode restores a table from Encode output. Every entry must lie in the
// declared cone and carry the declared vector length; indices outside the
// cone or duplicated are rejected rather than dropped.
func (b *Backend) Decode(data []byte) (algebra.Form, error) {
	var in codedForm
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	if in.Precision < 0 {
		return nil, fmt.Errorf("decode form: negative precision %d", in.Precision)
	}
	if in.SymWeight < 0 {
		return nil, fmt.Errorf("decode form: negative symmetric weight %d", in.SymWeight)
	}
	dim := in.SymWeight + 1
	out := newForm(in.Weight, in.SymWeight, in.Precision)
	seen := make(map[algebra.Index]bool, len(in.Coefficients))
	for _, c := range in.Coefficients {
		if !c.Index.Valid() || c.Index.N > in.Precision || c.Index.M > in.Precision {
			return nil, fmt.Errorf("decode form: index %s outside the cone of precision %d",
				c.Index, in.Precision)
		}
		if seen[c.Index] {
			return nil, fmt.Errorf("decode form: duplicate index %s", c.Index)
		}
		seen[c.Index] = true
		if len(c.Value) != dim {
			return nil, fmt.Errorf("decode form: index %s carries %d components, want %d",
				c.Index, len(c.Value), dim)
		}
		out.coeffs[c.Index] = c.Value.Clone()
	}
	return out, nil
}
