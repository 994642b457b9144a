package engine

import (
	"context"
	"fmt"
	"math/big"

	"siegelcore/pkg/algebra"
	"siegelcore/pkg/construction"
)

// FormsDict loads the cached artifact of every given construction and
// returns it restricted to prec, keyed by identity hash. A construction
// whose entry is missing or carries less precision than prec is an error;
// artifacts are never recomputed here.
func (c *Calculator) FormsDict(ctx context.Context, nodes []construction.Node, prec int) (map[string]algebra.Form, error) {
	if prec < 0 {
		return nil, fmt.Errorf("precision must not be negative, got %d", prec)
	}
	out := make(map[string]algebra.Form, len(nodes))
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("construction %d is nil", i)
		}
		hash := n.Key().Hash()
		if _, ok := out[hash]; ok {
			continue
		}
		f, err := c.loadForm(ctx, n, prec)
		if err != nil {
			return nil, err
		}
		out[hash] = f
	}
	return out, nil
}

func (c *Calculator) loadForm(ctx context.Context, n construction.Node, prec int) (algebra.Form, error) {
	_, payload, err := c.store.Load(ctx, n.Key().Hash())
	if err != nil {
		return nil, NodeError{Key: n.Key(), Precision: prec, Err: fmt.Errorf("loading artifact: %w", err)}
	}
	f, err := c.backend.Decode(payload)
	if err != nil {
		return nil, NodeError{Key: n.Key(), Precision: prec, Err: fmt.Errorf("decoding artifact: %w", err)}
	}
	down, err := c.backend.Downsample(f, prec)
	if err != nil {
		return nil, NodeError{Key: n.Key(), Precision: prec, Err: err}
	}
	return down, nil
}

// Rank returns the rank of the coefficient matrix spanned by the given
// constructions' cached artifacts at prec: one row per construction, one
// column per (index, vector component) pair, eliminated exactly over the
// rationals.
func (c *Calculator) Rank(ctx context.Context, nodes []construction.Node, prec int) (int, error) {
	rows, err := c.coefficientRows(ctx, nodes, prec)
	if err != nil {
		return 0, err
	}
	var elim ratEliminator
	rank := 0
	for _, row := range rows {
		if elim.add(row) {
			rank++
		}
	}
	return rank, nil
}

// LinearlyIndependent returns the first maximal linearly independent subset
// of the given constructions, in input order, judged by their coefficient
// rows at prec.
func (c *Calculator) LinearlyIndependent(ctx context.Context, nodes []construction.Node, prec int) ([]construction.Node, error) {
	rows, err := c.coefficientRows(ctx, nodes, prec)
	if err != nil {
		return nil, err
	}
	var elim ratEliminator
	var out []construction.Node
	for i, row := range rows {
		if elim.add(row) {
			out = append(out, nodes[i])
		}
	}
	return out, nil
}

// coefficientRows flattens each construction's artifact at prec into one
// exact rational row over the full index enumeration.
func (c *Calculator) coefficientRows(ctx context.Context, nodes []construction.Node, prec int) ([][]*big.Rat, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	if prec < 0 {
		return nil, fmt.Errorf("precision must not be negative, got %d", prec)
	}
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("construction %d is nil", i)
		}
		if n.Weight() != nodes[0].Weight() || n.SymWeight() != nodes[0].SymWeight() {
			return nil, fmt.Errorf("construction %s has weight (%d, %d), want (%d, %d): %w",
				n.Key(), n.Weight(), n.SymWeight(), nodes[0].Weight(), nodes[0].SymWeight(),
				algebra.ErrWeightMismatch)
		}
	}

	indices := c.backend.Indices(prec)
	width := len(indices) * (nodes[0].SymWeight() + 1)
	rows := make([][]*big.Rat, len(nodes))
	for i, n := range nodes {
		f, err := c.loadForm(ctx, n, prec)
		if err != nil {
			return nil, err
		}
		row := make([]*big.Rat, 0, width)
		for _, ix := range indices {
			v, ok := f.Coefficient(ix)
			if !ok {
				return nil, NodeError{Key: n.Key(), Precision: prec,
					Err: fmt.Errorf("artifact does not resolve index %s: %w", ix, algebra.ErrInsufficientPrecision)}
			}
			row = append(row, v...)
		}
		rows[i] = row
	}
	return rows, nil
}

// ratEliminator is an online Gauss elimination over big.Rat. Basis rows are
// kept reduced with a unit leading entry, so membership of a new row reduces
// to subtracting its projection pivot by pivot.
type ratEliminator struct {
	basis  [][]*big.Rat
	pivots []int
}

// add reduces row against the basis and reports whether it extended the
// span. The row is consumed.
func (e *ratEliminator) add(row []*big.Rat) bool {
	for i, b := range e.basis {
		p := e.pivots[i]
		if p >= len(row) || row[p].Sign() == 0 {
			continue
		}
		f := new(big.Rat).Set(row[p])
		for j := p; j < len(row) && j < len(b); j++ {
			if b[j].Sign() == 0 {
				continue
			}
			row[j] = new(big.Rat).Sub(row[j], new(big.Rat).Mul(f, b[j]))
		}
	}
	pivot := -1
	for j, v := range row {
		if v.Sign() != 0 {
			pivot = j
			break
		}
	}
	if pivot < 0 {
		return false
	}
	inv := new(big.Rat).Inv(row[pivot])
	for j := pivot; j < len(row); j++ {
		if row[j].Sign() != 0 {
			row[j] = new(big.Rat).Mul(row[j], inv)
		}
	}
	e.basis = append(e.basis, row)
	e.pivots = append(e.pivots, pivot)
	return true
}
