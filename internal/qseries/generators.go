package qseries

import (
	"fmt"
	"math/big"

	"siegelcore/pkg/algebra"
)

// The graded ring is generated in weights 4, 5, 6, 10, 12 and 35. The weight
// 4 and 6 tables carry a unit constant term; the rest are cusp generators and
// vanish off the definite interior. Entries are synthetic: a fixed integer
// formula in the index, not the classical expansions, chosen so that every
// table is deterministic, downsamples consistently and has the right
// invertibility structure for division.
var generatorUnits = map[int]bool{
	4:  true,
	5:  false,
	6:  true,
	10: false,
	12: false,
	35: false,
}

// genValue returns the coefficient of the weight k generator at ix. It
// depends only on (k, ix), never on the precision of the table it lands in.
func genValue(k int, ix algebra.Index) *big.Rat {
	det := int64(ix.Det4())
	base := int64(k*k*k)*int64(ix.N+ix.M) + int64(k)*det + int64(ix.R)
	if generatorUnits[k] {
		return new(big.Rat).SetInt64(base + 1)
	}
	if ix.N == 0 || ix.M == 0 || det == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetInt64(base)
}

type genKey struct {
	weight int
	prec   int
}

// generator returns the shared table for a generator weight at prec, filling
// the cache on first use. Callers must treat the result as read-only.
func (b *Backend) generator(k, prec int) (*form, error) {
	if _, ok := generatorUnits[k]; !ok {
		return nil, fmt.Errorf("no generator of weight %d: %w", k, algebra.ErrUnsupported)
	}
	key := genKey{weight: k, prec: prec}
	b.mu.RLock()
	f, ok := b.gens[key]
	b.mu.RUnlock()
	if ok {
		return f, nil
	}

	f = newForm(k, 0, prec)
	for ix, v := range f.coeffs {
		v[0].Set(genValue(k, ix))
	}

	b.mu.Lock()
	if cached, ok := b.gens[key]; ok {
		f = cached
	} else {
		b.gens[key] = f
	}
	b.mu.Unlock()
	return f, nil
}
