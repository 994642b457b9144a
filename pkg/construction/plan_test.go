package construction

import (
	"context"
	"math/big"
	"testing"

	"siegelcore/pkg/algebra"
)

func planFor(t *testing.T, target int, roots ...Node) *Plan {
	t.Helper()
	p, err := PlanPrecisions(target, roots...)
	if err != nil {
		t.Fatalf("PlanPrecisions: %v", err)
	}
	return p
}

func demandOf(t *testing.T, p *Plan, n Node) int {
	t.Helper()
	d, ok := p.Demand(n)
	if !ok {
		t.Fatalf("node %s missing from plan", n.Key())
	}
	return d
}

func TestPlanChainPropagation(t *testing.T) {
	// top divides (requirement target+2), middle is T(2) (requirement
	// 2*target): the leaf must land at 2*(target+2).
	leaf := mustLeaf(t, 2, 0, []int{4}, []int{6})
	middle, err := NewHeckeTransform(leaf, 2)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	top, err := NewLinearDivide([]Node{middle}, []*big.Rat{big.NewRat(1, 1)}, mustMonomial(t, 4), 2)
	if err != nil {
		t.Fatalf("NewLinearDivide: %v", err)
	}

	for _, target := range []int{1, 3, 5, 8} {
		p := planFor(t, target, top)
		if got := demandOf(t, p, top); got != target {
			t.Fatalf("target %d: root demanded at %d", target, got)
		}
		if got := demandOf(t, p, middle); got != target+2 {
			t.Fatalf("target %d: middle demanded at %d, want %d", target, got, target+2)
		}
		if got := demandOf(t, p, leaf); got != 2*(target+2) {
			t.Fatalf("target %d: leaf demanded at %d, want %d", target, got, 2*(target+2))
		}
	}
}

func TestPlanSharedDependencyTakesMax(t *testing.T) {
	leaf, h2, h3, top := buildDiamond(t)
	p := planFor(t, 5, top)
	if got := demandOf(t, p, h2); got != 5 {
		t.Fatalf("T(2) demanded at %d, want 5", got)
	}
	if got := demandOf(t, p, h3); got != 5 {
		t.Fatalf("T(3) demanded at %d, want 5", got)
	}
	// T(3) needs the leaf at 15, T(2) only at 10.
	if got := demandOf(t, p, leaf); got != 15 {
		t.Fatalf("shared leaf demanded at %d, want 15", got)
	}
}

func TestPlanMergesRoots(t *testing.T) {
	leaf := mustLeaf(t, 2, 0, []int{4}, []int{6})
	h, err := NewHeckeTransform(leaf, 2)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	p := planFor(t, 4, h, leaf)
	if got := demandOf(t, p, h); got != 4 {
		t.Fatalf("transform demanded at %d, want 4", got)
	}
	// The leaf is both a root (4) and T(2)'s input (8).
	if got := demandOf(t, p, leaf); got != 8 {
		t.Fatalf("leaf demanded at %d, want 8", got)
	}
}

func TestPlanMonotoneInTarget(t *testing.T) {
	_, _, _, top := buildDiamond(t)
	low := planFor(t, 3, top)
	high := planFor(t, 7, top)
	for _, n := range low.Order() {
		l := demandOf(t, low, n)
		h := demandOf(t, high, n)
		if h < l {
			t.Fatalf("node %s: demand dropped from %d to %d as target rose", n.Key(), l, h)
		}
	}
}

func TestPlanNeedMatchesRequirement(t *testing.T) {
	_, h2, _, top := buildDiamond(t)
	p := planFor(t, 5, top)
	d := demandOf(t, p, h2)
	need, ok := p.Need(h2)
	if !ok {
		t.Fatal("need missing")
	}
	if need != h2.Requirement(d) {
		t.Fatalf("need %d, want Requirement(%d) = %d", need, d, h2.Requirement(d))
	}
}

func TestPlanValidation(t *testing.T) {
	leaf := mustLeaf(t, 2, 0, []int{4}, []int{6})
	if _, err := PlanPrecisions(-1, leaf); err == nil {
		t.Fatal("negative target should fail")
	}
	if _, err := PlanPrecisions(5); err == nil {
		t.Fatal("empty root set should fail")
	}
	if _, err := PlanPrecisions(5, nil); err == nil {
		t.Fatal("nil root should fail")
	}
}

// shrinkingNode violates the requirement contract on purpose.
type shrinkingNode struct{ key Key }

func (s shrinkingNode) Key() Key                 { return s.key }
func (shrinkingNode) Weight() int                { return 0 }
func (shrinkingNode) SymWeight() int             { return 0 }
func (shrinkingNode) Requirement(target int) int { return target - 1 }
func (shrinkingNode) Dependencies() []Node       { return nil }
func (shrinkingNode) Compute(context.Context, algebra.Backend, int, []algebra.Form) (algebra.Form, error) {
	return nil, nil
}
func (shrinkingNode) isNode() {}

func TestPlanRejectsShrinkingRequirement(t *testing.T) {
	n := shrinkingNode{key: newKey("test-shrinking")}
	if _, err := PlanPrecisions(5, n); err == nil {
		t.Fatal("requirement below demand should fail the plan")
	}
}
