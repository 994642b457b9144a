package construction

import (
	"math/big"
	"testing"
)

func buildDiamond(t *testing.T) (leaf *Leaf, h2, h3 *HeckeTransform, top *LinearDivide) {
	t.Helper()
	leaf = mustLeaf(t, 2, 0, []int{4}, []int{6})
	var err error
	h2, err = NewHeckeTransform(leaf, 2)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	h3, err = NewHeckeTransform(leaf, 3)
	if err != nil {
		t.Fatalf("NewHeckeTransform: %v", err)
	}
	one := big.NewRat(1, 1)
	top, err = NewLinearDivide([]Node{h2, h3}, []*big.Rat{one, big.NewRat(-1, 1)}, mustMonomial(t, 4), 0)
	if err != nil {
		t.Fatalf("NewLinearDivide: %v", err)
	}
	return leaf, h2, h3, top
}

func TestWalkOrderChildrenFirst(t *testing.T) {
	_, _, _, top := buildDiamond(t)
	order := WalkOrder(top)
	if len(order) != 4 {
		t.Fatalf("got %d nodes, want 4 (shared leaf walked once)", len(order))
	}
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n.Key().Canonical()] = i
	}
	for _, n := range order {
		for _, dep := range n.Dependencies() {
			if pos[dep.Key().Canonical()] >= pos[n.Key().Canonical()] {
				t.Fatalf("dependency %s ordered after consumer %s", dep.Key(), n.Key())
			}
		}
	}
	if order[len(order)-1].Key() != top.Key() {
		t.Fatal("root must come last")
	}
}

func TestWalkOrderDeduplicatesAcrossRoots(t *testing.T) {
	leaf, h2, _, top := buildDiamond(t)
	order := WalkOrder(h2, top, leaf)
	if len(order) != 4 {
		t.Fatalf("got %d nodes, want 4", len(order))
	}
	seen := map[string]int{}
	for _, n := range order {
		seen[n.Key().Canonical()]++
	}
	for k, c := range seen {
		if c != 1 {
			t.Fatalf("key %s walked %d times", k, c)
		}
	}
}

func TestWalkOrderIsDeterministic(t *testing.T) {
	_, _, _, top := buildDiamond(t)
	a := WalkOrder(top)
	b := WalkOrder(top)
	if len(a) != len(b) {
		t.Fatalf("order lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Key().Equal(b[i].Key()) {
			t.Fatalf("order differs at %d", i)
		}
	}
}

func TestTransitiveDependencies(t *testing.T) {
	leaf, h2, h3, top := buildDiamond(t)
	deps := TransitiveDependencies(top)
	if len(deps) != 3 {
		t.Fatalf("got %d dependencies, want 3", len(deps))
	}
	want := map[string]bool{
		leaf.Key().Canonical(): true,
		h2.Key().Canonical():   true,
		h3.Key().Canonical():   true,
	}
	for _, d := range deps {
		if !want[d.Key().Canonical()] {
			t.Fatalf("unexpected dependency %s", d.Key())
		}
		if d.Key().Equal(top.Key()) {
			t.Fatal("node must not list itself")
		}
	}
	if got := TransitiveDependencies(leaf); len(got) != 0 {
		t.Fatalf("leaf has %d dependencies, want none", len(got))
	}
}
