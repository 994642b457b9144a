package construction

// TransitiveDependencies returns every construction reachable below n,
// deduplicated by identity key and excluding n itself. When structurally
// equal nodes occur on different paths the first one encountered represents
// them all.
func TransitiveDependencies(n Node) []Node {
	order := WalkOrder(n)
	out := make([]Node, 0, len(order))
	for _, dep := range order {
		if dep.Key().Equal(n.Key()) {
			continue
		}
		out = append(out, dep)
	}
	return out
}

// WalkOrder returns a deterministic evaluation order covering the roots and
// all their transitive dependencies: each distinct key appears exactly once,
// and every node's dependencies appear before it. Roots are walked in the
// order given, dependencies in Dependencies() order.
func WalkOrder(roots ...Node) []Node {
	seen := make(map[string]bool)
	var order []Node
	var walk func(n Node)
	walk = func(n Node) {
		k := n.Key().Canonical()
		if seen[k] {
			return
		}
		seen[k] = true
		for _, dep := range n.Dependencies() {
			walk(dep)
		}
		order = append(order, n)
	}
	for _, r := range roots {
		if r == nil {
			continue
		}
		walk(r)
	}
	return order
}
