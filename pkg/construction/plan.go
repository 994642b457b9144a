package construction

import "fmt"

// Plan is the precision schedule for one batch: for every construction in the
// closure of the roots, the precision its artifact must reach (demand) and
// the precision it imposes on its inputs (need). Demands merge by maximum
// across shared paths and across roots, so a batch is equivalent to running
// each root separately and keeping the highest demand per key.
type Plan struct {
	target int
	order  []Node
	demand map[string]int
	need   map[string]int
}

// PlanPrecisions propagates the target precision from the roots down through
// their dependency closure. Every root's artifact is demanded at target;
// every dependency at the maximum need among its consumers.
func PlanPrecisions(target int, roots ...Node) (*Plan, error) {
	if target < 0 {
		return nil, configErrorf("target precision must not be negative, got %d", target)
	}
	if len(roots) == 0 {
		return nil, configErrorf("no root constructions given")
	}
	for i, r := range roots {
		if r == nil {
			return nil, configErrorf("root %d is nil", i)
		}
	}

	order := WalkOrder(roots...)
	demand := make(map[string]int, len(order))
	need := make(map[string]int, len(order))

	for _, r := range roots {
		k := r.Key().Canonical()
		if target > demand[k] {
			demand[k] = target
		}
	}

	// Reverse walk order lists consumers before their dependencies, so each
	// node's demand is final when reached.
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		k := n.Key().Canonical()
		d := demand[k]
		in := n.Requirement(d)
		if in < d {
			return nil, fmt.Errorf("construction %s: requirement %d below demand %d", n.Key(), in, d)
		}
		need[k] = in
		for _, dep := range n.Dependencies() {
			dk := dep.Key().Canonical()
			if in > demand[dk] {
				demand[dk] = in
			}
		}
	}

	return &Plan{target: target, order: order, demand: demand, need: need}, nil
}

// Target returns the precision the batch was planned for.
func (p *Plan) Target() int { return p.target }

// Order returns the evaluation order, dependencies before consumers, each
// distinct key once.
func (p *Plan) Order() []Node { return p.order }

// Demand returns the precision n's artifact must reach within this plan.
func (p *Plan) Demand(n Node) (int, bool) {
	d, ok := p.demand[n.Key().Canonical()]
	return d, ok
}

// Need returns the precision n imposes on its inputs within this plan.
func (p *Plan) Need(n Node) (int, bool) {
	d, ok := p.need[n.Key().Canonical()]
	return d, ok
}
