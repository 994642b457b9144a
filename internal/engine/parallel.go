package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"siegelcore/pkg/construction"
)

// parallelNode is one construction inside the worker pool: its demand, the
// number of unmet dependencies, and the consumers to unlock once its artifact
// is durably saved. The result is written exactly once, by the worker that
// executes the node or by the skip path, and read only after the pool drains.
type parallelNode struct {
	node       construction.Node
	demand     int
	dependents []*parallelNode
	depCount   atomic.Int32
	skipOnce   sync.Once
	result     NodeResult
	err        error
}

func (r *runner) parallel(ctx context.Context) error {
	order := r.plan.Order()
	nodes := make([]*parallelNode, len(order))
	byKey := make(map[string]*parallelNode, len(order))
	for i, n := range order {
		demand, _ := r.plan.Demand(n)
		pn := &parallelNode{node: n, demand: demand}
		nodes[i] = pn
		byKey[n.Key().Canonical()] = pn
	}
	for _, pn := range nodes {
		seen := make(map[string]bool)
		for _, dep := range pn.node.Dependencies() {
			k := dep.Key().Canonical()
			if seen[k] {
				continue
			}
			seen[k] = true
			dp := byKey[k]
			dp.dependents = append(dp.dependents, pn)
			pn.depCount.Add(1)
		}
	}

	workers := r.calc.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(nodes) {
		workers = len(nodes)
	}
	r.logger.Debug("starting worker pool", "workers", workers, "constructions", len(nodes))

	readyChan := make(chan *parallelNode, len(nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, pn := range nodes {
		if pn.depCount.Load() == 0 {
			readyChan <- pn
		}
	}

	var wg sync.WaitGroup
	wg.Add(len(nodes))
	for i := 0; i < workers; i++ {
		go r.worker(runCtx, readyChan, cancel, &wg)
	}
	wg.Wait()
	close(readyChan)

	var rootCause error
	for _, pn := range nodes {
		r.report.add(pn.result)
		if rootCause == nil && pn.result.Outcome == OutcomeFailed {
			rootCause = pn.err
		}
	}
	if rootCause == nil {
		rootCause = ctx.Err()
	}
	return rootCause
}

// worker is the processing loop of one pool member. A failure cancels the
// run and transitively skips the failed construction's consumers;
// constructions already in the ready queue drain as skips.
func (r *runner) worker(ctx context.Context, readyChan chan *parallelNode, cancel context.CancelFunc, wg *sync.WaitGroup) {
	for pn := range readyChan {
		if ctx.Err() != nil {
			r.skipParallel(ctx, pn, wg, "run canceled")
			continue
		}

		res, err := r.processNode(ctx, pn.node)
		pn.result = res
		pn.err = err
		if err != nil {
			cancel()
			r.skipDependents(ctx, pn, wg, "skipped after failure of "+pn.node.Key().String())
			wg.Done()
			continue
		}

		// The artifact is saved; consumers whose last dependency this was
		// become ready.
		for _, dep := range pn.dependents {
			if dep.depCount.Add(-1) == 0 {
				readyChan <- dep
			}
		}
		wg.Done()
	}
}

// skipDependents transitively marks every consumer of a dead construction as
// skipped. Consumers hold an undecremented dependency count, so none of them
// can reach the ready queue; each must still release its pool slot here.
func (r *runner) skipDependents(ctx context.Context, pn *parallelNode, wg *sync.WaitGroup, reason string) {
	for _, dep := range pn.dependents {
		dep.skipOnce.Do(func() {
			r.logger.Debug("skipping dependent construction",
				"key", dep.node.Key().String(),
				"dead_dependency", pn.node.Key().String())
			dep.result = r.skipResult(ctx, dep.node, dep.demand, reason)
			wg.Done()
			r.skipDependents(ctx, dep, wg, reason)
		})
	}
}

// skipParallel marks a construction pulled from the ready queue after
// cancellation. Its consumers will never become ready, so they are skipped
// alongside it.
func (r *runner) skipParallel(ctx context.Context, pn *parallelNode, wg *sync.WaitGroup, reason string) {
	pn.skipOnce.Do(func() {
		pn.result = r.skipResult(ctx, pn.node, pn.demand, reason)
		wg.Done()
		r.skipDependents(ctx, pn, wg, reason)
	})
}
