package pipeline

import "sort"

// computeOrder derives the execution order with Kahn's algorithm:
// repeatedly remove zero-in-degree nodes, appending each to the order and
// decrementing its successors' in-degree. Nodes left over once nothing is
// removable sit on (or downstream of) a cycle, which is fatal.
//
// Topological order is what makes same-iteration propagation consistent:
// every edge runs from an earlier- to a later-ordered node, so a node
// always sees its upstream values from the current iteration.
func (p *Pipeline) computeOrder() error {
	indegree := make(map[*Node]int, len(p.nodes))
	successors := make(map[*Node][]*Node, len(p.nodes))
	for _, n := range p.nodes {
		indegree[n] = 0
	}
	for _, e := range p.edges {
		indegree[e.To]++
		successors[e.From] = append(successors[e.From], e.To)
	}

	// Seed the queue in manifest order so the result is deterministic
	// across runs of the same manifest.
	var queue []*Node
	for _, n := range p.nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]*Node, 0, len(p.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, succ := range successors[n] {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(order) != len(p.nodes) {
		var stuck []string
		for n, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, n.ID)
			}
		}
		sort.Strings(stuck)
		return &CycleError{Stuck: stuck}
	}

	p.order = order
	return nil
}
