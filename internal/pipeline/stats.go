package pipeline

import (
	"sync"
	"time"
)

// NodeStats aggregates one node's execution history. Observability only:
// nothing here ever feeds back into scheduling.
type NodeStats struct {
	Executions uint64
	Failures   uint64
	Total      time.Duration
	Last       time.Duration
}

// Stats collects per-node and loop-level counters. The iteration loop is
// the only writer; the mutex exists so the health endpoint can snapshot
// concurrently.
type Stats struct {
	mu         sync.Mutex
	iterations uint64
	nodes      map[string]*NodeStats
}

func newStats() *Stats {
	return &Stats{nodes: make(map[string]*NodeStats)}
}

func (s *Stats) addIteration() {
	s.mu.Lock()
	s.iterations++
	s.mu.Unlock()
}

func (s *Stats) addSuccess(nodeID string, elapsed time.Duration) {
	s.mu.Lock()
	ns := s.node(nodeID)
	ns.Executions++
	ns.Total += elapsed
	ns.Last = elapsed
	s.mu.Unlock()
}

func (s *Stats) addFailure(nodeID string, elapsed time.Duration) {
	s.mu.Lock()
	ns := s.node(nodeID)
	ns.Executions++
	ns.Failures++
	ns.Total += elapsed
	ns.Last = elapsed
	s.mu.Unlock()
}

func (s *Stats) node(nodeID string) *NodeStats {
	ns, ok := s.nodes[nodeID]
	if !ok {
		ns = &NodeStats{}
		s.nodes[nodeID] = ns
	}
	return ns
}

// Snapshot is a point-in-time copy of the collected statistics.
type Snapshot struct {
	Iterations uint64               `json:"iterations"`
	Nodes      map[string]NodeStats `json:"nodes"`
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Iterations: s.iterations,
		Nodes:      make(map[string]NodeStats, len(s.nodes)),
	}
	for id, ns := range s.nodes {
		snap.Nodes[id] = *ns
	}
	return snap
}

// NodeSnapshot returns a copy of one node's counters.
func (s *Stats) NodeSnapshot(nodeID string) NodeStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.nodes[nodeID]; ok {
		return *ns
	}
	return NodeStats{}
}
