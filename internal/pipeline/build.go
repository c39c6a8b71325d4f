package pipeline

import (
	"context"
	"fmt"

	"github.com/cira-io/cira-runtime/internal/blockload"
	"github.com/cira-io/cira-runtime/internal/catalog"
	"github.com/cira-io/cira-runtime/internal/ctxlog"
	"github.com/cira-io/cira-runtime/internal/locate"
	"github.com/cira-io/cira-runtime/internal/manifest"
	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// Edge is one directed connection in the built graph, keyed by pins on
// both ends.
type Edge struct {
	From    *Node
	FromPin string
	To      *Node
	ToPin   string
}

// Pipeline is a fully built, validated, initialized execution graph.
type Pipeline struct {
	nodes []*Node
	byID  map[string]*Node
	edges []Edge

	// order is the topological execution order; incoming groups each
	// node's inbound edges so the loop pulls them without rescanning.
	order    []*Node
	incoming map[*Node][]Edge

	stats *Stats

	shutDown bool
}

// Build constructs the execution graph: one node per manifest entry
// (library opened through the loader, block constructed), every
// connection re-validated against the live block instances, topological
// order computed, and finally every node initialized in execution order.
//
// Any failure tears down whatever was already constructed — in reverse
// initialization order, idempotently — and returns the error. A partial
// pipeline is never returned.
func Build(ctx context.Context, man *manifest.Manifest, reg *catalog.Registry, loader blockload.Loader, resolved *locate.Resolved) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building pipeline graph.", "blocks", len(man.Blocks), "connections", len(man.Connections))

	p := &Pipeline{
		byID:     make(map[string]*Node, len(man.Blocks)),
		incoming: make(map[*Node][]Edge),
		stats:    newStats(),
	}

	fail := func(err error) (*Pipeline, error) {
		p.Shutdown(ctx)
		return nil, err
	}

	// Instantiate one node per manifest block entry.
	for i := range man.Blocks {
		entry := &man.Blocks[i]
		node, err := p.instantiate(entry, reg, loader, resolved)
		if err != nil {
			return fail(err)
		}
		p.nodes = append(p.nodes, node)
		p.byID[entry.ID] = node
	}

	// Record edges, re-validating direction and type compatibility
	// against the live block instances. The parser already checked the
	// catalog; a plugin whose pins drift from its shipped definition is
	// caught here.
	for _, conn := range man.Connections {
		if err := p.addEdge(conn); err != nil {
			return fail(err)
		}
	}

	if err := p.computeOrder(); err != nil {
		return fail(err)
	}

	for _, node := range p.order {
		if err := node.init(ctx); err != nil {
			return fail(&InitError{NodeID: node.ID, Err: err})
		}
	}

	logger.Info("Pipeline built.", "nodes", len(p.nodes), "edges", len(p.edges))
	return p, nil
}

func (p *Pipeline) instantiate(entry *manifest.Block, reg *catalog.Registry, loader blockload.Loader, resolved *locate.Resolved) (*Node, error) {
	def, ok := reg.Lookup(entry.Type)
	if !ok {
		return nil, &ValidationError{NodeID: entry.ID, Detail: fmt.Sprintf("unknown block type %q", entry.Type)}
	}

	path, ok := resolved.PathFor(entry.Type, entry.Version)
	if !ok {
		return nil, &ValidationError{
			NodeID: entry.ID,
			Detail: fmt.Sprintf("no resolved library for type %q version %q", entry.Type, entry.Version),
		}
	}

	lib, err := loader.Open(path)
	if err != nil {
		return nil, err
	}

	cfg, err := mergedConfig(def, entry.Config)
	if err != nil {
		lib.Release()
		return nil, &ValidationError{NodeID: entry.ID, Detail: err.Error()}
	}

	block := lib.NewBlock()
	block.SetID(entry.ID)

	return &Node{
		ID:     entry.ID,
		def:    def,
		block:  block,
		lib:    lib,
		config: cfg,
	}, nil
}

func (p *Pipeline) addEdge(conn manifest.Connection) error {
	from, ok := p.byID[conn.From.Node]
	if !ok {
		return &ValidationError{NodeID: conn.From.Node, Detail: "connection references unknown node"}
	}
	to, ok := p.byID[conn.To.Node]
	if !ok {
		return &ValidationError{NodeID: conn.To.Node, Detail: "connection references unknown node"}
	}

	fromDecl, ok := findDecl(from.block.Outputs(), conn.From.Pin)
	if !ok {
		return &ValidationError{
			NodeID: from.ID,
			Detail: fmt.Sprintf("block exposes no output pin %q", conn.From.Pin),
		}
	}
	toDecl, ok := findDecl(to.block.Inputs(), conn.To.Pin)
	if !ok {
		return &ValidationError{
			NodeID: to.ID,
			Detail: fmt.Sprintf("block exposes no input pin %q", conn.To.Pin),
		}
	}

	if !blockapi.Compatible(fromDecl.Type, toDecl.Type) {
		return &ValidationError{
			NodeID: to.ID,
			Detail: fmt.Sprintf("pin %s (%s) cannot feed pin %s (%s)", conn.From, fromDecl.Type, conn.To, toDecl.Type),
		}
	}

	edge := Edge{From: from, FromPin: conn.From.Pin, To: to, ToPin: conn.To.Pin}
	p.edges = append(p.edges, edge)
	p.incoming[to] = append(p.incoming[to], edge)
	return nil
}

func findDecl(decls []blockapi.PinDecl, name string) (blockapi.PinDecl, bool) {
	for _, d := range decls {
		if d.Name == name {
			return d, true
		}
	}
	return blockapi.PinDecl{}, false
}

// Shutdown tears down every node in reverse initialization order. Safe to
// call multiple times and on partially built pipelines; hardware
// resources are released even when the build failed halfway.
func (p *Pipeline) Shutdown(ctx context.Context) {
	if p.shutDown {
		return
	}
	p.shutDown = true

	// Nodes that made it into the execution order shut down in reverse
	// of it; nodes constructed but never ordered follow afterwards.
	seen := make(map[*Node]bool, len(p.nodes))
	for i := len(p.order) - 1; i >= 0; i-- {
		p.order[i].shutdown(ctx)
		seen[p.order[i]] = true
	}
	for i := len(p.nodes) - 1; i >= 0; i-- {
		if !seen[p.nodes[i]] {
			p.nodes[i].shutdown(ctx)
		}
	}
	ctxlog.FromContext(ctx).Info("Pipeline shut down.", "nodes", len(p.nodes))
}

// Order returns the node ids in execution order.
func (p *Pipeline) Order() []string {
	ids := make([]string, len(p.order))
	for i, n := range p.order {
		ids[i] = n.ID
	}
	return ids
}

// Node returns a built node by id.
func (p *Pipeline) Node(id string) (*Node, bool) {
	n, ok := p.byID[id]
	return n, ok
}

// Stats returns the pipeline's statistics collector.
func (p *Pipeline) Stats() *Stats { return p.stats }
