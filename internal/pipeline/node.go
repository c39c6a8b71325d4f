// Package pipeline builds the execution graph from a parsed manifest and
// runs the read-execute-propagate loop at a fixed cadence.
package pipeline

import (
	"context"
	"fmt"

	"github.com/cira-io/cira-runtime/internal/blockload"
	"github.com/cira-io/cira-runtime/internal/catalog"
	"github.com/cira-io/cira-runtime/internal/ctxlog"
	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// nodeState is the per-node lifecycle: Uninitialized -> Initialized ->
// Running -> ShutDown. ShutDown is terminal.
type nodeState int

const (
	stateUninitialized nodeState = iota
	stateInitialized
	stateRunning
	stateShutDown
)

// Node is the runtime instantiation of one manifest block entry. It owns
// exactly one block instance and the current value of every declared pin.
type Node struct {
	ID    string
	def   *catalog.Definition
	block blockapi.Block
	lib   *blockload.Library

	state nodeState

	// outputs is the snapshot of output pin values after the node's last
	// successful execute. A failed execute leaves it untouched, so
	// downstream nodes see the prior (stale) values for that iteration.
	outputs map[string]blockapi.Value

	config map[string]blockapi.Value
}

// Block exposes the underlying block instance, primarily for tests.
func (n *Node) Block() blockapi.Block { return n.block }

// OutputValue returns the node's current snapshot for one output pin.
func (n *Node) OutputValue(pin string) (blockapi.Value, bool) {
	v, ok := n.outputs[pin]
	return v, ok
}

// init runs the block's construction contract and primes the output
// snapshot with zero values (overlaid with anything the block published
// during Init).
func (n *Node) init(ctx context.Context) error {
	if err := n.block.Init(n.config); err != nil {
		return err
	}
	n.outputs = make(map[string]blockapi.Value, len(n.block.Outputs()))
	for _, decl := range n.block.Outputs() {
		kind, fixed := decl.Type.Kind()
		if !fixed {
			kind = blockapi.KindFloat
		}
		n.outputs[decl.Name] = blockapi.Zero(kind)
		if v, ok := n.block.Output(decl.Name); ok {
			n.outputs[decl.Name] = v
		}
	}
	n.state = stateInitialized
	ctxlog.FromContext(ctx).Debug("Node initialized.", "node", n.ID, "type", n.def.Type)
	return nil
}

// refreshOutputs copies the block's freshly computed output values into
// the snapshot after a successful execute.
func (n *Node) refreshOutputs() {
	for _, decl := range n.block.Outputs() {
		if v, ok := n.block.Output(decl.Name); ok {
			n.outputs[decl.Name] = v
		}
	}
}

// shutdown tears the node down: block shutdown, then destroy, then the
// backing library reference. Idempotent, and safe on a node that never
// initialized, so teardown can sweep every node regardless of how far the
// build got.
func (n *Node) shutdown(ctx context.Context) {
	if n.state == stateShutDown {
		return
	}
	wasLive := n.state != stateUninitialized
	n.state = stateShutDown

	if wasLive {
		n.block.Shutdown()
	}
	if n.lib != nil {
		n.lib.DestroyBlock(n.block)
		n.lib.Release()
	}
	ctxlog.FromContext(ctx).Debug("Node shut down.", "node", n.ID)
}

// mergedConfig overlays the manifest instance configuration on the
// definition's defaults, converting raw JSON values to pin values.
func mergedConfig(def *catalog.Definition, raw map[string]any) (map[string]blockapi.Value, error) {
	cfg := make(map[string]blockapi.Value, len(def.Defaults)+len(raw))
	for k, v := range def.Defaults {
		cfg[k] = v
	}
	for k, rawVal := range raw {
		v, err := blockapi.FromAny(rawVal)
		if err != nil {
			return nil, fmt.Errorf("config key %q: %w", k, err)
		}
		cfg[k] = v
	}
	return cfg, nil
}
