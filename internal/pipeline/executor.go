package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cira-io/cira-runtime/internal/ctxlog"
	"github.com/cira-io/cira-runtime/pkg/blockapi"
)

// DefaultRateHz is the iteration cadence used when the caller does not
// configure one.
const DefaultRateHz = 10.0

// Options configure one Run of the iteration loop.
type Options struct {
	// RateHz is the fixed iteration cadence. Zero means DefaultRateHz.
	RateHz float64
	// Iterations bounds the loop; zero runs until the context is
	// cancelled. Used by single-shot mode and automated tests.
	Iterations int
}

// Run executes the read-execute-propagate loop. Each iteration walks the
// nodes in topological order: pull every incoming edge's current source
// value into the destination's input pins, invoke the node's execute
// step, then publish its fresh outputs for later-ordered nodes within the
// same iteration.
//
// The loop is single-threaded and cooperative. It sleeps out the
// remainder of each period; an overrunning iteration is not compensated
// for — the next one simply starts immediately.
//
// A node's execute failure is recoverable: it is logged, counted, and the
// node's outputs keep their prior values for that iteration. Run only
// returns early on context cancellation, which is a clean shutdown.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	logger := ctxlog.FromContext(ctx)

	rate := opts.RateHz
	if rate <= 0 {
		rate = DefaultRateHz
	}
	period := time.Duration(float64(time.Second) / rate)

	for _, n := range p.order {
		n.state = stateRunning
	}
	logger.Info("Pipeline running.", "rate_hz", rate, "period", period, "iterations", opts.Iterations)

	for iteration := 0; opts.Iterations == 0 || iteration < opts.Iterations; iteration++ {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown requested, stopping iteration loop.", "iterations_run", iteration)
			return nil
		default:
		}

		start := time.Now()
		p.step(ctx)
		p.stats.addIteration()

		if remaining := period - time.Since(start); remaining > 0 {
			select {
			case <-ctx.Done():
				logger.Info("Shutdown requested, stopping iteration loop.", "iterations_run", iteration+1)
				return nil
			case <-time.After(remaining):
			}
		}
	}

	logger.Info("Iteration count reached, stopping.", "iterations_run", opts.Iterations)
	return nil
}

// step runs a single iteration over the execution order.
func (p *Pipeline) step(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	for _, node := range p.order {
		if err := p.pullInputs(node); err != nil {
			// A propagation failure counts against the destination node
			// like an execute failure; its outputs stay stale.
			logger.Warn("Input propagation failed.", "node", node.ID, "error", err)
			p.stats.addFailure(node.ID, 0)
			continue
		}

		begin := time.Now()
		err := node.block.Execute()
		elapsed := time.Since(begin)

		if err != nil {
			logger.Warn("Block execute failed, keeping stale outputs.", "node", node.ID, "error", err)
			p.stats.addFailure(node.ID, elapsed)
			continue
		}

		node.refreshOutputs()
		p.stats.addSuccess(node.ID, elapsed)
	}
}

// pullInputs copies the current source snapshot of every incoming edge
// into the destination block's input pins, applying the implicit numeric
// cast where the pin types call for it.
func (p *Pipeline) pullInputs(node *Node) error {
	for _, edge := range p.incoming[node] {
		v, ok := edge.From.OutputValue(edge.FromPin)
		if !ok {
			return fmt.Errorf("source %s.%s has no value", edge.From.ID, edge.FromPin)
		}
		if decl, ok := findDecl(node.block.Inputs(), edge.ToPin); ok {
			if kind, fixed := decl.Type.Kind(); fixed {
				converted, err := blockapi.Convert(v, kind)
				if err != nil {
					return fmt.Errorf("pin %s.%s: %w", node.ID, edge.ToPin, err)
				}
				v = converted
			}
		}
		if err := node.block.SetInput(edge.ToPin, v); err != nil {
			return err
		}
	}
	return nil
}
