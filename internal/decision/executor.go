package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/awmpietro/golang-decision-engine/internal/dispatch"
	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

const (
	DefaultMaxSteps = 10_000
	DefaultMaxDepth = 5
)

// Resolver loads and compiles sub-decisions referenced by key.
type Resolver interface {
	Resolve(ctx context.Context, key string) (*Graph, error)
}

type ResolverFunc func(ctx context.Context, key string) (*Graph, error)

func (f ResolverFunc) Resolve(ctx context.Context, key string) (*Graph, error) { return f(ctx, key) }

type Options struct {
	Trace bool
	// MaxDepth bounds sub-decision nesting. Nil uses DefaultMaxDepth and zero
	// forbids sub-decisions.
	MaxDepth *int
}

type Result struct {
	Output      any
	Trace       []NodeTrace
	Performance time.Duration
}

type Executor struct {
	resolver        Resolver
	dispatcher      dispatch.Dispatcher
	latencyObserver NodeLatencyObserver
	logger          *slog.Logger
	maxSteps        int
}

type ExecutorOption func(*Executor)

func WithResolver(r Resolver) ExecutorOption {
	return func(e *Executor) {
		e.resolver = r
	}
}

func WithDispatcher(d dispatch.Dispatcher) ExecutorOption {
	return func(e *Executor) {
		e.dispatcher = d
	}
}

func WithNodeLatencyObserver(observer NodeLatencyObserver) ExecutorOption {
	return func(e *Executor) {
		e.latencyObserver = observer
	}
}

func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxSteps bounds node visits per call, sub-decisions included.
func WithMaxSteps(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger:   slog.New(slog.DiscardHandler),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates g against input. Errors abort the whole call: no partial
// output is returned.
func (e *Executor) Run(ctx context.Context, g *Graph, input any, opts Options) (*Result, error) {
	if g == nil {
		return nil, errs.New(errs.ValidationError, "decision graph is nil")
	}
	if input == nil {
		input = map[string]any{}
	}
	if _, ok := input.(map[string]any); !ok {
		return nil, errs.New(errs.TypeError, "context must be an object, got %s", value.TypeName(input))
	}

	maxDepth := DefaultMaxDepth
	if opts.MaxDepth != nil {
		maxDepth = *opts.MaxDepth
	}
	if maxDepth < 0 {
		return nil, errs.New(errs.ValidationError, "max depth must not be negative, got %d", maxDepth)
	}
	r := &run{e: e, trace: opts.Trace, maxDepth: maxDepth}

	start := time.Now()
	out, trace, err := r.graph(ctx, g, input, 0)
	if err != nil {
		return nil, err
	}
	return &Result{Output: out, Trace: trace, Performance: time.Since(start)}, nil
}

// run holds the state of one Run call.
type run struct {
	e        *Executor
	trace    bool
	maxDepth int
	steps    int
}

func (r *run) graph(ctx context.Context, g *Graph, input any, depth int) (any, []NodeTrace, error) {
	outputs := make(map[string]any, len(g.nodes))
	executed := make(map[string]bool, len(g.nodes))
	inactive := map[*Edge]bool{}
	nodes := map[string]any{}

	var result any = map[string]any{}
	var trace []NodeTrace

	for _, n := range g.order {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		in := input
		if n.Kind != KindInput {
			active := false
			in = nil
			for _, edge := range g.incoming[n.ID] {
				if !executed[edge.From] || inactive[edge] {
					continue
				}
				active = true
				in = value.Merge(in, outputs[edge.From])
			}
			if !active {
				continue
			}
		}

		r.steps++
		if r.steps > r.e.maxSteps {
			return nil, nil, errs.New(errs.StepLimitExceeded, "more than %d node visits", r.e.maxSteps)
		}

		nodeStart := time.Now()
		out, traceData, err := r.node(ctx, g, n, in, nodes, inactive, depth)
		elapsed := time.Since(nodeStart)
		r.e.observeNodeLatency(n, elapsed)
		if err != nil {
			return nil, nil, errs.AtNode(err, n.ID)
		}

		executed[n.ID] = true
		outputs[n.ID] = out
		nodes[n.envName()] = out
		if n.Kind == KindOutput {
			result = value.Merge(result, out)
		}
		if r.trace {
			trace = append(trace, NodeTrace{
				ID:          n.ID,
				Name:        n.Name,
				Kind:        n.Kind.String(),
				Input:       in,
				Output:      out,
				Order:       len(trace),
				Performance: elapsed.String(),
				TraceData:   traceData,
			})
		}
	}
	return result, trace, nil
}

func (r *run) node(ctx context.Context, g *Graph, n *Node, in any, nodes map[string]any, inactive map[*Edge]bool, depth int) (any, any, error) {
	switch n.Kind {
	case KindInput, KindOutput:
		if err := checkSchema(n.schema, in); err != nil {
			return nil, nil, err
		}
		return in, nil, nil

	case KindTable:
		logger := r.e.logger.With("node_id", n.ID)
		return n.table.transform.apply(in, nodes, func(x any) (any, any, error) {
			return n.table.evaluate(x, nodes, logger)
		})

	case KindExpression:
		return n.expressions.transform.apply(in, nodes, func(x any) (any, any, error) {
			return n.expressions.evaluate(x, nodes)
		})

	case KindSwitch:
		selected, err := n.sw.evaluate(in, nodes, r.e.logger.With("node_id", n.ID))
		if err != nil {
			return nil, nil, err
		}
		chosen := make(map[string]bool, len(selected))
		ids := make([]any, len(selected))
		for i, id := range selected {
			chosen[id] = true
			ids[i] = id
		}
		for _, edge := range g.outgoing[n.ID] {
			if edge.Handle != "" && !chosen[edge.Handle] {
				inactive[edge] = true
			}
		}
		return in, map[string]any{"statements": ids}, nil

	case KindDecision:
		return n.decision.transform.apply(in, nodes, func(x any) (any, any, error) {
			return r.subDecision(ctx, n.decision, x, depth)
		})

	case KindCustom:
		return r.custom(ctx, n, in)
	}
	return nil, nil, errs.New(errs.ValidationError, "unsupported node kind %s", n.Kind)
}

func (r *run) subDecision(ctx context.Context, ref *decisionRef, input any, depth int) (any, any, error) {
	if depth+1 > r.maxDepth {
		return nil, nil, errs.New(errs.DepthExceeded, "sub-decision depth %d exceeds %d", depth+1, r.maxDepth)
	}

	sub := ref.inline
	if sub == nil {
		if r.e.resolver == nil {
			return nil, nil, errs.New(errs.LoaderNotFound, "no loader configured for %q", ref.key)
		}
		var err error
		if sub, err = r.e.resolver.Resolve(ctx, ref.key); err != nil {
			return nil, nil, err
		}
	}

	out, trace, err := r.graph(ctx, sub, input, depth+1)
	if err != nil {
		return nil, nil, err
	}
	if !r.trace {
		return out, nil, nil
	}
	return out, trace, nil
}

func (r *run) custom(ctx context.Context, n *Node, in any) (any, any, error) {
	if r.e.dispatcher == nil {
		return nil, nil, errs.New(errs.UnconfiguredCustomNode, "no dispatcher configured for kind %q", n.custom.kind)
	}
	resp, err := r.e.dispatcher.Dispatch(ctx, dispatch.Request{
		Input: in,
		Node: dispatch.Node{
			ID:     n.ID,
			Name:   n.Name,
			Kind:   n.custom.kind,
			Config: n.custom.config,
		},
	})
	if err != nil {
		return nil, nil, errs.Wrap(errs.CustomNodeError, err, "custom node kind %q", n.custom.kind)
	}
	out, err := value.Normalize(resp.Output)
	if err != nil {
		return nil, nil, errs.Wrap(errs.CustomNodeError, err, "custom node kind %q returned an invalid value", n.custom.kind)
	}
	return out, resp.TraceData, nil
}

func (e *Executor) observeNodeLatency(n *Node, duration time.Duration) {
	if e.latencyObserver == nil {
		return
	}
	e.latencyObserver.ObserveNodeLatency(NodeLatency{NodeID: n.ID, Kind: n.Kind, Duration: duration})
}
