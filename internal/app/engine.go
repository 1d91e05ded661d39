package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/awmpietro/golang-decision-engine/internal/decision"
	"github.com/awmpietro/golang-decision-engine/internal/dispatch"
	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/expression"
	"github.com/awmpietro/golang-decision-engine/internal/loader"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

// Engine owns the loader, dispatcher and limits shared by every decision it
// creates. It is configured once and safe for concurrent use.
type Engine struct {
	loader          loader.Loader
	dispatcher      dispatch.Dispatcher
	logger          *slog.Logger
	latencyObserver decision.NodeLatencyObserver
	evalObserver    EvaluationObserver
	cache           Cache
	maxSteps        int
	maxDepth        int

	compiler *decision.Compiler
	executor *decision.Executor
}

type Option func(*Engine)

func WithLoader(l loader.Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithNodeLatencyObserver(observer decision.NodeLatencyObserver) Option {
	return func(e *Engine) {
		e.latencyObserver = observer
	}
}

func WithEvaluationObserver(observer EvaluationObserver) Option {
	return func(e *Engine) {
		e.evalObserver = observer
	}
}

// WithCache memoises compiled graphs by document content.
func WithCache(c Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithMaxDepth sets the sub-decision depth used when a call does not set one.
// Zero forbids sub-decisions; negative values are ignored.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxDepth = n
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.New(slog.DiscardHandler),
		maxSteps: decision.DefaultMaxSteps,
		maxDepth: decision.DefaultMaxDepth,
		compiler: decision.NewCompiler(),
	}
	for _, opt := range opts {
		opt(e)
	}

	execOpts := []decision.ExecutorOption{
		decision.WithResolver(e),
		decision.WithLogger(e.logger),
		decision.WithMaxSteps(e.maxSteps),
	}
	if e.dispatcher != nil {
		execOpts = append(execOpts, decision.WithDispatcher(e.dispatcher))
	}
	if e.latencyObserver != nil {
		execOpts = append(execOpts, decision.WithNodeLatencyObserver(e.latencyObserver))
	}
	e.executor = decision.NewExecutor(execOpts...)
	return e
}

// CreateDecision parses and validates content. Structural problems surface
// here, before any evaluation.
func (e *Engine) CreateDecision(content []byte) (*Decision, error) {
	g, err := e.compile(content)
	if err != nil {
		return nil, err
	}
	return &Decision{engine: e, graph: g}, nil
}

// GetDecision loads key through the configured loader and compiles it.
func (e *Engine) GetDecision(ctx context.Context, key string) (*Decision, error) {
	g, err := e.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Decision{engine: e, graph: g, key: key}, nil
}

// Resolve implements decision.Resolver for sub-decision nodes.
func (e *Engine) Resolve(ctx context.Context, key string) (*decision.Graph, error) {
	if e.loader == nil {
		return nil, errs.New(errs.LoaderNotFound, "no loader configured for %q", key)
	}
	content, err := e.loader.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.compile(content)
}

func (e *Engine) Evaluate(ctx context.Context, key string, input any, opts EvaluateOptions) (*Response, error) {
	d, err := e.GetDecision(ctx, key)
	if err != nil {
		e.observe(err, 0)
		return nil, err
	}
	return d.Evaluate(ctx, input, opts)
}

func (e *Engine) EvaluateContent(ctx context.Context, content []byte, input any, opts EvaluateOptions) (*Response, error) {
	d, err := e.CreateDecision(content)
	if err != nil {
		e.observe(err, 0)
		return nil, err
	}
	return d.Evaluate(ctx, input, opts)
}

func (e *Engine) EvaluateExpression(source string, ctx any) (any, error) {
	return expression.Evaluate(source, ctx)
}

func (e *Engine) EvaluateUnaryExpression(source string, ctx any) (bool, error) {
	return expression.EvaluateUnary(source, ctx)
}

func (e *Engine) RenderTemplate(source string, ctx any) (any, error) {
	return expression.RenderTemplate(source, ctx)
}

func (e *Engine) compile(content []byte) (*decision.Graph, error) {
	if e.cache == nil {
		return e.compiler.Compile(content)
	}
	return e.cache.GetOrCompute(content, func() (*decision.Graph, error) {
		return e.compiler.Compile(content)
	})
}

func (e *Engine) observe(err error, d time.Duration) {
	if e.evalObserver != nil {
		e.evalObserver.ObserveEvaluation(err, d)
	}
}

// Decision is a compiled decision bound to its Engine. It is immutable and
// may be evaluated concurrently.
type Decision struct {
	engine *Engine
	graph  *decision.Graph
	key    string
}

// Key is the loader key the decision came from, empty for inline content.
func (d *Decision) Key() string { return d.key }

func (d *Decision) Graph() *decision.Graph { return d.graph }

// Evaluate runs the decision against input. The input is copied first and
// never mutated.
func (d *Decision) Evaluate(ctx context.Context, input any, opts EvaluateOptions) (*Response, error) {
	e := d.engine
	id := uuid.New()
	start := time.Now()

	in, err := value.Normalize(input)
	if err != nil {
		err = errs.Wrap(errs.TypeError, err, "invalid context")
		e.observe(err, time.Since(start))
		return nil, err
	}

	maxDepth := e.maxDepth
	if opts.MaxDepth != nil {
		maxDepth = *opts.MaxDepth
	}
	res, err := e.executor.Run(ctx, d.graph, in, decision.Options{Trace: opts.Trace, MaxDepth: &maxDepth})
	elapsed := time.Since(start)
	e.observe(err, elapsed)
	if err != nil {
		e.logger.Debug("decision evaluation failed",
			"evaluation_id", id.String(),
			"key", d.key,
			"kind", string(errs.KindOf(err)),
			"node_id", errs.NodeOf(err),
			"err", err,
		)
		return nil, err
	}

	e.logger.Debug("decision evaluated",
		"evaluation_id", id.String(),
		"key", d.key,
		"duration_ms", float64(elapsed.Microseconds())/1000.0,
	)
	return &Response{
		ID:          id,
		Result:      res.Output,
		Trace:       res.Trace,
		Performance: res.Performance.String(),
	}, nil
}

// Close exists for lifecycle symmetry; a Decision holds no resources.
func (d *Decision) Close() error { return nil }
