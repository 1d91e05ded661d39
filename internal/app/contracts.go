package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/awmpietro/golang-decision-engine/internal/decision"
)

// DecisionService is what the transports need from the engine.
type DecisionService interface {
	Evaluate(ctx context.Context, key string, input any, opts EvaluateOptions) (*Response, error)
	EvaluateContent(ctx context.Context, content []byte, input any, opts EvaluateOptions) (*Response, error)
	EvaluateExpression(source string, ctx any) (any, error)
	EvaluateUnaryExpression(source string, ctx any) (bool, error)
	RenderTemplate(source string, ctx any) (any, error)
}

type Cache interface {
	GetOrCompute(content []byte, fn func() (*decision.Graph, error)) (*decision.Graph, error)
}

// EvaluationObserver is told about every decision evaluation; err is nil on
// success.
type EvaluationObserver interface {
	ObserveEvaluation(err error, duration time.Duration)
}

// EvaluateOptions tune one call. A nil MaxDepth uses the engine default.
type EvaluateOptions struct {
	Trace    bool `json:"trace"`
	MaxDepth *int `json:"maxDepth,omitempty"`
}

type Response struct {
	ID          uuid.UUID            `json:"id"`
	Result      any                  `json:"result"`
	Trace       []decision.NodeTrace `json:"trace,omitempty"`
	Performance string               `json:"performance"`
}
