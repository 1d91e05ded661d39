// Package dispatch hands custom decision nodes over to host code.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/awmpietro/golang-decision-engine/internal/value"
)

// Node describes the custom node being evaluated.
type Node struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Config any    `json:"config"`
}

type Request struct {
	Input any  `json:"input"`
	Node  Node `json:"node"`
}

type Response struct {
	Output    any `json:"output"`
	TraceData any `json:"traceData,omitempty"`
}

// Dispatcher evaluates custom nodes. Calls are synchronous and must be safe
// for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (Response, error)
}

// HandlerFunc adapts a Go function to a Dispatcher.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

func (f HandlerFunc) Dispatch(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Func adapts a string based host callback. The request is passed as JSON
// and the callback returns the response as JSON, or an error message.
type Func func(request string) (string, error)

func (f Func) Dispatch(_ context.Context, req Request) (Response, error) {
	in, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}
	out, err := f(string(in))
	if err != nil {
		return Response{}, err
	}
	raw, err := value.Parse([]byte(out))
	if err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Response{}, fmt.Errorf("decode response: expected an object, got %s", value.TypeName(raw))
	}
	return Response{Output: obj["output"], TraceData: obj["traceData"]}, nil
}

var ErrUnknownKind = errors.New("no handler registered for custom node kind")

// Registry routes requests to handlers by custom node kind.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Dispatcher
	fallback Dispatcher
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Dispatcher{}}
}

func (r *Registry) Register(kind string, d Dispatcher) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = d
	return r
}

func (r *Registry) HandleFunc(kind string, fn func(ctx context.Context, req Request) (Response, error)) *Registry {
	return r.Register(kind, HandlerFunc(fn))
}

// Fallback sets the dispatcher used for kinds without a handler.
func (r *Registry) Fallback(d Dispatcher) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = d
	return r
}

func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

func (r *Registry) Dispatch(ctx context.Context, req Request) (Response, error) {
	r.mu.RLock()
	d, ok := r.handlers[req.Node.Kind]
	if !ok {
		d = r.fallback
	}
	r.mu.RUnlock()
	if d == nil {
		return Response{}, fmt.Errorf("%w %q", ErrUnknownKind, req.Node.Kind)
	}
	return d.Dispatch(ctx, req)
}
