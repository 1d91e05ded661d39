package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc_RoundTripsJSON(t *testing.T) {
	var got string
	d := Func(func(request string) (string, error) {
		got = request
		return `{"output":{"score":7},"traceData":{"calls":1}}`, nil
	})

	resp, err := d.Dispatch(context.Background(), Request{
		Input: map[string]any{"a": 1.0},
		Node:  Node{ID: "n1", Name: "scorer", Kind: "score", Config: map[string]any{"w": 2.0}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"input":{"a":1},"node":{"id":"n1","name":"scorer","kind":"score","config":{"w":2}}}`, got)
	assert.Equal(t, map[string]any{"score": 7.0}, resp.Output)
	assert.Equal(t, map[string]any{"calls": 1.0}, resp.TraceData)
}

func TestFunc_Errors(t *testing.T) {
	_, err := Func(func(string) (string, error) { return "", errors.New("boom") }).
		Dispatch(context.Background(), Request{})
	require.EqualError(t, err, "boom")

	_, err = Func(func(string) (string, error) { return "[1]", nil }).
		Dispatch(context.Background(), Request{})
	require.ErrorContains(t, err, "expected an object")

	_, err = Func(func(string) (string, error) { return "{", nil }).
		Dispatch(context.Background(), Request{})
	require.ErrorContains(t, err, "decode response")
}

func TestRegistry_RoutesByKind(t *testing.T) {
	r := NewRegistry().
		HandleFunc("double", func(_ context.Context, req Request) (Response, error) {
			in := req.Input.(map[string]any)
			return Response{Output: map[string]any{"x": in["x"].(float64) * 2}}, nil
		})

	resp, err := r.Dispatch(context.Background(), Request{Input: map[string]any{"x": 4.0}, Node: Node{Kind: "double"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 8.0}, resp.Output)

	_, err = r.Dispatch(context.Background(), Request{Node: Node{Kind: "missing"}})
	require.ErrorIs(t, err, ErrUnknownKind)

	r.Fallback(HandlerFunc(func(context.Context, Request) (Response, error) {
		return Response{Output: "fallback"}, nil
	}))
	resp, err = r.Dispatch(context.Background(), Request{Node: Node{Kind: "missing"}})
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Output)
	assert.ElementsMatch(t, []string{"double"}, r.Kinds())
}
