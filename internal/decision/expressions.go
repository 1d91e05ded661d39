package decision

import (
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/expression"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

type expressionNode struct {
	entries   []compiledEntry
	transform transform
}

type compiledEntry struct {
	key string
	prg *expression.Program
}

func compileExpressions(ec expressionContent) (*expressionNode, error) {
	tf, err := compileTransform(ec.TransformAttributes)
	if err != nil {
		return nil, err
	}
	n := &expressionNode{transform: tf}
	for _, e := range ec.Expressions {
		key := strings.TrimSpace(e.Key)
		if key == "" {
			return nil, errs.New(errs.ValidationError, "expression %q has an empty key", e.ID)
		}
		prg, err := expression.Compile(e.Value)
		if err != nil {
			return nil, invalid(err, "expression %q", key)
		}
		n.entries = append(n.entries, compiledEntry{key: key, prg: prg})
	}
	return n, nil
}

// evaluate runs entries in order. Each entry sees the output built so far as `$`.
func (n *expressionNode) evaluate(input any, nodes map[string]any) (any, any, error) {
	env := expression.NewEnv(input).With("$nodes", nodes)
	out := map[string]any{}
	traceData := map[string]any{}
	for _, e := range n.entries {
		v, err := e.prg.Run(env.With("$", out))
		if err != nil {
			return nil, nil, err
		}
		value.Insert(out, e.key, v)
		traceData[e.key] = map[string]any{"result": value.Marshal(v)}
	}
	return out, traceData, nil
}
