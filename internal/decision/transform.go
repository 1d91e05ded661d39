package decision

import (
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/expression"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

type transform struct {
	inputField  *expression.Program
	outputPath  string
	loop        bool
	passThrough bool
}

func compileTransform(attrs TransformAttributes) (transform, error) {
	t := transform{
		outputPath:  strings.TrimSpace(attrs.OutputPath),
		passThrough: attrs.PassThrough,
	}
	switch attrs.ExecutionMode {
	case "", "single":
	case "loop":
		t.loop = true
	default:
		return t, errs.New(errs.ValidationError, "unknown execution mode %q", attrs.ExecutionMode)
	}
	if field := strings.TrimSpace(attrs.InputField); field != "" {
		prg, err := expression.Compile(field)
		if err != nil {
			return t, invalid(err, "input field")
		}
		t.inputField = prg
	}
	return t, nil
}

type evalFunc func(input any) (output any, traceData any, err error)

// apply runs eval under the node's transform attributes: inputField selects
// the evaluated input, loop mode maps eval over an array, outputPath nests
// the result and passThrough merges it over the node input.
func (t transform) apply(input any, nodes map[string]any, eval evalFunc) (any, any, error) {
	in := input
	if t.inputField != nil {
		v, err := t.inputField.Run(expression.NewEnv(input).With("$nodes", nodes))
		if err != nil {
			return nil, nil, err
		}
		in = v
	}

	var out, traceData any
	if !t.loop {
		var err error
		out, traceData, err = eval(in)
		if err != nil {
			return nil, nil, err
		}
	} else {
		items, ok := in.([]any)
		if !ok {
			return nil, nil, errs.New(errs.TypeError, "loop execution expects an array, got %s", value.TypeName(in))
		}
		outs := make([]any, len(items))
		traces := make([]any, len(items))
		for i, item := range items {
			o, td, err := eval(item)
			if err != nil {
				return nil, nil, err
			}
			if t.passThrough {
				o = value.Merge(item, o)
			}
			outs[i] = o
			traces[i] = td
		}
		out, traceData = outs, traces
	}

	if t.outputPath != "" {
		wrapped := map[string]any{}
		value.Insert(wrapped, t.outputPath, out)
		out = wrapped
	}
	if t.passThrough {
		out = value.Merge(input, out)
	}
	return out, traceData, nil
}
