package decision

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/expression"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

type hitPolicy int

const (
	hitFirst hitPolicy = iota
	hitCollect
)

func parseHitPolicy(s string) (hitPolicy, error) {
	switch s {
	case "", "first":
		return hitFirst, nil
	case "collect":
		return hitCollect, nil
	}
	return 0, errs.New(errs.ValidationError, "unknown hit policy %q", s)
}

type table struct {
	hitPolicy  hitPolicy
	exhaustive bool
	inputs     []tableInput
	outputs    []tableColumn
	rules      []tableRule
	transform  transform
}

type tableInput struct {
	tableColumn
	// ref is the compiled field; nil when cells are standalone boolean expressions.
	ref *expression.Program
}

type tableRule struct {
	id          string
	description string
	conds       []*expression.Program
	outputs     []*expression.Program
}

func compileTable(tc tableContent) (*table, error) {
	hp, err := parseHitPolicy(tc.HitPolicy)
	if err != nil {
		return nil, err
	}
	tf, err := compileTransform(tc.TransformAttributes)
	if err != nil {
		return nil, err
	}
	t := &table{hitPolicy: hp, exhaustive: tc.Exhaustive, outputs: tc.Outputs, transform: tf}

	for _, col := range tc.Inputs {
		in := tableInput{tableColumn: col}
		if field := strings.TrimSpace(col.Field); field != "" {
			if in.ref, err = expression.Compile(field); err != nil {
				return nil, invalid(err, "input column %q field", col.ID)
			}
		}
		t.inputs = append(t.inputs, in)
	}
	for _, col := range tc.Outputs {
		if strings.TrimSpace(col.Field) == "" {
			return nil, errs.New(errs.ValidationError, "output column %q has no field", col.ID)
		}
	}

	for i, raw := range tc.Rules {
		rule := tableRule{
			id:          cellText(raw["_id"]),
			description: cellText(raw["_description"]),
			conds:       make([]*expression.Program, len(t.inputs)),
			outputs:     make([]*expression.Program, len(t.outputs)),
		}
		for j, in := range t.inputs {
			src := cellText(raw[in.ID])
			if src == "" {
				continue
			}
			compile := expression.Compile
			if in.ref != nil {
				compile = expression.CompileUnary
			}
			if rule.conds[j], err = compile(src); err != nil {
				return nil, invalid(err, "rule %d input %q", i, in.ID)
			}
		}
		for j, out := range t.outputs {
			src := cellText(raw[out.ID])
			if src == "" {
				continue
			}
			if rule.outputs[j], err = expression.Compile(src); err != nil {
				return nil, invalid(err, "rule %d output %q", i, out.ID)
			}
		}
		t.rules = append(t.rules, rule)
	}
	return t, nil
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// evaluate runs rules in declaration order. Cells that fail to evaluate do
// not match; output cells that fail abort the node.
func (t *table) evaluate(input any, nodes map[string]any, logger *slog.Logger) (any, any, error) {
	env := expression.NewEnv(input).With("$nodes", nodes)

	colEnvs := make([]expression.Env, len(t.inputs))
	colFailed := make([]bool, len(t.inputs))
	refs := map[string]any{}
	for i, in := range t.inputs {
		if in.ref == nil {
			colEnvs[i] = env
			continue
		}
		ref, err := in.ref.Run(env)
		if err != nil {
			logger.Debug("decision table field failed", "column", in.ID, "field", in.Field, "err", err)
			colFailed[i] = true
			continue
		}
		refs[in.Field] = ref
		colEnvs[i] = env.With("$", ref)
	}

	var collected []any
	var matched []any
	for i, rule := range t.rules {
		if !t.matches(rule, colEnvs, colFailed, logger) {
			continue
		}
		out, err := t.output(rule, env)
		if err != nil {
			return nil, nil, err
		}
		td := map[string]any{
			"index":         float64(i),
			"rule":          map[string]any{"_id": rule.id, "_description": rule.description},
			"reference_map": refs,
		}
		if t.hitPolicy == hitFirst {
			return out, td, nil
		}
		collected = append(collected, out)
		matched = append(matched, td)
	}

	if len(collected) == 0 {
		if t.exhaustive {
			return nil, nil, errs.New(errs.NoMatchingRule, "no rule matched")
		}
		if t.hitPolicy == hitFirst {
			return nil, nil, nil
		}
		return []any{}, []any{}, nil
	}
	return collected, matched, nil
}

func (t *table) matches(rule tableRule, envs []expression.Env, failed []bool, logger *slog.Logger) bool {
	for j, cond := range rule.conds {
		if cond == nil {
			continue
		}
		if failed[j] {
			return false
		}
		ok, err := cond.Bool(envs[j])
		if err != nil {
			logger.Debug("decision table cell failed", "rule", rule.id, "column", t.inputs[j].ID, "expr", cond.Source(), "err", err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

func (t *table) output(rule tableRule, env expression.Env) (map[string]any, error) {
	out := map[string]any{}
	for j, prg := range rule.outputs {
		if prg == nil {
			continue
		}
		v, err := prg.Run(env)
		if err != nil {
			return nil, err
		}
		value.Insert(out, t.outputs[j].Field, v)
	}
	return out, nil
}
