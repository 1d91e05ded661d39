package decision

import (
	"log/slog"
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/expression"
)

type switchNode struct {
	hitPolicy  hitPolicy
	statements []compiledStatement
	ids        map[string]bool
}

type compiledStatement struct {
	id        string
	cond      *expression.Program // nil for an empty condition
	isDefault bool
}

func compileSwitch(sc switchContent) (*switchNode, error) {
	hp, err := parseHitPolicy(sc.HitPolicy)
	if err != nil {
		return nil, err
	}
	n := &switchNode{hitPolicy: hp, ids: map[string]bool{}}
	defaults := 0
	for _, st := range sc.Statements {
		id := strings.TrimSpace(st.ID)
		if id == "" {
			return nil, errs.New(errs.ValidationError, "switch statement has an empty id")
		}
		if n.ids[id] {
			return nil, errs.New(errs.ValidationError, "duplicate switch statement id %q", id)
		}
		cs := compiledStatement{id: id, isDefault: st.IsDefault}
		if st.IsDefault {
			defaults++
		}
		if src := strings.TrimSpace(st.Condition); src != "" && !st.IsDefault {
			if cs.cond, err = expression.Compile(src); err != nil {
				return nil, invalid(err, "statement %q", id)
			}
		}
		n.ids[id] = true
		n.statements = append(n.statements, cs)
	}
	if defaults > 1 {
		return nil, errs.New(errs.ValidationError, "switch declares %d default statements", defaults)
	}
	return n, nil
}

func (n *switchNode) hasStatement(id string) bool { return n.ids[id] }

// label describes a statement for rendering.
func (n *switchNode) label(id string) string {
	for _, st := range n.statements {
		if st.id != id {
			continue
		}
		switch {
		case st.isDefault:
			return "default"
		case st.cond == nil:
			return "always"
		default:
			return st.cond.Source()
		}
	}
	return id
}

// evaluate returns the selected statement ids in declaration order. The
// default statement is only selected when no other statement matched.
func (n *switchNode) evaluate(input any, nodes map[string]any, logger *slog.Logger) ([]string, error) {
	env := expression.NewEnv(input).With("$nodes", nodes)
	var selected []string
	def := ""
	for _, st := range n.statements {
		if st.isDefault {
			def = st.id
			continue
		}
		ok := true
		if st.cond != nil {
			var err error
			ok, err = st.cond.Bool(env)
			if err != nil {
				logger.Debug("switch condition failed", "statement", st.id, "expr", st.cond.Source(), "err", err)
				ok = false
			}
		}
		if !ok {
			continue
		}
		selected = append(selected, st.id)
		if n.hitPolicy == hitFirst {
			break
		}
	}
	if len(selected) > 0 {
		return selected, nil
	}
	if def != "" {
		return []string{def}, nil
	}
	return nil, errs.New(errs.NoMatchingBranch, "no switch statement matched")
}
