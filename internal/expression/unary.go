package expression

import (
	"regexp"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

type behaviour int

const (
	compareEqual behaviour = iota
	compareIn
	asBoolean
)

var leadingOperator = regexp.MustCompile(`^(<=|>=|==|!=|<|>|not\s+in\b|in\b)`)

// unaryToStandard turns a unary source into a standard expression over the
// implicit operand. Each top-level operand is handled on its own:
//
//	'gold', 'silver'   ->  $ == 'gold' or $ == 'silver'
//	>= 18 and < 65     ->  $ >= 18 and $ < 65
//	[1, 2, 3]          ->  $ in [1, 2, 3]
//	amount > 100       ->  amount > 100
func unaryToStandard(src string) (string, error) {
	segs, err := splitTopLevel(src)
	if err != nil {
		return "", err
	}

	var out string
	for i, seg := range segs {
		part, err := unarySegment(seg.text)
		if err != nil {
			return "", err
		}
		if i == 0 {
			out = part
			continue
		}
		out = "(" + out + ") " + seg.join + " (" + part + ")"
	}
	return out, nil
}

func unarySegment(text string) (string, error) {
	if op := leadingOperator.FindString(text); op != "" {
		rest := strings.TrimSpace(text[len(op):])
		if rest == "" {
			return "", errs.New(errs.SyntaxError, "missing operand after %q", op)
		}
		op = strings.Join(strings.Fields(op), " ")
		return refIdent + " " + op + " (" + rest + ")", nil
	}

	tree, err := parser.Parse(text)
	if err != nil {
		return "", errs.Wrap(errs.SyntaxError, err, "parse %q", text)
	}

	switch classify(tree.Node) {
	case compareIn:
		return refIdent + " in (" + text + ")", nil
	case asBoolean:
		return "__bool(" + text + ")", nil
	default:
		return refIdent + " == (" + text + ")", nil
	}
}

func classify(node ast.Node) behaviour {
	switch n := node.(type) {
	case *ast.NilNode, *ast.BoolNode, *ast.IntegerNode, *ast.FloatNode, *ast.StringNode,
		*ast.ConstantNode, *ast.MapNode, *ast.IdentifierNode, *ast.MemberNode:
		return compareEqual
	case *ast.ArrayNode, *ast.SliceNode:
		return compareIn
	case *ast.ChainNode:
		return classify(n.Node)
	case *ast.UnaryNode:
		return classify(n.Node)
	case *ast.ConditionalNode:
		return combine(classify(n.Exp1), classify(n.Exp2))
	case *ast.BinaryNode:
		switch n.Operator {
		case "+", "-", "*", "/", "%", "**", "^", "??":
			return combine(classify(n.Left), classify(n.Right))
		case "..":
			return compareIn
		default:
			return asBoolean
		}
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			switch id.Value {
			case "__interval":
				return compareIn
			case "bool", "__bool":
				return asBoolean
			}
		}
		return compareEqual
	case *ast.BuiltinNode:
		switch n.Name {
		case "all", "any", "none", "one":
			return asBoolean
		case "filter", "map", "keys", "values", "sort", "uniq", "flatten", "concat":
			return compareIn
		}
		return compareEqual
	default:
		return asBoolean
	}
}

func combine(a, b behaviour) behaviour {
	if a == b {
		return a
	}
	return compareEqual
}
