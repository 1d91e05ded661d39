// Package expression compiles and evaluates the decision expression language on
// top of expr-lang. Sources are rewritten before parsing: `$` and `$nodes`
// become plain identifiers, interval literals become calls, and unary sources
// get their implicit left operand. Member access is patched to propagate null.
package expression

import (
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

type Mode int

const (
	Standard Mode = iota
	Unary
)

func (m Mode) String() string {
	if m == Unary {
		return "unary"
	}
	return "standard"
}

// Program is a compiled expression. It is immutable and safe for concurrent use.
type Program struct {
	source  string
	mode    Mode
	program *vm.Program
}

func Compile(source string) (*Program, error) {
	return compile(source, Standard)
}

func CompileUnary(source string) (*Program, error) {
	return compile(source, Unary)
}

func compile(source string, mode Mode) (*Program, error) {
	src := strings.TrimSpace(source)
	if src == "" {
		return nil, errs.New(errs.SyntaxError, "empty expression")
	}

	rewritten, err := rewriteRefs(src)
	if err != nil {
		return nil, err
	}
	rewritten, err = rewriteIntervals(rewritten)
	if err != nil {
		return nil, err
	}
	if mode == Unary {
		rewritten, err = unaryToStandard(rewritten)
		if err != nil {
			return nil, err
		}
	}

	if _, err := parser.Parse(rewritten); err != nil {
		return nil, errs.Wrap(errs.SyntaxError, err, "parse %q", source)
	}

	opts := append([]expr.Option{
		expr.AllowUndefinedVariables(),
		expr.Patch(&memberPatcher{fetches: map[ast.Node]ast.Node{}}),
	}, functions()...)

	// The source parsed, so a compile failure is a type check failure.
	prg, err := expr.Compile(rewritten, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.TypeError, err, "compile %q", source)
	}
	return &Program{source: src, mode: mode, program: prg}, nil
}

func (p *Program) Source() string { return p.source }

func (p *Program) Mode() Mode { return p.mode }

// Run evaluates the program and returns a canonical value.
func (p *Program) Run(env Env) (any, error) {
	out, err := expr.Run(p.program, map[string]any(env))
	if err != nil {
		return nil, errs.Wrap(errs.TypeError, err, "evaluate %q", p.source)
	}
	v, err := value.Normalize(out)
	if err != nil {
		return nil, errs.Wrap(errs.TypeError, err, "evaluate %q", p.source)
	}
	return v, nil
}

// Bool runs the program and coerces the result to a boolean.
func (p *Program) Bool(env Env) (bool, error) {
	out, err := p.Run(env)
	if err != nil {
		return false, err
	}
	b, err := value.Truthy(out)
	if err != nil {
		return false, errs.Wrap(errs.TypeError, err, "evaluate %q", p.source)
	}
	return b, nil
}

// Test evaluates a unary program with ref bound as the value under test.
func (p *Program) Test(ref any, env Env) (bool, error) {
	return p.Bool(env.With("$", ref))
}

// Evaluate compiles and runs source against ctx.
func Evaluate(source string, ctx any) (any, error) {
	p, err := Compile(source)
	if err != nil {
		return nil, err
	}
	return p.Run(NewEnv(ctx))
}

// EvaluateUnary compiles source as a unary expression and tests it. The value
// under test is ctx's "$" key.
func EvaluateUnary(source string, ctx any) (bool, error) {
	p, err := CompileUnary(source)
	if err != nil {
		return false, err
	}
	return p.Bool(NewEnv(ctx))
}

// Env is the variable environment handed to the VM.
type Env map[string]any

// NewEnv builds an environment from a context value. Only object contexts
// contribute variables.
func NewEnv(ctx any) Env {
	obj, ok := ctx.(map[string]any)
	if !ok {
		return Env{}
	}
	env := make(Env, len(obj))
	for k, v := range obj {
		env[envKey(k)] = v
	}
	return env
}

// With returns a copy of env with key bound to v.
func (e Env) With(key string, v any) Env {
	out := make(Env, len(e)+1)
	for k, item := range e {
		out[k] = item
	}
	out[envKey(key)] = v
	return out
}

func envKey(k string) string {
	switch k {
	case "$":
		return refIdent
	case "$nodes":
		return nodesIdent
	}
	return k
}

// memberPatcher rewrites member access into __fetch calls. Method callees are
// restored once their CallNode is visited. Integer literals become floats so
// arithmetic never runs on Go ints; positions that need an int (slice bounds,
// ranges, builtin arguments) get their literals back. % becomes __mod.
type memberPatcher struct {
	fetches map[ast.Node]ast.Node
}

func (p *memberPatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IntegerNode:
		ast.Patch(node, &ast.FloatNode{Value: float64(n.Value)})
	case *ast.SliceNode:
		n.From = integerLiteral(n.From)
		n.To = integerLiteral(n.To)
	case *ast.BuiltinNode:
		for i, arg := range n.Arguments {
			n.Arguments[i] = integerLiteral(arg)
		}
	case *ast.MemberNode:
		call := &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: "__fetch"},
			Arguments: []ast.Node{n.Node, n.Property},
		}
		p.fetches[call] = n
		ast.Patch(node, call)
	case *ast.CallNode:
		if orig, ok := p.fetches[n.Callee]; ok {
			n.Callee = orig
		}
	case *ast.BinaryNode:
		switch n.Operator {
		case "%":
			ast.Patch(node, &ast.CallNode{
				Callee:    &ast.IdentifierNode{Value: "__mod"},
				Arguments: []ast.Node{n.Left, n.Right},
			})
			return
		case "..":
			n.Left = integerLiteral(n.Left)
			n.Right = integerLiteral(n.Right)
			return
		case "in":
		default:
			return
		}
		call, ok := n.Right.(*ast.CallNode)
		if !ok {
			return
		}
		if id, ok := call.Callee.(*ast.IdentifierNode); ok && id.Value == "__interval" {
			ast.Patch(node, &ast.CallNode{
				Callee:    &ast.IdentifierNode{Value: "__within"},
				Arguments: []ast.Node{n.Left, n.Right},
			})
		}
	}
}

// integerLiteral turns a whole float literal back into an integer literal.
func integerLiteral(n ast.Node) ast.Node {
	f, ok := n.(*ast.FloatNode)
	if !ok || f.Value != math.Trunc(f.Value) || math.Abs(f.Value) > maxSafeInteger {
		return n
	}
	return &ast.IntegerNode{Value: int(f.Value)}
}
