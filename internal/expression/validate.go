package expression

import (
	"sort"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

// Validate reports whether source compiles in the given mode.
func Validate(source string, mode Mode) error {
	_, err := compile(source, mode)
	return err
}

// References lists the root identifiers a standard expression reads from its
// environment, sorted. `$` and `$nodes` are reported under their source names.
func References(source string) ([]string, error) {
	rewritten, err := rewriteRefs(source)
	if err != nil {
		return nil, err
	}
	rewritten, err = rewriteIntervals(rewritten)
	if err != nil {
		return nil, err
	}
	tree, err := parser.Parse(rewritten)
	if err != nil {
		return nil, errs.Wrap(errs.SyntaxError, err, "parse %q", source)
	}

	c := &identCollector{seen: map[string]struct{}{}, callees: map[string]struct{}{}}
	ast.Walk(&tree.Node, c)

	out := make([]string, 0, len(c.seen))
	for name := range c.seen {
		if _, ok := c.callees[name]; ok {
			continue
		}
		switch name {
		case refIdent:
			name = "$"
		case nodesIdent:
			name = "$nodes"
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

type identCollector struct {
	seen    map[string]struct{}
	callees map[string]struct{}
}

func (c *identCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		c.seen[n.Value] = struct{}{}
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.callees[id.Value] = struct{}{}
		}
	}
}
