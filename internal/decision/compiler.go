package decision

import (
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

// Compiler turns decision documents into executable graphs. Every structural
// problem is reported here so a compiled Graph never fails structurally
// during evaluation.
type Compiler struct{}

func NewCompiler() *Compiler { return &Compiler{} }

// Compile parses and compiles a JSON or YAML document.
func (c *Compiler) Compile(data []byte) (*Graph, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return c.CompileDocument(doc)
}

func (c *Compiler) CompileDocument(doc *Document) (*Graph, error) {
	if doc == nil {
		return nil, errs.New(errs.ValidationError, "decision document is nil")
	}

	g := &Graph{
		doc:      doc,
		byID:     make(map[string]*Node, len(doc.Nodes)),
		incoming: map[string][]*Edge{},
		outgoing: map[string][]*Edge{},
	}

	// 1) Nodes
	for _, spec := range doc.Nodes {
		id := strings.TrimSpace(spec.ID)
		if id == "" {
			return nil, errs.New(errs.ValidationError, "node %q has an empty id", spec.Name)
		}
		if _, dup := g.byID[id]; dup {
			return nil, errs.New(errs.ValidationError, "duplicate node id %q", id)
		}
		n, err := c.compileNode(id, spec)
		if err != nil {
			return nil, errs.AtNode(err, id)
		}
		g.nodes = append(g.nodes, n)
		g.byID[id] = n
	}

	// 2) Edges
	for _, spec := range doc.Edges {
		from, ok := g.byID[spec.SourceID]
		if !ok {
			return nil, errs.New(errs.ValidationError, "edge %q references unknown source node %q", spec.ID, spec.SourceID)
		}
		to, ok := g.byID[spec.TargetID]
		if !ok {
			return nil, errs.New(errs.ValidationError, "edge %q references unknown target node %q", spec.ID, spec.TargetID)
		}
		if to.Kind == KindInput {
			return nil, errs.New(errs.ValidationError, "edge %q targets input node %q", spec.ID, to.ID)
		}
		handle := strings.TrimSpace(spec.SourceHandle)
		if handle != "" && from.sw != nil && !from.sw.hasStatement(handle) {
			return nil, errs.New(errs.ValidationError, "edge %q references unknown statement %q of switch %q", spec.ID, handle, from.ID)
		}

		e := &Edge{ID: spec.ID, From: from.ID, To: to.ID, Handle: handle}
		g.edges = append(g.edges, e)
		g.outgoing[e.From] = append(g.outgoing[e.From], e)
		g.incoming[e.To] = append(g.incoming[e.To], e)
	}

	// 3) Ordering
	order, stuck := topoOrder(g.nodes, g.outgoing)
	if stuck != nil {
		return nil, errs.New(errs.ValidationError, "graph contains a cycle through nodes [%s]", strings.Join(stuck, ", "))
	}
	g.order = order

	// 4) Reachability
	inputs := 0
	for _, n := range g.nodes {
		if n.Kind != KindInput {
			continue
		}
		inputs++
		if !g.reachesOutput(n.ID) {
			return nil, errs.New(errs.ValidationError, "input node %q does not reach any output node", n.ID)
		}
	}
	if inputs == 0 {
		return nil, errs.New(errs.ValidationError, "decision has no input node")
	}

	return g, nil
}

func (c *Compiler) compileNode(id string, spec NodeSpec) (*Node, error) {
	if spec.Type == "functionNode" {
		return nil, errs.New(errs.ValidationError, "function nodes are not supported")
	}
	kind, ok := kindOf(spec.Type)
	if !ok {
		return nil, errs.New(errs.ValidationError, "unknown node type %q", spec.Type)
	}

	n := &Node{ID: id, Name: spec.Name, Kind: kind}
	content := spec.Content
	if content == nil {
		content = map[string]any{}
	}

	var err error
	switch kind {
	case KindInput, KindOutput:
		var io ioContent
		if err = decodeContent(content, &io); err == nil {
			n.schema, err = compileSchema(io.Schema)
		}
	case KindTable:
		var tc tableContent
		if err = decodeContent(content, &tc); err == nil {
			n.table, err = compileTable(tc)
		}
	case KindExpression:
		var ec expressionContent
		if err = decodeContent(content, &ec); err == nil {
			n.expressions, err = compileExpressions(ec)
		}
	case KindSwitch:
		var sc switchContent
		if err = decodeContent(content, &sc); err == nil {
			n.sw, err = compileSwitch(sc)
		}
	case KindDecision:
		var dc decisionContent
		if err = decodeContent(content, &dc); err == nil {
			n.decision, err = c.compileDecisionRef(dc)
		}
	case KindCustom:
		var cc customContent
		if err = decodeContent(content, &cc); err == nil {
			n.custom, err = compileCustom(cc)
		}
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func decodeContent(content map[string]any, out any) error {
	if err := decode(content, out); err != nil {
		return errs.Wrap(errs.ValidationError, err, "invalid node content")
	}
	return nil
}

// invalid marks a compile failure inside node content as a validation error.
func invalid(err error, format string, args ...any) error {
	return errs.Wrap(errs.ValidationError, err, format, args...)
}
