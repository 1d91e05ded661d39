package decision

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

func loadGraph(t *testing.T, name string) *Graph {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	g, err := NewCompiler().Compile(data)
	require.NoError(t, err)
	return g
}

func compileString(t *testing.T, doc string) *Graph {
	t.Helper()
	g, err := NewCompiler().Compile([]byte(doc))
	require.NoError(t, err)
	return g
}

func TestCompiler_Testdata(t *testing.T) {
	g := loadGraph(t, "routing.json")

	require.Len(t, g.Nodes(), 7)
	require.Len(t, g.Edges(), 9)

	var order []string
	for _, n := range g.Order() {
		order = append(order, n.ID)
	}
	assert.Equal(t, []string{"in", "sw", "manual", "auto", "skip", "audit", "out"}, order)

	sw, ok := g.Node("sw")
	require.True(t, ok)
	assert.Equal(t, KindSwitch, sw.Kind)
	assert.Equal(t, "switchNode", sw.Kind.String())
}

func TestCompiler_YAMLDocument(t *testing.T) {
	g := loadGraph(t, "pipeline.yaml")
	assert.Len(t, g.Nodes(), 3)
}

func TestCompiler_OrderBreaksTiesByDeclaration(t *testing.T) {
	g := compileString(t, `{
		"nodes": [
			{"id": "out", "type": "outputNode"},
			{"id": "b", "type": "expressionNode"},
			{"id": "a", "type": "expressionNode"},
			{"id": "in", "type": "inputNode"}
		],
		"edges": [
			{"id": "1", "sourceId": "in", "targetId": "a"},
			{"id": "2", "sourceId": "in", "targetId": "b"},
			{"id": "3", "sourceId": "a", "targetId": "out"},
			{"id": "4", "sourceId": "b", "targetId": "out"}
		]
	}`)

	var order []string
	for _, n := range g.Order() {
		order = append(order, n.ID)
	}
	assert.Equal(t, []string{"in", "b", "a", "out"}, order)
}

func TestCompiler_Rejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "empty id",
			doc:  `{"nodes":[{"id":"","type":"inputNode"}],"edges":[]}`,
			want: "empty id",
		},
		{
			name: "duplicate id",
			doc:  `{"nodes":[{"id":"a","type":"inputNode"},{"id":"a","type":"outputNode"}],"edges":[]}`,
			want: "duplicate node id",
		},
		{
			name: "unknown type",
			doc:  `{"nodes":[{"id":"a","type":"mysteryNode"}],"edges":[]}`,
			want: "unknown node type",
		},
		{
			name: "function node",
			doc:  `{"nodes":[{"id":"a","type":"functionNode"}],"edges":[]}`,
			want: "function nodes are not supported",
		},
		{
			name: "unknown edge source",
			doc:  `{"nodes":[{"id":"in","type":"inputNode"},{"id":"out","type":"outputNode"}],"edges":[{"id":"e","sourceId":"x","targetId":"out"}]}`,
			want: "unknown source node",
		},
		{
			name: "unknown edge target",
			doc:  `{"nodes":[{"id":"in","type":"inputNode"},{"id":"out","type":"outputNode"}],"edges":[{"id":"e","sourceId":"in","targetId":"x"}]}`,
			want: "unknown target node",
		},
		{
			name: "edge into input",
			doc:  `{"nodes":[{"id":"in","type":"inputNode"},{"id":"in2","type":"inputNode"},{"id":"out","type":"outputNode"}],"edges":[{"id":"e","sourceId":"in","targetId":"in2"},{"id":"f","sourceId":"in","targetId":"out"}]}`,
			want: "targets input node",
		},
		{
			name: "cycle",
			doc: `{"nodes":[{"id":"in","type":"inputNode"},{"id":"a","type":"expressionNode"},{"id":"b","type":"expressionNode"},{"id":"out","type":"outputNode"}],
				"edges":[{"id":"1","sourceId":"in","targetId":"a"},{"id":"2","sourceId":"a","targetId":"b"},{"id":"3","sourceId":"b","targetId":"a"},{"id":"4","sourceId":"b","targetId":"out"}]}`,
			want: "cycle through nodes [a, b, out]",
		},
		{
			name: "no input",
			doc:  `{"nodes":[{"id":"out","type":"outputNode"}],"edges":[]}`,
			want: "no input node",
		},
		{
			name: "input not reaching output",
			doc:  `{"nodes":[{"id":"in","type":"inputNode"},{"id":"out","type":"outputNode"}],"edges":[]}`,
			want: "does not reach any output",
		},
		{
			name: "unknown switch handle",
			doc: `{"nodes":[{"id":"in","type":"inputNode"},{"id":"sw","type":"switchNode","content":{"statements":[{"id":"s1","condition":"true"}]}},{"id":"out","type":"outputNode"}],
				"edges":[{"id":"1","sourceId":"in","targetId":"sw"},{"id":"2","sourceId":"sw","targetId":"out","sourceHandle":"s9"}]}`,
			want: "unknown statement",
		},
		{
			name: "empty expression key",
			doc:  `{"nodes":[{"id":"x","type":"expressionNode","content":{"expressions":[{"id":"1","key":"","value":"1"}]}}],"edges":[]}`,
			want: "empty key",
		},
		{
			name: "decision without key",
			doc:  `{"nodes":[{"id":"d","type":"decisionNode","content":{}}],"edges":[]}`,
			want: "needs a key or inline content",
		},
		{
			name: "custom without kind",
			doc:  `{"nodes":[{"id":"c","type":"customNode","content":{"config":{}}}],"edges":[]}`,
			want: "custom node has no kind",
		},
		{
			name: "bad hit policy",
			doc:  `{"nodes":[{"id":"t","type":"decisionTableNode","content":{"hitPolicy":"unique"}}],"edges":[]}`,
			want: "unknown hit policy",
		},
		{
			name: "bad execution mode",
			doc:  `{"nodes":[{"id":"x","type":"expressionNode","content":{"executionMode":"parallel"}}],"edges":[]}`,
			want: "unknown execution mode",
		},
		{
			name: "bad schema",
			doc:  `{"nodes":[{"id":"in","type":"inputNode","content":{"schema":"{not json"}}],"edges":[]}`,
			want: "invalid schema",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCompiler().Compile([]byte(tc.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ValidationError), "got %v", err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCompiler_WrapsSyntaxErrors(t *testing.T) {
	_, err := NewCompiler().Compile([]byte(`{
		"nodes": [
			{"id": "x", "type": "expressionNode", "content": {"expressions": [{"id": "1", "key": "a", "value": "1 +"}]}}
		],
		"edges": []
	}`))
	require.Error(t, err)
	assert.Equal(t, errs.ValidationError, errs.KindOf(err))
	assert.ErrorIs(t, err, errs.SyntaxError)
	assert.Equal(t, "x", errs.NodeOf(err))
}

func TestCompiler_TableCellSyntaxError(t *testing.T) {
	_, err := NewCompiler().Compile([]byte(`{
		"nodes": [{"id": "t", "type": "decisionTableNode", "content": {
			"inputs": [{"id": "i", "field": "a"}],
			"outputs": [{"id": "o", "field": "b"}],
			"rules": [{"i": "> (", "o": "1"}]
		}}],
		"edges": []
	}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.SyntaxError)
	assert.Contains(t, err.Error(), `rule 0 input "i"`)
}

func TestParseDocument_Errors(t *testing.T) {
	_, err := ParseDocument(nil)
	assert.ErrorIs(t, err, errs.ParseError)

	_, err = ParseDocument([]byte(`{"nodes": [`))
	assert.ErrorIs(t, err, errs.ParseError)

	_, err = ParseDocument([]byte(`- 1`))
	assert.ErrorIs(t, err, errs.ParseError)
}

func TestGraph_SubDecisionKeys(t *testing.T) {
	g := compileString(t, `{
		"nodes": [
			{"id": "in", "type": "inputNode"},
			{"id": "d1", "type": "decisionNode", "content": {"key": "pricing.json"}},
			{"id": "d2", "type": "decisionNode", "content": {"content": {
				"nodes": [
					{"id": "in", "type": "inputNode"},
					{"id": "d", "type": "decisionNode", "content": {"key": "tax.json"}},
					{"id": "out", "type": "outputNode"}
				],
				"edges": [
					{"id": "1", "sourceId": "in", "targetId": "d"},
					{"id": "2", "sourceId": "d", "targetId": "out"}
				]
			}}},
			{"id": "out", "type": "outputNode"}
		],
		"edges": [
			{"id": "1", "sourceId": "in", "targetId": "d1"},
			{"id": "2", "sourceId": "d1", "targetId": "d2"},
			{"id": "3", "sourceId": "d2", "targetId": "out"}
		]
	}`)
	assert.Equal(t, []string{"pricing.json", "tax.json"}, g.SubDecisionKeys())
}

func TestGraph_ExportDOT(t *testing.T) {
	g := loadGraph(t, "routing.json")

	dot, err := g.ExportDOT()
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph decision")
	assert.Contains(t, dot, `"manual"`)
	assert.Contains(t, dot, "amount > 1000")
	assert.Contains(t, dot, `label="default"`)
}
