package decision

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Graph is a validated, compiled decision document. It is immutable and safe
// for concurrent evaluation.
type Graph struct {
	doc      *Document
	nodes    []*Node
	byID     map[string]*Node
	edges    []*Edge
	incoming map[string][]*Edge
	outgoing map[string][]*Edge
	order    []*Node
}

type Node struct {
	ID   string
	Name string
	Kind Kind

	schema      *openapi3.Schema
	table       *table
	expressions *expressionNode
	sw          *switchNode
	decision    *decisionRef
	custom      *customNode
}

// envName is the key under which the node's output is exposed in $nodes.
func (n *Node) envName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

type Edge struct {
	ID     string
	From   string
	To     string
	Handle string
}

func (g *Graph) Document() *Document { return g.doc }

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []*Node { return g.nodes }

func (g *Graph) Edges() []*Edge { return g.edges }

// Order returns the nodes in evaluation order.
func (g *Graph) Order() []*Node { return g.order }

func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// SubDecisionKeys lists the loader keys referenced by decision nodes,
// including those of inline sub-decisions.
func (g *Graph) SubDecisionKeys() []string {
	var keys []string
	for _, n := range g.nodes {
		if n.decision == nil {
			continue
		}
		if n.decision.inline != nil {
			keys = append(keys, n.decision.inline.SubDecisionKeys()...)
			continue
		}
		keys = append(keys, n.decision.key)
	}
	return keys
}

// topoOrder runs Kahn's algorithm, always releasing the earliest declared
// ready node first. It returns the ids left over when the graph has a cycle.
func topoOrder(nodes []*Node, outgoing map[string][]*Edge) ([]*Node, []string) {
	index := make(map[string]int, len(nodes))
	indeg := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	for _, edges := range outgoing {
		for _, e := range edges {
			indeg[e.To]++
		}
	}

	var ready []int
	for i, n := range nodes {
		if indeg[n.ID] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]*Node, 0, len(nodes))
	for len(ready) > 0 {
		best := 0
		for i := range ready {
			if ready[i] < ready[best] {
				best = i
			}
		}
		n := nodes[ready[best]]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, n)

		for _, e := range outgoing[n.ID] {
			indeg[e.To]--
			if indeg[e.To] == 0 {
				ready = append(ready, index[e.To])
			}
		}
	}

	if len(order) == len(nodes) {
		return order, nil
	}
	var stuck []string
	for _, n := range nodes {
		if indeg[n.ID] > 0 {
			stuck = append(stuck, n.ID)
		}
	}
	return nil, stuck
}

// reachesOutput reports whether an output node is reachable from id.
func (g *Graph) reachesOutput(id string) bool {
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if g.byID[cur].Kind == KindOutput {
			return true
		}
		for _, e := range g.outgoing[cur] {
			if !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return false
}
