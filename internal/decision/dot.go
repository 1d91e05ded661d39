package decision

import (
	"strconv"

	"github.com/awalterschulze/gographviz"
)

var dotShapes = map[Kind]string{
	KindInput:      "invhouse",
	KindOutput:     "house",
	KindTable:      "box3d",
	KindExpression: "box",
	KindSwitch:     "diamond",
	KindDecision:   "component",
	KindCustom:     "hexagon",
}

// ExportDOT renders the graph in Graphviz DOT. Switch handles become edge
// labels.
func (g *Graph) ExportDOT() (string, error) {
	out := gographviz.NewGraph()
	if err := out.SetName("decision"); err != nil {
		return "", err
	}
	if err := out.SetDir(true); err != nil {
		return "", err
	}
	if err := out.AddAttr("decision", "rankdir", "LR"); err != nil {
		return "", err
	}

	for _, n := range g.order {
		attrs := map[string]string{
			"label": strconv.Quote(n.envName() + "\n" + n.Kind.String()),
			"shape": dotShapes[n.Kind],
		}
		if err := out.AddNode("decision", strconv.Quote(n.ID), attrs); err != nil {
			return "", err
		}
	}
	for _, e := range g.edges {
		attrs := map[string]string{}
		if e.Handle != "" {
			label := e.Handle
			if from := g.byID[e.From]; from.sw != nil {
				label = from.sw.label(e.Handle)
			}
			attrs["label"] = strconv.Quote(label)
		}
		if err := out.AddEdge(strconv.Quote(e.From), strconv.Quote(e.To), true, attrs); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}
