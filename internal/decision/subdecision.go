package decision

import (
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

// decisionRef points a decision node at another graph: either a loader key
// resolved at evaluation time or inline content compiled with the parent.
type decisionRef struct {
	key       string
	inline    *Graph
	transform transform
}

func (c *Compiler) compileDecisionRef(dc decisionContent) (*decisionRef, error) {
	tf, err := compileTransform(dc.TransformAttributes)
	if err != nil {
		return nil, err
	}
	ref := &decisionRef{key: strings.TrimSpace(dc.Key), transform: tf}
	if len(dc.Content) > 0 {
		doc, err := DocumentFromValue(dc.Content)
		if err != nil {
			return nil, invalid(err, "inline decision")
		}
		if ref.inline, err = c.CompileDocument(doc); err != nil {
			return nil, invalid(err, "inline decision")
		}
		return ref, nil
	}
	if ref.key == "" {
		return nil, errs.New(errs.ValidationError, "decision node needs a key or inline content")
	}
	return ref, nil
}
