package decision

import (
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

type customNode struct {
	kind   string
	config any
}

func compileCustom(cc customContent) (*customNode, error) {
	kind := strings.TrimSpace(cc.Kind)
	if kind == "" {
		return nil, errs.New(errs.ValidationError, "custom node has no kind")
	}
	return &customNode{kind: kind, config: cc.Config}, nil
}
