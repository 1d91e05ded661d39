package decision

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

// Document is a decision document as authored (JDM format).
type Document struct {
	Nodes []NodeSpec `json:"nodes" mapstructure:"nodes"`
	Edges []EdgeSpec `json:"edges" mapstructure:"edges"`
}

type NodeSpec struct {
	ID      string         `json:"id" mapstructure:"id"`
	Name    string         `json:"name" mapstructure:"name"`
	Type    string         `json:"type" mapstructure:"type"`
	Content map[string]any `json:"content,omitempty" mapstructure:"content"`
}

type EdgeSpec struct {
	ID           string `json:"id" mapstructure:"id"`
	SourceID     string `json:"sourceId" mapstructure:"sourceId"`
	TargetID     string `json:"targetId" mapstructure:"targetId"`
	SourceHandle string `json:"sourceHandle,omitempty" mapstructure:"sourceHandle"`
}

// Kind is the closed set of node kinds the executor knows how to run.
type Kind int

const (
	KindInput Kind = iota + 1
	KindOutput
	KindTable
	KindExpression
	KindSwitch
	KindDecision
	KindCustom
)

var kindTypes = map[Kind]string{
	KindInput:      "inputNode",
	KindOutput:     "outputNode",
	KindTable:      "decisionTableNode",
	KindExpression: "expressionNode",
	KindSwitch:     "switchNode",
	KindDecision:   "decisionNode",
	KindCustom:     "customNode",
}

func (k Kind) String() string {
	if s, ok := kindTypes[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func kindOf(nodeType string) (Kind, bool) {
	for k, s := range kindTypes {
		if s == nodeType {
			return k, true
		}
	}
	return 0, false
}

type ioContent struct {
	Schema any `mapstructure:"schema"`
}

// TransformAttributes shape the input and output of table, expression and
// decision nodes.
type TransformAttributes struct {
	InputField    string `mapstructure:"inputField"`
	OutputPath    string `mapstructure:"outputPath"`
	ExecutionMode string `mapstructure:"executionMode"`
	PassThrough   bool   `mapstructure:"passThrough"`
}

type tableContent struct {
	HitPolicy  string           `mapstructure:"hitPolicy"`
	Exhaustive bool             `mapstructure:"exhaustive"`
	Inputs     []tableColumn    `mapstructure:"inputs"`
	Outputs    []tableColumn    `mapstructure:"outputs"`
	Rules      []map[string]any `mapstructure:"rules"`

	TransformAttributes `mapstructure:",squash"`
}

type tableColumn struct {
	ID    string `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Field string `mapstructure:"field"`
}

type expressionContent struct {
	Expressions []expressionEntry `mapstructure:"expressions"`

	TransformAttributes `mapstructure:",squash"`
}

type expressionEntry struct {
	ID    string `mapstructure:"id"`
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

type switchContent struct {
	HitPolicy  string            `mapstructure:"hitPolicy"`
	Statements []switchStatement `mapstructure:"statements"`
}

type switchStatement struct {
	ID        string `mapstructure:"id"`
	Condition string `mapstructure:"condition"`
	IsDefault bool   `mapstructure:"isDefault"`
}

type decisionContent struct {
	Key     string         `mapstructure:"key"`
	Content map[string]any `mapstructure:"content"`

	TransformAttributes `mapstructure:",squash"`
}

type customContent struct {
	Kind   string `mapstructure:"kind"`
	Config any    `mapstructure:"config"`
}

// ParseDocument decodes a JSON or YAML decision document.
func ParseDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errs.New(errs.ParseError, "empty decision document")
	}

	var raw any
	var err error
	if trimmed[0] == '{' {
		raw, err = value.Parse(trimmed)
	} else {
		raw, err = value.ParseYAML(trimmed)
	}
	if err != nil {
		return nil, err
	}
	return DocumentFromValue(raw)
}

// DocumentFromValue decodes an already parsed document value.
func DocumentFromValue(raw any) (*Document, error) {
	if _, ok := raw.(map[string]any); !ok {
		return nil, errs.New(errs.ParseError, "decision document must be an object, got %s", value.TypeName(raw))
	}
	var doc Document
	if err := decode(raw, &doc); err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "decode decision document")
	}
	return &doc, nil
}

// MarshalJSONIndent renders the document back into indented JDM JSON.
func (d *Document) MarshalJSONIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
