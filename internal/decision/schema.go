package decision

import (
	"encoding/json"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

// compileSchema accepts a JSON Schema either as a JSON string or as an
// already decoded object. An empty schema disables validation.
func compileSchema(raw any) (*openapi3.Schema, error) {
	var data []byte
	switch s := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		data = []byte(s)
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return nil, errs.Wrap(errs.ValidationError, err, "encode schema")
		}
		data = b
	}

	schema := openapi3.NewSchema()
	if err := schema.UnmarshalJSON(data); err != nil {
		return nil, errs.Wrap(errs.ValidationError, err, "invalid schema")
	}
	return schema, nil
}

func checkSchema(schema *openapi3.Schema, v any) error {
	if schema == nil {
		return nil
	}
	if err := schema.VisitJSON(v); err != nil {
		return errs.Wrap(errs.SchemaViolation, err, "value does not match schema")
	}
	return nil
}
