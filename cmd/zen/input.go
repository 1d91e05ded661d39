package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/awmpietro/golang-decision-engine/internal/value"
)

// readDocument reads a file, or stdin when path is "-".
func readDocument(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// loadContext builds the evaluation context from an optional JSON or YAML
// file plus --set assignments.
func loadContext(path string, sets []string) (map[string]any, error) {
	ctx := map[string]any{}
	if path != "" {
		data, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		var v any
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			v, err = value.Parse(trimmed)
		} else {
			v, err = value.ParseYAML(trimmed)
		}
		if err != nil {
			return nil, fmt.Errorf("context %s: %w", path, err)
		}
		if v != nil {
			obj, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("context %s: expected an object, got %s", path, value.TypeName(v))
			}
			ctx = obj
		}
	}
	if err := applyAssignments(ctx, sets); err != nil {
		return nil, err
	}
	return ctx, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
