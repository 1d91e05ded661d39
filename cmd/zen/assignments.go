package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/value"
)

// applyAssignments sets each path=value pair on ctx. Paths are dotted and
// values are parsed as literals.
func applyAssignments(ctx map[string]any, raw []string) error {
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("invalid assignment %q (expected path=value)", part)
		}

		path := strings.TrimSpace(kv[0])
		if path == "" {
			return fmt.Errorf("empty path in assignment %q", part)
		}
		value.Insert(ctx, path, parseLiteral(strings.TrimSpace(kv[1])))
	}
	return nil
}

func parseLiteral(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		if s[0] == '\'' {
			s = `"` + s[1:len(s)-1] + `"`
		}
		if unq, err := strconv.Unquote(s); err == nil {
			return unq
		}
	}

	// JSON arrays and objects
	if len(s) > 0 && (s[0] == '[' || s[0] == '{') {
		if v, err := value.Parse([]byte(s)); err == nil {
			return v
		}
	}

	return s
}
