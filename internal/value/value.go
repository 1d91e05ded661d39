// Package value implements the dynamically typed JSON-like value model used for
// evaluation contexts, node inputs and node outputs.
//
// A Value is a plain Go value restricted to nil, bool, float64, string, []any
// and map[string]any. float64 is the only number representation.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

// Parse decodes JSON into a canonical Value.
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "invalid json")
	}
	if dec.More() {
		return nil, errs.New(errs.ParseError, "invalid json: trailing data after value")
	}
	return v, nil
}

// ParseYAML decodes YAML into a canonical Value.
func ParseYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "invalid yaml")
	}
	out, err := Normalize(v)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "invalid yaml")
	}
	return out, nil
}

// Normalize converts an arbitrary Go value into canonical form. Values that
// are already canonical are returned as deep copies.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return t, nil
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.String())
		}
		return f, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			n, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				n, err := Normalize(iter.Value().Interface())
				if err != nil {
					return nil, err
				}
				out[iter.Key().String()] = n
			}
			return out, nil
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported value of type %T: %w", v, err)
	}
	return Parse(raw)
}

// finite rejects NaN and infinities, which have no JSON representation.
func finite(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errs.New(errs.TypeError, "non-finite number %v", f)
	}
	return f, nil
}

// Equal reports structural equality. Object key order is irrelevant.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of v.
func Clone(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// Merge deep merges src into a copy of dst. Objects merge key by key with src
// winning; any other src replaces dst. A nil src leaves dst unchanged.
func Merge(dst, src any) any {
	if src == nil {
		return Clone(dst)
	}
	d, dok := dst.(map[string]any)
	s, sok := src.(map[string]any)
	if !dok || !sok {
		return Clone(src)
	}
	out := Clone(d).(map[string]any)
	for k, sv := range s {
		if dv, ok := out[k]; ok {
			out[k] = Merge(dv, sv)
			continue
		}
		out[k] = Clone(sv)
	}
	return out
}

// Get reads a dot-separated path. Numeric segments index arrays.
func Get(v any, path string) any {
	if path == "" {
		return v
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch t := cur.(type) {
		case map[string]any:
			cur = t[seg]
		case []any:
			i, ok := index(seg, len(t))
			if !ok {
				return nil
			}
			cur = t[i]
		default:
			return nil
		}
	}
	return cur
}

// Insert writes v at a dot-separated path, creating intermediate objects and
// replacing non-object intermediates.
func Insert(obj map[string]any, path string, v any) {
	segs := strings.Split(path, ".")
	cur := obj
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = v
}

// Truthy implements the boolean coercion used by unary expressions: only
// booleans and null are boolean-coercible.
func Truthy(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	default:
		return false, errs.New(errs.TypeError, "expected boolean, got %s", TypeName(v))
	}
}

func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Marshal renders v as compact JSON. Non-finite numbers render as null.
func Marshal(v any) string {
	b, err := json.Marshal(sanitize(v))
	if err != nil {
		return "null"
	}
	return string(b)
}

func sanitize(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = sanitize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = sanitize(item)
		}
		return out
	default:
		return v
	}
}

func index(seg string, n int) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}
