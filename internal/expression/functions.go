package expression

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

const maxSafeInteger = 1 << 53

func functions() []expr.Option {
	return []expr.Option{
		expr.Function("__fetch", fetch),
		expr.Function("__interval", newInterval),
		expr.Function("__within", within),
		expr.Function("__bool", asBool),
		expr.Function("__mod", mod),
		expr.Function("avg", avg),
		expr.Function("number", number),
		expr.Function("bool", toBool),
	}
}

// fetch implements member access with null propagation: missing keys,
// out-of-range indexes and access on null all yield null.
func fetch(params ...any) (any, error) {
	from, key := params[0], params[1]
	switch f := from.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		k, ok := key.(string)
		if !ok {
			return nil, errs.New(errs.TypeError, "object key must be a string, got %T", key)
		}
		return f[k], nil
	case []any:
		i, ok := toIndex(key, len(f))
		if !ok {
			return nil, nil
		}
		return f[i], nil
	}

	rv := reflect.ValueOf(from)
	switch rv.Kind() {
	case reflect.Map:
		k, ok := key.(string)
		if !ok || rv.Type().Key().Kind() != reflect.String {
			return nil, errs.New(errs.TypeError, "cannot access %v on %T", key, from)
		}
		v := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Slice, reflect.Array:
		i, ok := toIndex(key, rv.Len())
		if !ok {
			return nil, nil
		}
		return rv.Index(i).Interface(), nil
	}
	return nil, errs.New(errs.TypeError, "cannot access property %v of %s", key, value.TypeName(from))
}

func toIndex(key any, n int) (int, bool) {
	f, ok := toFloat(key)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	i := int(f)
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asBool(params ...any) (any, error) {
	b, err := value.Truthy(params[0])
	if err != nil {
		return nil, err
	}
	return b, nil
}

func avg(params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("avg expects 1 argument, got %d", len(params))
	}
	rv := reflect.ValueOf(params[0])
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errs.New(errs.TypeError, "avg expects an array, got %s", value.TypeName(params[0]))
	}
	if rv.Len() == 0 {
		return nil, nil
	}
	var sum float64
	for i := range rv.Len() {
		f, ok := toFloat(rv.Index(i).Interface())
		if !ok {
			return nil, errs.New(errs.TypeError, "avg expects numbers, got %T", rv.Index(i).Interface())
		}
		sum += f
	}
	return sum / float64(rv.Len()), nil
}

func number(params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("number expects 1 argument, got %d", len(params))
	}
	switch v := params[0].(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, errs.New(errs.TypeError, "cannot convert %q to number", v)
		}
		return f, nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	}
	if f, ok := toFloat(params[0]); ok {
		return f, nil
	}
	return nil, errs.New(errs.TypeError, "cannot convert %s to number", value.TypeName(params[0]))
}

func toBool(params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("bool expects 1 argument, got %d", len(params))
	}
	switch v := params[0].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		switch strings.TrimSpace(strings.ToLower(v)) {
		case "true":
			return true, nil
		case "false", "":
			return false, nil
		}
		return nil, errs.New(errs.TypeError, "cannot convert %q to bool", v)
	}
	if f, ok := toFloat(params[0]); ok {
		return f != 0, nil
	}
	return true, nil
}

// mod is % over any numeric operands, with the sign of the dividend.
func mod(params ...any) (any, error) {
	a, okA := toFloat(params[0])
	b, okB := toFloat(params[1])
	if !okA || !okB {
		return nil, errs.New(errs.TypeError, "invalid operation: %s %% %s", value.TypeName(params[0]), value.TypeName(params[1]))
	}
	if b == 0 {
		return nil, errs.New(errs.TypeError, "modulo by zero")
	}
	return math.Mod(a, b), nil
}
