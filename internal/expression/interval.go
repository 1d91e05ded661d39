package expression

import (
	"fmt"
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

// interval is a numeric range with independently open or closed bounds,
// written [a..b], (a..b), [a..b) or (a..b].
type interval struct {
	From        float64
	To          float64
	LeftClosed  bool
	RightClosed bool
}

func (iv interval) contains(x float64) bool {
	if iv.LeftClosed && x < iv.From || !iv.LeftClosed && x <= iv.From {
		return false
	}
	if iv.RightClosed && x > iv.To || !iv.RightClosed && x >= iv.To {
		return false
	}
	return true
}

func (iv interval) String() string {
	l, r := "(", ")"
	if iv.LeftClosed {
		l = "["
	}
	if iv.RightClosed {
		r = "]"
	}
	return fmt.Sprintf("%s%v..%v%s", l, iv.From, iv.To, r)
}

// rewriteIntervals replaces interval literals with calls to __interval so the
// expr parser, which only knows inclusive a..b ranges, can handle them.
func rewriteIntervals(src string) (string, error) {
	if !strings.Contains(src, "..") {
		return src, nil
	}
	var b strings.Builder
	for i := 0; i < len(src); i++ {
		c := src[i]
		if isQuote(c) {
			j, err := skipString(src, i)
			if err != nil {
				return "", err
			}
			b.WriteString(src[i : j+1])
			i = j
			continue
		}
		if c != '[' && c != '(' {
			b.WriteByte(c)
			continue
		}

		end, err := matchClose(src, i)
		if err != nil {
			return "", err
		}
		inner := src[i+1 : end]
		closer := src[end]
		rng := topLevelIndex(inner, "..")

		if rng < 0 || topLevelIndex(inner, ",") >= 0 || closer == '}' || isCallSite(src, i) {
			rewritten, err := rewriteIntervals(inner)
			if err != nil {
				return "", err
			}
			b.WriteByte(c)
			b.WriteString(rewritten)
			b.WriteByte(closer)
			i = end
			continue
		}

		from, err := rewriteIntervals(strings.TrimSpace(inner[:rng]))
		if err != nil {
			return "", err
		}
		to, err := rewriteIntervals(strings.TrimSpace(inner[rng+2:]))
		if err != nil {
			return "", err
		}
		if from == "" || to == "" {
			return "", errs.New(errs.SyntaxError, "interval %q needs both bounds", src[i:end+1])
		}
		fmt.Fprintf(&b, "__interval(%s, %s, %t, %t)", from, to, c == '[', closer == ']')
		i = end
	}
	return b.String(), nil
}

// isCallSite reports whether the bracket at i follows an operand, making it a
// call or an index rather than a literal.
func isCallSite(src string, i int) bool {
	j := i - 1
	for j >= 0 && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n') {
		j--
	}
	if j < 0 {
		return false
	}
	if src[j] == ')' || src[j] == ']' {
		return true
	}
	if !isIdentChar(src[j]) {
		return false
	}
	k := j
	for k >= 0 && isIdentChar(src[k]) {
		k--
	}
	switch src[k+1 : j+1] {
	case "in", "not", "and", "or":
		return false
	}
	return true
}

func newInterval(params ...any) (any, error) {
	if len(params) != 4 {
		return nil, fmt.Errorf("interval expects 4 arguments, got %d", len(params))
	}
	from, ok := toFloat(params[0])
	if !ok {
		return nil, errs.New(errs.TypeError, "interval bound must be a number, got %T", params[0])
	}
	to, ok := toFloat(params[1])
	if !ok {
		return nil, errs.New(errs.TypeError, "interval bound must be a number, got %T", params[1])
	}
	lc, _ := params[2].(bool)
	rc, _ := params[3].(bool)
	return interval{From: from, To: to, LeftClosed: lc, RightClosed: rc}, nil
}

func within(params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("within expects 2 arguments, got %d", len(params))
	}
	iv, ok := params[1].(interval)
	if !ok {
		return nil, errs.New(errs.TypeError, "expected interval, got %T", params[1])
	}
	if params[0] == nil {
		return false, nil
	}
	x, ok := toFloat(params[0])
	if !ok {
		return nil, errs.New(errs.TypeError, "cannot test %T against interval %s", params[0], iv)
	}
	return iv.contains(x), nil
}
