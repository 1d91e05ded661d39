package expression

import (
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

const (
	refIdent   = "__ref"
	nodesIdent = "__nodes"
)

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// skipString returns the index of the closing quote of the string literal
// starting at i.
func skipString(src string, i int) (int, error) {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			if quote != '`' {
				j++
			}
		case quote:
			return j, nil
		}
	}
	return 0, errs.New(errs.SyntaxError, "unterminated string literal at offset %d", i)
}

func isQuote(c byte) bool { return c == '\'' || c == '"' || c == '`' }

// rewriteRefs maps the reserved `$` and `$nodes` symbols onto identifiers
// the expr parser accepts.
func rewriteRefs(src string) (string, error) {
	if !strings.Contains(src, "$") {
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
		if c != '$' || (i > 0 && isIdentChar(src[i-1])) {
			b.WriteByte(c)
			continue
		}
		end := i + 1
		for end < len(src) && isIdentChar(src[end]) {
			end++
		}
		switch src[i+1 : end] {
		case "":
			b.WriteString(refIdent)
		case "nodes":
			b.WriteString(nodesIdent)
		default:
			b.WriteString(src[i:end])
		}
		i = end - 1
	}
	return b.String(), nil
}

type segment struct {
	join string
	text string
}

// splitTopLevel splits src on commas and logical operators that are not
// nested inside brackets or string literals. Commas join with "or".
func splitTopLevel(src string) ([]segment, error) {
	var segs []segment
	depth, start := 0, 0
	join := ""

	push := func(end, next int, nextJoin string) {
		segs = append(segs, segment{join: join, text: strings.TrimSpace(src[start:end])})
		join = nextJoin
		start = next
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case isQuote(c):
			j, err := skipString(src, i)
			if err != nil {
				return nil, err
			}
			i = j
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth < 0 {
				return nil, errs.New(errs.SyntaxError, "unbalanced %q at offset %d", c, i)
			}
		case depth > 0:
		case c == ',':
			push(i, i+1, "or")
		case (c == '&' || c == '|') && i+1 < len(src) && src[i+1] == c:
			op := "and"
			if c == '|' {
				op = "or"
			}
			push(i, i+2, op)
			i++
		case wordAt(src, i, "and"):
			push(i, i+3, "and")
			i += 2
		case wordAt(src, i, "or"):
			push(i, i+2, "or")
			i++
		}
	}
	if depth != 0 {
		return nil, errs.New(errs.SyntaxError, "unbalanced brackets")
	}
	push(len(src), len(src), "")

	for _, s := range segs {
		if s.text == "" {
			return nil, errs.New(errs.SyntaxError, "empty operand in %q", src)
		}
	}
	return segs, nil
}

func wordAt(src string, i int, word string) bool {
	if !strings.HasPrefix(src[i:], word) {
		return false
	}
	if i > 0 && isIdentChar(src[i-1]) {
		return false
	}
	end := i + len(word)
	return end == len(src) || !isIdentChar(src[end])
}

// matchClose returns the index of the bracket closing the one opened at i.
// Any closing bracket kind is accepted so half-open intervals balance.
func matchClose(src string, i int) (int, error) {
	depth := 0
	for j := i; j < len(src); j++ {
		c := src[j]
		switch {
		case isQuote(c):
			k, err := skipString(src, j)
			if err != nil {
				return 0, err
			}
			j = k
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return 0, errs.New(errs.SyntaxError, "unclosed %q at offset %d", src[i], i)
}

// topLevelIndex finds sep in src outside nested brackets and strings.
func topLevelIndex(src, sep string) int {
	depth := 0
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case isQuote(c):
			j, err := skipString(src, i)
			if err != nil {
				return -1
			}
			i = j
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case depth == 0 && strings.HasPrefix(src[i:], sep):
			return i
		}
	}
	return -1
}
