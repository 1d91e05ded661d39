package expression

import (
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

type templatePart struct {
	text    string
	program *Program
}

// Template is a compiled string template with {{ expr }} segments.
type Template struct {
	source string
	parts  []templatePart
}

func CompileTemplate(source string) (*Template, error) {
	var parts []templatePart
	rest := source
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			if rest != "" {
				parts = append(parts, templatePart{text: rest})
			}
			break
		}
		close := strings.Index(rest[open+2:], "}}")
		if close < 0 {
			return nil, errs.New(errs.SyntaxError, "unclosed template segment in %q", source)
		}
		if open > 0 {
			parts = append(parts, templatePart{text: rest[:open]})
		}
		prg, err := Compile(rest[open+2 : open+2+close])
		if err != nil {
			return nil, err
		}
		parts = append(parts, templatePart{program: prg})
		rest = rest[open+2+close+2:]
	}
	return &Template{source: source, parts: parts}, nil
}

// Render evaluates the template. A template made of a single segment yields
// the segment's value unchanged; otherwise the result is a string where
// strings are inserted verbatim and other values as JSON.
func (t *Template) Render(env Env) (any, error) {
	if len(t.parts) == 1 && t.parts[0].program != nil {
		return t.parts[0].program.Run(env)
	}
	var b strings.Builder
	for _, p := range t.parts {
		if p.program == nil {
			b.WriteString(p.text)
			continue
		}
		v, err := p.program.Run(env)
		if err != nil {
			return nil, err
		}
		if s, ok := v.(string); ok {
			b.WriteString(s)
			continue
		}
		b.WriteString(value.Marshal(v))
	}
	return b.String(), nil
}

// RenderTemplate compiles and renders source against ctx.
func RenderTemplate(source string, ctx any) (any, error) {
	t, err := CompileTemplate(source)
	if err != nil {
		return nil, err
	}
	return t.Render(NewEnv(ctx))
}
