package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

func TestRenderTemplate(t *testing.T) {
	ctx := map[string]any{"name": "world", "count": 3.0}

	cases := []struct {
		tmpl string
		want any
	}{
		{"hello {{ name }}", "hello world"},
		{"{{ count }} items for {{name}}", "3 items for world"},
		{"{{ [1, 2, 3] }}", []any{1.0, 2.0, 3.0}},
		{"{{ [1, 2, 3] }} array", "[1,2,3] array"},
		{"{{ missing }} ", "null "},
		{"no segments", "no segments"},
		{"", ""},
	}

	for _, tc := range cases {
		t.Run(tc.tmpl, func(t *testing.T) {
			got, err := RenderTemplate(tc.tmpl, ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRenderTemplate_Errors(t *testing.T) {
	_, err := RenderTemplate("hello {{ name", nil)
	assert.ErrorIs(t, err, errs.SyntaxError)

	_, err = RenderTemplate("{{ 1 + }}", nil)
	assert.ErrorIs(t, err, errs.SyntaxError)
}
