package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const childDoc = `{
	"nodes": [
		{"id": "in", "type": "inputNode"},
		{"id": "x", "type": "expressionNode", "content": {"expressions": [{"id": "1", "key": "doubled", "value": "n * 2"}]}},
		{"id": "out", "type": "outputNode"}
	],
	"edges": [
		{"id": "1", "sourceId": "in", "targetId": "x"},
		{"id": "2", "sourceId": "x", "targetId": "out"}
	]
}`

const parentDoc = `{
	"nodes": [
		{"id": "in", "type": "inputNode"},
		{"id": "sub", "type": "decisionNode", "content": {"key": "child.json"}},
		{"id": "out", "type": "outputNode"}
	],
	"edges": [
		{"id": "1", "sourceId": "in", "targetId": "sub"},
		{"id": "2", "sourceId": "sub", "targetId": "out"}
	]
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeDecisions(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "child.json"), []byte(childDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parent.json"), []byte(parentDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"nodes": [], "edges": []}`), 0o644))
	return dir
}

func TestEval_ResolvesSubDecisionsNextToFile(t *testing.T) {
	dir := writeDecisions(t)

	out, err := execute(t, "eval", filepath.Join(dir, "parent.json"), "--set", "n=21")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, map[string]any{"doubled": 42.0}, result)
}

func TestEval_SelectAndMaxDepth(t *testing.T) {
	t.Cleanup(func() {
		evalFlags.sel = ""
		evalFlags.maxDepth = -1
	})
	dir := writeDecisions(t)

	out, err := execute(t, "eval", filepath.Join(dir, "parent.json"), "--set", "n=21", "--select", "doubled")
	require.NoError(t, err)
	assert.Equal(t, "42", strings.TrimSpace(out))

	_, err = execute(t, "eval", filepath.Join(dir, "parent.json"), "--set", "n=21", "--max-depth", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth 1 exceeds 0")
}

func TestValidate_ReportsEachFile(t *testing.T) {
	dir := writeDecisions(t)

	out, err := execute(t, "validate", filepath.Join(dir, "parent.json"), filepath.Join(dir, "broken.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out, "ok "+filepath.Join(dir, "parent.json"))
	assert.Contains(t, out, "uses child.json")
	assert.Contains(t, out, "fail "+filepath.Join(dir, "broken.json"))
}

func TestExpr(t *testing.T) {
	out, err := execute(t, "expr", "price * qty", "--set", "price=2.5", "--set", "qty=4")
	require.NoError(t, err)
	assert.Equal(t, "10", strings.TrimSpace(out))
}

func TestGraph(t *testing.T) {
	dir := writeDecisions(t)

	out, err := execute(t, "graph", filepath.Join(dir, "child.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, `"in"`)
}

func TestExpr_Check(t *testing.T) {
	t.Cleanup(func() { exprFlags.check = false })

	out, err := execute(t, "expr", "customer.age >= minAge", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "ok standard")
	assert.Contains(t, out, "reads customer")
	assert.Contains(t, out, "reads minAge")

	_, err = execute(t, "expr", "1 +", "--check")
	require.Error(t, err)
}
