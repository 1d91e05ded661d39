package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/awmpietro/golang-decision-engine/internal/transport/evaldto"
)

// creditDoc routes applicants through a table and an expression node.
const creditDoc = `{
	"nodes": [
		{"id": "in", "type": "inputNode"},
		{"id": "tiers", "name": "tiers", "type": "decisionTableNode", "content": {
			"hitPolicy": "first",
			"inputs": [{"id": "age", "field": "age"}, {"id": "score", "field": "score"}],
			"outputs": [{"id": "approved", "field": "approved"}, {"id": "segment", "field": "segment"}],
			"rules": [
				{"_id": "prime", "age": ">= 18", "score": "> 700", "approved": "true", "segment": "'prime'"},
				{"_id": "review", "age": ">= 18", "score": "<= 700", "approved": "false", "segment": "'manual'"},
				{"_id": "minor", "age": "< 18", "approved": "false", "segment": "'rejected'"}
			]
		}},
		{"id": "limit", "type": "expressionNode", "content": {"passThrough": true, "expressions": [
			{"id": "1", "key": "limit", "value": "approved ? score * 10 : 0"}
		]}},
		{"id": "out", "type": "outputNode"}
	],
	"edges": [
		{"id": "e1", "sourceId": "in", "targetId": "tiers"},
		{"id": "e2", "sourceId": "tiers", "targetId": "limit"},
		{"id": "e3", "sourceId": "limit", "targetId": "out"}
	]
}`

// defaultContexts hit every row of creditDoc.
var defaultContexts = []any{
	map[string]any{"age": 25, "score": 720},
	map[string]any{"age": 41, "score": 640},
	map[string]any{"age": 16, "score": 780},
	map[string]any{"age": 67, "score": 705},
}

// sample is the outcome of one request. kind is empty on success.
type sample struct {
	latency time.Duration
	status  int
	kind    string
	segment string
}

// scenario holds the pre-encoded request bodies, one per context.
type scenario struct {
	endpoint string
	bodies   [][]byte
}

func newScenario(addr, key string, contexts []any) (*scenario, error) {
	if len(contexts) == 0 {
		return nil, fmt.Errorf("at least one context is required")
	}
	sc := &scenario{endpoint: strings.TrimRight(addr, "/") + "/evaluate"}
	var content json.RawMessage
	if key != "" {
		sc.endpoint = strings.TrimRight(addr, "/") + "/decisions/" + url.PathEscape(key) + "/evaluate"
	} else {
		content = json.RawMessage(creditDoc)
	}
	for _, c := range contexts {
		b, err := json.Marshal(evaldto.EvaluateRequest{Content: content, Context: c})
		if err != nil {
			return nil, fmt.Errorf("encode context: %w", err)
		}
		sc.bodies = append(sc.bodies, b)
	}
	return sc, nil
}

func readContexts(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contexts: %w", err)
	}
	var out []any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("contexts must be a JSON array: %w", err)
	}
	return out, nil
}

// fire sends the i-th request, rotating through the contexts.
func (sc *scenario) fire(ctx context.Context, client *http.Client, i int) sample {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.endpoint, bytes.NewReader(sc.bodies[i%len(sc.bodies)]))
	if err != nil {
		return sample{latency: time.Since(start), kind: "Transport"}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return sample{latency: time.Since(start), kind: "Transport"}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s := sample{latency: time.Since(start), status: resp.StatusCode}
	if err != nil {
		s.kind = "Transport"
		return s
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e evaldto.ErrorResponse
		if json.Unmarshal(body, &e) != nil || e.Error.Kind == "" {
			s.kind = fmt.Sprintf("HTTP%d", resp.StatusCode)
			return s
		}
		s.kind = e.Error.Kind
		return s
	}

	var ok struct {
		Result map[string]any `json:"result"`
	}
	if json.Unmarshal(body, &ok) == nil {
		s.segment, _ = ok.Result["segment"].(string)
	}
	return s
}
