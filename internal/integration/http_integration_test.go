package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/awmpietro/golang-decision-engine/internal/app"
	"github.com/awmpietro/golang-decision-engine/internal/config"
	"github.com/awmpietro/golang-decision-engine/internal/decision"
	"github.com/awmpietro/golang-decision-engine/internal/logging"
	"github.com/awmpietro/golang-decision-engine/internal/metrics"
	"github.com/awmpietro/golang-decision-engine/internal/transport/httptransport"
)

var testdataDir = filepath.Join("..", "decision", "testdata")

// newDecisionServer wires the full stack the way cmd/http does, with the
// loader selected by cfg.
func newDecisionServer(t *testing.T, cfg config.Runtime) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := metrics.New()
	observer := decision.NewAsyncNodeLatencyObserver(m, cfg.ObsBuffer)
	t.Cleanup(observer.Close)

	engine, closeEngine, err := app.NewEngineFromConfig(ctx, cfg, logging.NewNop(),
		app.WithNodeLatencyObserver(observer),
		app.WithEvaluationObserver(m),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = closeEngine() })

	srv := httptest.NewServer(httptransport.NewHandler(engine).Routes(m.Handler()))
	t.Cleanup(srv.Close)
	return srv
}

func fsConfig() config.Runtime {
	cfg := config.Defaults()
	cfg.Loader.Backend = config.BackendFS
	cfg.Loader.FSRoot = testdataDir
	return cfg
}

func post(t *testing.T, srv *httptest.Server, path string, payload any) (int, map[string]any, string) {
	t.Helper()
	status, out, body, err := postNoFatal(srv, path, payload)
	if err != nil {
		t.Fatalf("post %s failed: %v", path, err)
	}
	return status, out, body
}

func postNoFatal(srv *httptest.Server, path string, payload any) (int, map[string]any, string, error) {
	var raw []byte
	switch p := payload.(type) {
	case string:
		raw = []byte(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return 0, nil, "", err
		}
		raw = b
	}

	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		return 0, nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, "", err
	}
	var out map[string]any
	_ = json.Unmarshal(body, &out)
	return resp.StatusCode, out, string(body), nil
}

func errorKind(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	kind, _ := e["kind"].(string)
	return kind
}

func TestHTTPEvaluate_TableByKey(t *testing.T) {
	srv := newDecisionServer(t, fsConfig())

	tests := []struct {
		name         string
		customer     map[string]any
		wantTier     string
		wantDiscount float64
	}{
		{name: "minor", customer: map[string]any{"age": 12, "country": "US"}, wantTier: "minor", wantDiscount: 0},
		{name: "domestic", customer: map[string]any{"age": 30, "country": "CA"}, wantTier: "adult", wantDiscount: 0.1},
		{name: "abroad", customer: map[string]any{"age": 30, "country": "FR"}, wantTier: "adult", wantDiscount: 0},
		{name: "senior", customer: map[string]any{"age": 70, "country": "US"}, wantTier: "senior", wantDiscount: 0.2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, out, body := post(t, srv, "/decisions/tiers/evaluate", map[string]any{
				"context": map[string]any{"customer": tc.customer},
			})
			if status != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", status, body)
			}
			result, _ := out["result"].(map[string]any)
			got, _ := result["result"].(map[string]any)
			if got["tier"] != tc.wantTier || got["discount"] != tc.wantDiscount {
				t.Fatalf("unexpected result: %#v", result)
			}
		})
	}
}

func TestHTTPEvaluate_SwitchRouting(t *testing.T) {
	srv := newDecisionServer(t, fsConfig())

	status, out, body := post(t, srv, "/decisions/routing/evaluate", map[string]any{
		"context": map[string]any{"amount": 5000},
		"options": map[string]any{"trace": true},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	result := out["result"].(map[string]any)
	if result["review"] != "manual" || result["audited"] != true {
		t.Fatalf("unexpected result: %#v", result)
	}

	trace, _ := out["trace"].([]any)
	for _, raw := range trace {
		if raw.(map[string]any)["id"] == "auto" {
			t.Fatalf("deactivated branch must not appear in trace")
		}
	}
}

func TestHTTPEvaluate_InputErrors(t *testing.T) {
	srv := newDecisionServer(t, fsConfig())

	t.Run("invalid_json", func(t *testing.T) {
		status, _, _ := post(t, srv, "/evaluate", `{`)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
	})

	t.Run("unknown_key", func(t *testing.T) {
		status, out, _ := post(t, srv, "/decisions/nope/evaluate", map[string]any{"context": map[string]any{}})
		if status != http.StatusNotFound || errorKind(out) != "LoaderNotFound" {
			t.Fatalf("expected 404 LoaderNotFound, got %d %#v", status, out)
		}
	})

	t.Run("path_traversal", func(t *testing.T) {
		status, _, _ := post(t, srv, "/decisions/..%2F..%2Fgo.mod/evaluate", map[string]any{"context": map[string]any{}})
		if status != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", status)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		status, out, body := post(t, srv, "/evaluate", map[string]any{
			"content": map[string]any{
				"nodes": []any{
					map[string]any{"id": "in", "type": "inputNode"},
					map[string]any{"id": "a", "type": "expressionNode"},
					map[string]any{"id": "b", "type": "expressionNode"},
					map[string]any{"id": "out", "type": "outputNode"},
				},
				"edges": []any{
					map[string]any{"id": "1", "sourceId": "in", "targetId": "a"},
					map[string]any{"id": "2", "sourceId": "a", "targetId": "b"},
					map[string]any{"id": "3", "sourceId": "b", "targetId": "a"},
					map[string]any{"id": "4", "sourceId": "b", "targetId": "out"},
				},
			},
		})
		if status != http.StatusBadRequest || errorKind(out) != "ValidationError" {
			t.Fatalf("expected 400 ValidationError, got %d: %s", status, body)
		}
		if !strings.Contains(body, "cycle") {
			t.Fatalf("expected cycle detail, got %s", body)
		}
	})

	t.Run("zero_max_depth", func(t *testing.T) {
		status, out, body := post(t, srv, "/evaluate", map[string]any{
			"content": map[string]any{
				"nodes": []any{
					map[string]any{"id": "in", "type": "inputNode"},
					map[string]any{"id": "d", "type": "decisionNode", "content": map[string]any{"key": "tiers"}},
					map[string]any{"id": "out", "type": "outputNode"},
				},
				"edges": []any{
					map[string]any{"id": "1", "sourceId": "in", "targetId": "d"},
					map[string]any{"id": "2", "sourceId": "d", "targetId": "out"},
				},
			},
			"context": map[string]any{"customer": map[string]any{"age": 30, "country": "US"}},
			"options": map[string]any{"maxDepth": 0},
		})
		if status != http.StatusUnprocessableEntity || errorKind(out) != "DepthExceeded" {
			t.Fatalf("expected 422 DepthExceeded, got %d: %s", status, body)
		}
	})

	t.Run("non_object_context", func(t *testing.T) {
		status, out, _ := post(t, srv, "/decisions/tiers/evaluate", map[string]any{"context": []any{1, 2}})
		if status != http.StatusUnprocessableEntity || errorKind(out) != "TypeError" {
			t.Fatalf("expected 422 TypeError, got %d %#v", status, out)
		}
	})
}

func TestHTTPEvaluate_RedisLoader(t *testing.T) {
	mr := miniredis.RunT(t)
	content, err := os.ReadFile(filepath.Join(testdataDir, "tiers.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := mr.Set("decision:pricing/tiers", string(content)); err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.Loader.Backend = config.BackendRedis
	cfg.Loader.RedisAddr = mr.Addr()
	cfg.Loader.CacheTTL = 0
	srv := newDecisionServer(t, cfg)

	status, out, body := post(t, srv, "/decisions/pricing%2Ftiers/evaluate", map[string]any{
		"context": map[string]any{"customer": map[string]any{"age": 70}},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	got := out["result"].(map[string]any)["result"].(map[string]any)
	if got["tier"] != "senior" {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestHTTPMetrics_CountsEvaluations(t *testing.T) {
	srv := newDecisionServer(t, fsConfig())

	post(t, srv, "/decisions/routing/evaluate", map[string]any{"context": map[string]any{"amount": 50}})
	post(t, srv, "/decisions/nope/evaluate", map[string]any{"context": map[string]any{}})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	text := string(body)
	if !strings.Contains(text, `decision_evaluations_total{error_kind="",outcome="success"} 1`) {
		t.Fatalf("missing ok counter in:\n%s", text)
	}
	if !strings.Contains(text, `decision_evaluations_total{error_kind="LoaderNotFound",outcome="error"} 1`) {
		t.Fatalf("missing error counter in:\n%s", text)
	}
}

func TestHTTPEvaluate_ConcurrentRequests(t *testing.T) {
	srv := newDecisionServer(t, fsConfig())

	const n = 80
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			amount := []int{5000, 500, 5}[i%3]
			want := []string{"manual", "auto", "none"}[i%3]

			status, out, body, err := postNoFatal(srv, "/decisions/routing/evaluate", map[string]any{
				"context": map[string]any{"amount": amount},
			})
			if err != nil {
				errs <- err
				return
			}
			if status != http.StatusOK {
				errs <- &integrationErr{msg: "status not ok", body: body}
				return
			}
			result, _ := out["result"].(map[string]any)
			if result["review"] != want {
				errs <- &integrationErr{msg: "unexpected review", body: body}
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}

type integrationErr struct {
	msg  string
	body string
}

func (e *integrationErr) Error() string {
	return e.msg + ": " + e.body
}
