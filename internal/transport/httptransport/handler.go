package httptransport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/awmpietro/golang-decision-engine/internal/app"
	"github.com/awmpietro/golang-decision-engine/internal/transport/evaldto"
)

// maxBodyBytes bounds request bodies; decisions are sent inline.
const maxBodyBytes = 8 << 20

type Handler struct {
	svc app.DecisionService
}

func NewHandler(svc app.DecisionService) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts every endpoint. metrics may be nil.
func (h *Handler) Routes(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Post("/evaluate", h.Evaluate)
	r.Post("/decisions/{key}/evaluate", h.EvaluateKey)
	r.Post("/expressions/evaluate", h.EvaluateExpression)
	r.Post("/expressions/unary", h.EvaluateUnary)
	r.Post("/templates/render", h.RenderTemplate)
	return r
}

// Evaluate runs the decision sent inline in the body.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	status, out := evaldto.Evaluate(r.Context(), h.svc, "", body)
	writeJSON(w, status, out)
}

// EvaluateKey runs the decision stored under the {key} path parameter. Keys
// containing "/" are sent escaped as %2F.
func (h *Handler) EvaluateKey(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, evaldto.ErrorResponse{Error: evaldto.ErrorDetail{Kind: "BadRequest", Detail: "invalid key: " + err.Error()}})
		return
	}
	status, out := evaldto.Evaluate(r.Context(), h.svc, key, body)
	writeJSON(w, status, out)
}

func (h *Handler) EvaluateExpression(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	status, out := evaldto.Expression(h.svc, body, false)
	writeJSON(w, status, out)
}

func (h *Handler) EvaluateUnary(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	status, out := evaldto.Expression(h.svc, body, true)
	writeJSON(w, status, out)
}

func (h *Handler) RenderTemplate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	status, out := evaldto.Template(h.svc, body)
	writeJSON(w, status, out)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, evaldto.ErrorResponse{Error: evaldto.ErrorDetail{Kind: "BadRequest", Detail: err.Error()}})
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
