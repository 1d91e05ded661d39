package lambdatransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/awmpietro/golang-decision-engine/internal/app"
	"github.com/awmpietro/golang-decision-engine/internal/transport/evaldto"
)

type Handler struct {
	svc app.DecisionService
}

func NewHandler(svc app.DecisionService) *Handler {
	return &Handler{svc: svc}
}

// Handle routes an API Gateway v2 request to the matching operation. Paths
// mirror the HTTP server.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if method := req.RequestContext.HTTP.Method; method != "" && method != http.MethodPost {
		return jsonResp(http.StatusMethodNotAllowed, evaldto.ErrorResponse{Error: evaldto.ErrorDetail{Kind: "BadRequest", Detail: "method not allowed"}}), nil
	}

	body, err := readBody(req)
	if err != nil {
		return jsonResp(http.StatusBadRequest, evaldto.ErrorResponse{Error: evaldto.ErrorDetail{Kind: "BadRequest", Detail: "invalid body: " + err.Error()}}), nil
	}

	path := strings.TrimSuffix(req.RawPath, "/")
	var status int
	var out any
	switch {
	case path == "" || path == "/evaluate":
		status, out = evaldto.Evaluate(ctx, h.svc, "", body)
	case path == "/expressions/evaluate":
		status, out = evaldto.Expression(h.svc, body, false)
	case path == "/expressions/unary":
		status, out = evaldto.Expression(h.svc, body, true)
	case path == "/templates/render":
		status, out = evaldto.Template(h.svc, body)
	default:
		key, ok := decisionKey(path, req.PathParameters)
		if !ok {
			return jsonResp(http.StatusNotFound, evaldto.ErrorResponse{Error: evaldto.ErrorDetail{Kind: "NotFound", Detail: "no route for " + req.RawPath}}), nil
		}
		status, out = evaldto.Evaluate(ctx, h.svc, key, body)
	}
	return jsonResp(status, out), nil
}

// decisionKey extracts {key} from /decisions/{key}/evaluate, preferring the
// gateway's path parameter when present.
func decisionKey(path string, params map[string]string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/decisions/")
	if !ok {
		return "", false
	}
	key, ok := strings.CutSuffix(rest, "/evaluate")
	if !ok {
		return "", false
	}
	if p := params["key"]; p != "" {
		key = p
	}
	return key, key != ""
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(body)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(b),
	}
}
