package evaldto

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/awmpietro/golang-decision-engine/internal/app"
)

// Evaluate handles an evaluation body. An empty key evaluates the inline
// content of the request.
func Evaluate(ctx context.Context, svc app.DecisionService, key string, body []byte) (int, any) {
	var in EvaluateRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return badRequest("invalid json: " + err.Error())
	}

	var (
		resp *app.Response
		err  error
	)
	if key != "" {
		resp, err = svc.Evaluate(ctx, key, in.Context, in.Options)
	} else {
		if len(in.Content) == 0 || string(in.Content) == "null" {
			return badRequest("content is required")
		}
		resp, err = svc.EvaluateContent(ctx, in.Content, in.Context, in.Options)
	}
	if err != nil {
		return failure(err)
	}
	return http.StatusOK, resp
}

func Expression(svc app.DecisionService, body []byte, unary bool) (int, any) {
	var in ExpressionRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return badRequest("invalid json: " + err.Error())
	}
	if strings.TrimSpace(in.Expression) == "" {
		return badRequest("expression is required")
	}

	var (
		out any
		err error
	)
	if unary {
		out, err = svc.EvaluateUnaryExpression(in.Expression, in.Context)
	} else {
		out, err = svc.EvaluateExpression(in.Expression, in.Context)
	}
	if err != nil {
		return failure(err)
	}
	return http.StatusOK, ResultResponse{Result: out}
}

func Template(svc app.DecisionService, body []byte) (int, any) {
	var in TemplateRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return badRequest("invalid json: " + err.Error())
	}
	out, err := svc.RenderTemplate(in.Template, in.Context)
	if err != nil {
		return failure(err)
	}
	return http.StatusOK, ResultResponse{Result: out}
}
