// Package evaldto holds the wire types shared by the HTTP and Lambda
// transports and the mapping from engine errors to responses.
package evaldto

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/awmpietro/golang-decision-engine/internal/app"
	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

type EvaluateRequest struct {
	Content json.RawMessage     `json:"content,omitempty"`
	Context any                 `json:"context"`
	Options app.EvaluateOptions `json:"options"`
}

type ExpressionRequest struct {
	Expression string `json:"expression"`
	Context    any    `json:"context"`
}

type TemplateRequest struct {
	Template string `json:"template"`
	Context  any    `json:"context"`
}

type ResultResponse struct {
	Result any `json:"result"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	NodeID string `json:"nodeId,omitempty"`
}

// StatusFor maps an engine error to an HTTP status code.
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ParseError, errs.ValidationError, errs.SyntaxError:
		return http.StatusBadRequest
	case errs.LoaderNotFound:
		return http.StatusNotFound
	case errs.LoaderBackendFailure, errs.CustomNodeError:
		return http.StatusBadGateway
	case errs.TypeError, errs.NoMatchingRule, errs.NoMatchingBranch, errs.DepthExceeded,
		errs.SchemaViolation, errs.StepLimitExceeded, errs.UnconfiguredCustomNode:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func NewError(err error) ErrorResponse {
	kind := string(errs.KindOf(err))
	if kind == "" {
		kind = "InternalError"
	}
	return ErrorResponse{Error: ErrorDetail{Kind: kind, Detail: err.Error(), NodeID: errs.NodeOf(err)}}
}

func badRequest(detail string) (int, any) {
	return http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{Kind: "BadRequest", Detail: detail}}
}

func failure(err error) (int, any) {
	return StatusFor(err), NewError(err)
}
