// Package errs defines the error taxonomy shared by every layer of the engine.
//
// Every failure carries a machine-readable Kind plus a free-form detail string.
// Kinds are themselves errors so callers can match with errors.Is:
//
//	if errors.Is(err, errs.DepthExceeded) { ... }
package errs

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ParseError             Kind = "ParseError"
	ValidationError        Kind = "ValidationError"
	LoaderNotFound         Kind = "LoaderNotFound"
	LoaderBackendFailure   Kind = "LoaderBackendFailure"
	TypeError              Kind = "TypeError"
	SyntaxError            Kind = "SyntaxError"
	NoMatchingRule         Kind = "NoMatchingRule"
	NoMatchingBranch       Kind = "NoMatchingBranch"
	DepthExceeded          Kind = "DepthExceeded"
	CustomNodeError        Kind = "CustomNodeError"
	UnconfiguredCustomNode Kind = "UnconfiguredCustomNode"
	SchemaViolation        Kind = "SchemaViolation"
	StepLimitExceeded      Kind = "StepLimitExceeded"
)

// Error is the concrete error returned by the engine.
type Error struct {
	Kind   Kind
	NodeID string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.NodeID != "" {
		fmt.Fprintf(&b, " at node %q", e.NodeID)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// AtNode returns a copy of err bound to nodeID. Errors that already name a
// node keep it: the innermost node is the most useful one to report. Errors
// from outside the engine, such as context cancellation, are returned as is.
func AtNode(err error, nodeID string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	if e.NodeID != "" {
		return err
	}
	cp := *e
	cp.NodeID = nodeID
	return &cp
}

// KindOf reports the kind of the outermost *Error in err's chain.
// Errors produced outside the engine report an empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// NodeOf reports the node id attached to err, if any.
func NodeOf(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.NodeID != "" {
			return e.NodeID
		}
		err = e.Err
	}
	return ""
}

func IsLoaderError(err error) bool {
	return errors.Is(err, LoaderNotFound) || errors.Is(err, LoaderBackendFailure)
}
