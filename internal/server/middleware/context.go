// Package middleware provides the HTTP middleware chain: request info, access logging,
// request telemetry and operator authentication.
package middleware

import (
	"context"
	"sync"

	"playlog/backend/internal/security"
)

type contextKey struct{ name string }

var (
	requestInfoKey = contextKey{"request_info"}
	operatorKey    = contextKey{"operator"}
)

// RequestInfo describes the request in flight. Handlers fill in the binding and error
// kind; middleware reads them after the handler returns.
type RequestInfo struct {
	ID       string
	ClientIP string
	Method   string
	Path     string

	mu        sync.Mutex
	binding   string
	bindingID string
	errorKind string
}

// WithRequestInfo returns a context carrying info.
func WithRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// Info returns the request info from ctx, or nil outside a request.
func Info(ctx context.Context) *RequestInfo {
	info, _ := ctx.Value(requestInfoKey).(*RequestInfo)
	return info
}

// SetBinding records which release or session the request's envelope was bound to.
func SetBinding(ctx context.Context, binding, id string) {
	if info := Info(ctx); info != nil {
		info.mu.Lock()
		info.binding, info.bindingID = binding, id
		info.mu.Unlock()
	}
}

// SetErrorKind records the error kind the request failed with.
func SetErrorKind(ctx context.Context, kind string) {
	if info := Info(ctx); info != nil {
		info.mu.Lock()
		info.errorKind = kind
		info.mu.Unlock()
	}
}

// Binding returns the recorded binding and binding id.
func (i *RequestInfo) Binding() (string, string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.binding, i.bindingID
}

// ErrorKind returns the recorded error kind, "" on success.
func (i *RequestInfo) ErrorKind() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.errorKind
}

// ClientIPFrom returns the client IP of the request in ctx, or "unknown".
func ClientIPFrom(ctx context.Context) string {
	if info := Info(ctx); info != nil && info.ClientIP != "" {
		return info.ClientIP
	}
	return "unknown"
}

// PathFrom returns the path of the request in ctx, or "".
func PathFrom(ctx context.Context) string {
	if info := Info(ctx); info != nil {
		return info.Path
	}
	return ""
}

// RequestIDFrom returns the request id of the request in ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	if info := Info(ctx); info != nil {
		return info.ID
	}
	return ""
}

// WithOperator returns a context carrying the authenticated export operator.
func WithOperator(ctx context.Context, op *security.Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// GetOperator returns the operator from context and true if set; otherwise nil, false.
func GetOperator(ctx context.Context) (*security.Operator, bool) {
	op, ok := ctx.Value(operatorKey).(*security.Operator)
	return op, ok && op != nil
}
