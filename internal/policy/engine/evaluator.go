// Package engine decides which releases an operator may export, using OPA Rego policies.
package engine

import (
	"context"

	"playlog/backend/internal/security"
)

// ExportRequest is what an operator asked to export. Releases empty means every release
// the operator can see.
type ExportRequest struct {
	// Action is "session", "user" or "users".
	Action   string
	Releases []string
}

// ExportDecision is the outcome of export policy evaluation.
type ExportDecision struct {
	Allowed bool
	// Unrestricted means no release filter applies.
	Unrestricted bool
	// Releases is the permitted subset of the request when not Unrestricted.
	Releases []string
}

// Evaluator evaluates export access policies using OPA or other engines.
type Evaluator interface {
	// EvaluateExport decides whether op may run req and narrows the release list.
	EvaluateExport(ctx context.Context, op *security.Operator, req ExportRequest) (ExportDecision, error)
}
