package engine

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"playlog/backend/internal/security"
)

const exportQuery = "data.playlog.export"

// DefaultPolicy scopes operators to the releases named in their token. The admin role and
// the "*" release see everything. Requests for releases outside the token are narrowed,
// and denied when nothing is left.
const DefaultPolicy = `package playlog.export

default allow := false
default unrestricted := false

unrestricted if {
	"*" in input.operator.releases
}

unrestricted if {
	input.operator.role == "admin"
}

allowed_releases contains r if {
	unrestricted
	some r in input.request.releases
}

allowed_releases contains r if {
	some r in input.request.releases
	r in input.operator.releases
}

allow if {
	input.operator.subject != ""
	unrestricted
}

allow if {
	input.operator.subject != ""
	count(allowed_releases) > 0
}
`

// OPAEvaluator evaluates export policies using OPA Rego. The policy is compiled once.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy, or DefaultPolicy when policy is empty.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"export.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(rego.Query(exportQuery), rego.Compiler(compiler)).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// LoadOPAEvaluator compiles the rego file at path, or the default policy when path is empty.
func LoadOPAEvaluator(ctx context.Context, path string) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b))
}

// HealthCheck verifies that the compiled policy evaluates.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.EvaluateExport(ctx, &security.Operator{Subject: "healthcheck"}, ExportRequest{Action: "session"})
	return err
}

// EvaluateExport evaluates the export policy for op. An operator asking for no specific
// release is treated as asking for every release in its token.
func (e *OPAEvaluator) EvaluateExport(ctx context.Context, op *security.Operator, req ExportRequest) (ExportDecision, error) {
	if op == nil {
		return ExportDecision{}, nil
	}
	requested := req.Releases
	implicit := len(requested) == 0
	if implicit {
		requested = op.Releases
	}
	input := map[string]interface{}{
		"operator": map[string]interface{}{
			"subject":  op.Subject,
			"role":     op.Role,
			"releases": toInterfaces(op.Releases),
		},
		"request": map[string]interface{}{
			"action":   req.Action,
			"releases": toInterfaces(requested),
		},
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return ExportDecision{}, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return ExportDecision{}, fmt.Errorf("policy query returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return ExportDecision{}, fmt.Errorf("policy result is %T, want object", rs[0].Expressions[0].Value)
	}

	var out ExportDecision
	out.Allowed, _ = doc["allow"].(bool)
	out.Unrestricted, _ = doc["unrestricted"].(bool)
	if raw, ok := doc["allowed_releases"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok && s != security.AllReleases {
				out.Releases = append(out.Releases, s)
			}
		}
	}
	slices.Sort(out.Releases)
	if out.Unrestricted && implicit {
		out.Releases = nil
	} else {
		out.Unrestricted = false
	}
	return out, nil
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
