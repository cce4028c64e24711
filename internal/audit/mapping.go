package audit

import "strings"

// ActionResource holds action and resource derived from a request path.
type ActionResource struct {
	Action   string
	Resource string
}

// Path overrides for endpoints whose action is not spelled in the path.
var pathActions = map[string]ActionResource{
	"/api/user":       {Action: "find_or_create", Resource: "user"},
	"/api/session":    {Action: "create", Resource: "session"},
	"/api/event":      {Action: "ingest", Resource: "event"},
	"/api/experiment": {Action: "assign", Resource: "experiment"},
}

// ParsePath returns action and resource for a request path (e.g. /api/user/get_data).
// Resource is the segment after the /api or /admin prefix; action is the segment after it,
// or the lowercased method when the path has none.
func ParsePath(method, path string) ActionResource {
	path = strings.TrimSuffix(path, "/")
	if ar, ok := pathActions[path]; ok {
		return ar
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) < 2 || (parts[0] != "api" && parts[0] != "admin") {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	if parts[0] == "admin" && len(parts) >= 3 {
		// /admin/export/sessions/{id} -> export on sessions.
		return ActionResource{Action: parts[1], Resource: parts[2]}
	}
	if len(parts) >= 3 && parts[2] != "" {
		return ActionResource{Action: parts[2], Resource: parts[1]}
	}
	return ActionResource{Action: strings.ToLower(method), Resource: parts[1]}
}
