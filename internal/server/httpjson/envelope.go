package httpjson

import (
	"context"
	"io"
	"net/http"

	"playlog/backend/internal/protocol"
	"playlog/backend/internal/server/middleware"
)

// Opener authenticates an envelope read from a request body.
type Opener func(ctx context.Context, body io.Reader) (*protocol.Opened, error)

// OpenEnvelope authenticates the request body with open, records the binding on the
// request and decodes the verified payload into v. v may be nil when the caller reads
// Opened.Data itself.
func OpenEnvelope(r *http.Request, open Opener, v any) (*protocol.Opened, error) {
	opened, err := open(r.Context(), r.Body)
	if err != nil {
		return nil, err
	}
	middleware.SetBinding(r.Context(), opened.Binding.String(), opened.ID)
	if v != nil {
		if err := Decode(opened.Data, v); err != nil {
			return nil, err
		}
	}
	return opened, nil
}
