// Package httpjson writes JSON responses and maps domain errors onto them.
package httpjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/server/middleware"
)

// ErrorBody is the response body of every failed request.
type ErrorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("httpjson: encode response", "error", err)
	}
}

// WriteError writes err with the status of its kind. Unclassified errors are logged and
// answered with a generic internal error so no detail leaks to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := ErrorBody{Error: "internal", Message: "internal error"}

	var ae *apperr.Error
	if errors.As(err, &ae) && status < http.StatusInternalServerError {
		body = ErrorBody{Error: string(ae.Kind), Message: ae.Message, Fields: ae.Fields}
	} else {
		if ae != nil {
			body.Error = string(ae.Kind)
			if ae.Kind == apperr.KindStoreUnavailable {
				body.Message = ae.Message
			}
		}
		slog.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path, "request_id", middleware.RequestIDFrom(r.Context()), "error", err)
	}
	middleware.SetErrorKind(r.Context(), body.Error)
	WriteJSON(w, status, body)
}

// Decode reads a single JSON value from body into v. Unknown fields are ignored so older
// servers accept payloads from newer clients.
func Decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "payload is not a valid object", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperr.Validation("payload has trailing data")
	}
	return nil
}
