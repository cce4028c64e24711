package middleware

import (
	"net/http"
	"strings"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/security"
)

// BearerPrefix is the Authorization header scheme for operator tokens.
const BearerPrefix = "Bearer "

// TokenValidator validates an operator export token.
type TokenValidator interface {
	ValidateExport(token string) (*security.Operator, error)
}

// ErrorWriter writes err as the response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// OperatorAuth requires a valid bearer export token and stores the operator in the
// request context. Missing or invalid tokens are answered with an authentication error.
func OperatorAuth(validator TokenValidator, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeErr(w, r, apperr.New(apperr.KindAuthentication, "missing bearer token"))
				return
			}
			op, err := validator.ValidateExport(token)
			if err != nil {
				writeErr(w, r, apperr.Wrap(apperr.KindAuthentication, "invalid token", err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	v := r.Header.Get("Authorization")
	if len(v) < len(BearerPrefix) || !strings.EqualFold(v[:len(BearerPrefix)], BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(v[len(BearerPrefix):])
	return token, token != ""
}
