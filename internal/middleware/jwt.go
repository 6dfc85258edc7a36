package middleware

import (
	"net/http"
	"strings"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/identity"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/transport"
)

// JWT admits requests carrying a valid bearer token and stores its subject
// in the request context.
func JWT(verifier *identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r)
			if !ok {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or malformed bearer token")
				return
			}

			sub, err := verifier.Verify(tokenString)
			if err != nil {
				transport.Error(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(InjectUserID(r.Context(), sub)))
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
