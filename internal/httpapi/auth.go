package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"valet/internal/store"
)

type authContextKey struct{}

// AuthMiddleware resolves the caller's session for staff endpoints. Webhooks
// and health checks stay public; they carry their own verification.
func AuthMiddleware(st store.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := st.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return store.Session{}, false
	}
	session, ok := value.(store.Session)
	return session, ok
}

func requirePrivileged(w http.ResponseWriter, r *http.Request) bool {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return false
	}
	if session.Role != store.RolePrivileged {
		writeError(w, http.StatusForbidden, "access_denied", "privileged role required")
		return false
	}
	return true
}

func actorFromRequest(r *http.Request) string {
	if session, ok := sessionFromContext(r.Context()); ok {
		return session.UserID
	}
	return ""
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch {
	case r.URL.Path == "/healthz" || r.URL.Path == "/debug/vars":
		return true
	case strings.HasPrefix(r.URL.Path, "/webhooks/"):
		return true
	default:
		return r.Method == http.MethodOptions
	}
}
