// ABOUTME: Viewer authentication middleware.
// ABOUTME: Reads the bearer token from the Authorization header or session cookie and derives the viewer identity.

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	apierrors "github.com/2389/teamhub/internal/errors"
)

// CookieName is the cookie browsers carry the viewer token in
const CookieName = "teamhub_token"

type contextKey string

const viewerContextKey contextKey = "viewer"

// Viewer is the authenticated user a request acts for
type Viewer struct {
	ID    string // stable identity used to key per-viewer state
	Token string // forwarded verbatim to the backend
}

// Anonymous reports whether the request carried no token
func (v Viewer) Anonymous() bool {
	return v.Token == ""
}

// Middleware attaches the request's Viewer to its context. Anonymous requests pass through.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		v := Viewer{ID: viewerID(token), Token: token}
		ctx := context.WithValue(r.Context(), viewerContextKey, v)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireViewer rejects anonymous requests with 401
func RequireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ViewerFromContext(r.Context()).Anonymous() {
			apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrUnauthorized, "Sign in to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ViewerFromContext returns the request's Viewer, or the anonymous viewer
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerContextKey).(Viewer)
	return v
}

// WithViewer returns a context carrying v
func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, v)
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if token != "" {
			return token
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// viewerID derives a stable identity from token. "user:<name>" tokens become
// "user-<name>"; opaque tokens become "tok-<digest>" so the raw token never becomes
// a key. The prefixes keep the two namespaces from colliding.
func viewerID(token string) string {
	if token == "" {
		return ""
	}
	if name, ok := strings.CutPrefix(token, "user:"); ok && name != "" {
		return "user-" + name
	}
	sum := sha256.Sum256([]byte(token))
	return "tok-" + hex.EncodeToString(sum[:8])
}
