package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	assetcore "github.com/darkbcx/asset-core2"
)

type authContextKey struct{}

// ContextFrom returns the authorization context a Guard injected into
// the request.
func ContextFrom(ctx context.Context) (*assetcore.AuthContext, bool) {
	authCtx, ok := ctx.Value(authContextKey{}).(*assetcore.AuthContext)
	return authCtx, ok
}

// Guard resolves the bearer token on every request and enforces the
// required permissions (all must hold; pass none to only require
// authentication). Unauthenticated requests get 401, authenticated but
// unauthorized ones 403.
func Guard(manager *assetcore.Manager, required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			authCtx, err := manager.ResolveContext(r.Context(), token)
			if err != nil {
				if errors.Is(err, assetcore.ErrUnauthenticated) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			if !authCtx.CanAll(required...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), authContextKey{}, authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
