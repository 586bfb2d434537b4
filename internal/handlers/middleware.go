package handlers

import (
	"context"
	"net/http"

	"github.com/vente/apiserver/internal/auth"
	"github.com/vente/apiserver/types"
)

// IdentityResolver resolves a bearer token to an account.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (types.User, error)
}

// Authenticate rejects requests without a bearer token that resolves to an
// account and stores the account in the request context.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeServiceError(w, r, auth.ErrUnauthenticated)
				return
			}

			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireActive must run after Authenticate.
func RequireActive(next http.Handler) http.Handler {
	return requirePolicy(auth.RequireActive)(next)
}

// RequireSuperuser must run after Authenticate. Inactive superusers are
// rejected as well.
func RequireSuperuser(next http.Handler) http.Handler {
	return requirePolicy(func(user types.User) error {
		if err := auth.RequireActive(user); err != nil {
			return err
		}
		return auth.RequireSuperuser(user)
	})(next)
}

func requirePolicy(check func(types.User) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				writeServiceError(w, r, auth.ErrUnauthenticated)
				return
			}
			if err := check(user); err != nil {
				writeServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(r *http.Request) (types.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return types.User{}, auth.ErrUnauthenticated
	}
	return user, nil
}
