package auth

import (
	"context"
	"strings"

	"github.com/vente/apiserver/types"
)

type userContextKey struct{}

// ContextWithUser attaches the authenticated account to the context.
func ContextWithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, &user)
}

// UserFromContext extracts the authenticated account from the context.
func UserFromContext(ctx context.Context) (types.User, bool) {
	if ctx == nil {
		return types.User{}, false
	}
	v, ok := ctx.Value(userContextKey{}).(*types.User)
	if !ok || v == nil {
		return types.User{}, false
	}
	return *v, true
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
