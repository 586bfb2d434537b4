package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/vente/apiserver/internal/store"
	"github.com/vente/apiserver/types"
)

// TokenValidator extracts the subject id from an access token.
type TokenValidator interface {
	Validate(token string) (int, error)
}

// AccountLoader loads accounts by id.
type AccountLoader interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// Resolver turns a bearer token into the account it was issued for.
type Resolver struct {
	tokens   TokenValidator
	accounts AccountLoader
}

func NewResolver(tokens TokenValidator, accounts AccountLoader) *Resolver {
	return &Resolver{tokens: tokens, accounts: accounts}
}

// Resolve returns ErrUnauthenticated for a bad token or a subject with no
// account. Store failures are returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, token string) (types.User, error) {
	id, err := r.tokens.Validate(token)
	if err != nil {
		return types.User{}, ErrUnauthenticated
	}

	user, err := r.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthenticated
		}
		return types.User{}, fmt.Errorf("load account: %w", err)
	}
	return user, nil
}
