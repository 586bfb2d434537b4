package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vente/apiserver/internal/store"
	"github.com/vente/apiserver/types"
)

type stubAccounts struct {
	users map[int]types.User
	err   error
}

func (s stubAccounts) GetByID(_ context.Context, id int) (types.User, error) {
	if s.err != nil {
		return types.User{}, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return types.User{}, store.NotFound("user", id)
	}
	return user, nil
}

func TestResolver_Resolve(t *testing.T) {
	tokens := NewTokenService("k1", time.Hour)
	alice := types.User{ID: 1, Username: "alice", IsActive: true}
	r := NewResolver(tokens, stubAccounts{users: map[int]types.User{1: alice}})

	token, err := tokens.Issue(alice.ID, 0)
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestResolver_Unauthenticated(t *testing.T) {
	tokens := NewTokenService("k1", time.Hour)
	r := NewResolver(tokens, stubAccounts{users: map[int]types.User{}})

	ghost, err := tokens.Issue(99, 0)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":       "garbage",
		"missing":       "",
		"deleted owner": ghost,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestResolver_StoreFailure(t *testing.T) {
	tokens := NewTokenService("k1", time.Hour)
	down := errors.New("db down")
	r := NewResolver(tokens, stubAccounts{err: down})

	token, err := tokens.Issue(1, 0)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}
