package services

import (
	"context"
	"errors"

	"github.com/vente/apiserver/internal/store"
	"github.com/vente/apiserver/types"
)

// PasswordHasher hashes new passwords and checks login attempts.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(plain, hash string) bool
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher
}

func NewUserService(repo UserRepository, hasher PasswordHasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, error) {
	return s.repo.List(ctx, clampOffset(offset), ClampLimit(limit))
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Authenticate returns the account for username when password matches.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, in types.UserCreate) (types.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, invalid("password", err.Error())
	}
	return s.repo.Create(ctx, types.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     in.IsActive,
		IsSuperuser:  in.IsSuperuser,
	})
}

// Update applies the non-nil fields of in. A new password is stored hashed.
func (s *UserService) Update(ctx context.Context, id int, in types.UserUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return types.User{}, invalid("password", err.Error())
		}
		user.PasswordHash = hash
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		user.IsSuperuser = *in.IsSuperuser
	}

	return s.repo.Update(ctx, user)
}

// Delete removes the account and returns it as it was.
func (s *UserService) Delete(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return types.User{}, err
	}
	return user, nil
}
