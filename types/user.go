package types

import "time"

// User represents an account in the system.
// It contains identity, privilege flags, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// IsActive reports whether the account may use protected endpoints.
	IsActive bool `json:"is_active" db:"is_active"`

	// IsSuperuser grants elevated privileges and bypasses ownership checks.
	IsSuperuser bool `json:"is_superuser" db:"is_superuser"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"hashed_password"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserCreate carries the fields needed to create an account.
type UserCreate struct {
	Username    string `json:"username" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UserUpdate is a partial update. Nil fields are left untouched.
// Password, when present, is rehashed before it is stored.
type UserUpdate struct {
	Username    *string `json:"username,omitempty" validate:"omitempty,min=1,max=100"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=1"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsSuperuser *bool   `json:"is_superuser,omitempty"`
}

// ChangesPrivileges reports whether the update touches account flags.
func (u UserUpdate) ChangesPrivileges() bool {
	return u.IsActive != nil || u.IsSuperuser != nil
}
