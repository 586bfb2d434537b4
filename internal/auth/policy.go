package auth

import "github.com/vente/apiserver/types"

const (
	reasonInactive     = "Inactive user"
	reasonNotPrivilege = "The user doesn't have enough privileges"
)

// RequireActive denies inactive accounts.
func RequireActive(user types.User) error {
	if !user.IsActive {
		return &ForbiddenError{Reason: reasonInactive}
	}
	return nil
}

// RequireSuperuser denies accounts without the superuser flag.
func RequireSuperuser(user types.User) error {
	if !user.IsSuperuser {
		return &ForbiddenError{Reason: reasonNotPrivilege}
	}
	return nil
}

// RequireSelfOrSuperuser allows the account itself or any superuser.
func RequireSelfOrSuperuser(user types.User, targetID int) error {
	if user.ID == targetID || user.IsSuperuser {
		return nil
	}
	return &ForbiddenError{Reason: reasonNotPrivilege}
}
