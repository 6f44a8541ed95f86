package domain

import (
	"time"
)

// User is a registered account. Email is stored normalized and is unique.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	IsStaff      bool      `json:"is_staff"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountState is the lifecycle state derived from the user's flags.
type AccountState string

const (
	StateUnverified  AccountState = "unverified"
	StateVerified    AccountState = "verified"
	StateDeactivated AccountState = "deactivated"
)

// State reports where the user sits in the account lifecycle. Deactivation
// takes precedence over verification.
func (u *User) State() AccountState {
	switch {
	case !u.IsActive:
		return StateDeactivated
	case u.IsVerified:
		return StateVerified
	default:
		return StateUnverified
	}
}

// IsPrivileged reports whether the user has staff or admin capability.
func (u *User) IsPrivileged() bool {
	return u.IsStaff || u.IsAdmin
}

// CanLogin reports whether the user may obtain tokens. Privileged users
// bypass the verification requirement.
func (u *User) CanLogin() bool {
	return u.IsActive && (u.IsVerified || u.IsPrivileged())
}

// ProfileChanges is a partial update; nil fields are left untouched.
type ProfileChanges struct {
	Name     *string
	Email    *string
	Password *string
}

// Empty reports whether no field is set.
func (c ProfileChanges) Empty() bool {
	return c.Name == nil && c.Email == nil && c.Password == nil
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
