// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role is informational metadata on a user. No authorization rule reads it.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleUser        Role = "user"
	RoleModerator   Role = "moderator"
	RolePremiumUser Role = "premium_user"
)

// Roles lists every role in display order.
var Roles = []Role{RoleUser, RolePremiumUser, RoleModerator, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleModerator, RolePremiumUser:
		return true
	}
	return false
}

// User represents an account. Email is the login identifier and is unique
// across active and deactivated users alike.
type User struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Username  string       `gorm:"size:60;not null" json:"username"`
	Email     string       `gorm:"size:60;not null;uniqueIndex" json:"email"`
	Password  string       `gorm:"size:100;not null" json:"-"`
	Role      Role         `gorm:"type:varchar(20);not null" json:"role"`
	IsActive  bool         `gorm:"not null" json:"is_active"`
	AccessID  uint         `gorm:"not null;index" json:"access_id"`
	Access    *EntryAccess `gorm:"foreignKey:AccessID" json:"access,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// UserChanges is the set of assignable user fields. A nil field was not
// provided by the caller. Password holds plaintext until the user service
// replaces it with a hash.
type UserChanges struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=60"`
	Email    *string `json:"email" validate:"omitempty,email,max=60"`
	Password *string `json:"password" validate:"omitempty,min=1,bcryptlen"`
	Role     *Role   `json:"role" validate:"omitempty,oneof=admin user moderator premium_user"`
	IsActive *bool   `json:"is_active"`
	AccessID *uint   `json:"access_id" validate:"omitempty,min=1"`
}

// Apply copies the change set onto u. With partial set, only provided fields
// change. Otherwise every field is assigned and absent ones are cleared;
// callers validate that full updates carry the non-nullable columns.
func (ch UserChanges) Apply(u *User, partial bool) {
	if ch.Username != nil || !partial {
		u.Username = deref(ch.Username)
	}
	if ch.Email != nil || !partial {
		u.Email = deref(ch.Email)
	}
	if ch.Password != nil || !partial {
		u.Password = deref(ch.Password)
	}
	if ch.Role != nil || !partial {
		u.Role = deref(ch.Role)
	}
	if ch.IsActive != nil || !partial {
		u.IsActive = deref(ch.IsActive)
	}
	if ch.AccessID != nil || !partial {
		u.AccessID = deref(ch.AccessID)
	}
}

// Empty reports whether no field was provided.
func (ch UserChanges) Empty() bool {
	return ch.Username == nil && ch.Email == nil && ch.Password == nil &&
		ch.Role == nil && ch.IsActive == nil && ch.AccessID == nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
