package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePower     Role = "power"
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePower, RolePrimary, RoleSecondary:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"` // bcrypt hash
	Role      Role      `gorm:"size:20;default:'secondary';not null;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsPrimary() bool { return u != nil && u.Role == RolePrimary }
func (u *User) IsPower() bool   { return u != nil && u.Role == RolePower }
