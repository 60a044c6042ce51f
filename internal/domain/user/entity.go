package user

import (
	"time"

	"tour-booking-api/internal/domain"
)

// Role is the access level of an account.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User is an account. The credential fields never leave the process:
// they are hidden from JSON and from the default list projection.
type User struct {
	domain.Model
	Name  string  `gorm:"type:varchar(255);not null" json:"name,omitempty" validate:"required,max=255"`
	Email string  `gorm:"type:varchar(255);not null;uniqueIndex" json:"email,omitempty" validate:"required,email"`
	Photo *string `gorm:"type:varchar(255)" json:"photo,omitempty"`
	Role  Role    `gorm:"type:varchar(20);not null;default:'user'" json:"role,omitempty" validate:"required,oneof=user guide lead-guide admin"`

	PasswordHash      string     `gorm:"type:varchar(255);not null" json:"-" validate:"-"`
	PasswordChangedAt *time.Time `json:"-" validate:"-"`
	ResetTokenHash    *string    `gorm:"type:varchar(64);index" json:"-" validate:"-"`
	ResetTokenExpiry  *time.Time `json:"-" validate:"-"`
	Active            bool       `gorm:"not null;default:true" json:"-" validate:"-"`
}

func (User) TableName() string {
	return "users"
}

// CredentialColumns are the columns only the credential store may read.
var CredentialColumns = []string{"password_hash", "password_changed_at", "reset_token_hash", "reset_token_expiry", "active"}

// ChangedPasswordAfter reports whether the password changed after a token issued at issuedAt.
// Both sides are compared in milliseconds, the precision a session token carries,
// so a token minted in the same millisecond as the change stays valid.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.UnixMilli() < u.PasswordChangedAt.UnixMilli()
}

// HasResetToken reports whether a reset is pending.
func (u *User) HasResetToken() bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiry != nil
}
