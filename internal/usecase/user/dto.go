package user

import (
	domainUser "tour-booking-api/internal/domain/user"
)

type SignUpRequest struct {
	Name            string  `json:"name" validate:"required,max=255"`
	Email           string  `json:"email" validate:"required,email"`
	Photo           *string `json:"photo" validate:"omitempty,max=255"`
	Password        string  `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirm string  `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// LoginRequest is checked by hand so that a missing field is reported as
// missing credentials rather than a validation failure.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type ChangePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// UpdateMeRequest carries the profile fields a user may change. The password
// fields are only declared so that sending them can be refused.
type UpdateMeRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Photo           *string `json:"photo" validate:"omitempty,max=255"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

type CreateUserRequest struct {
	Name            string          `json:"name" validate:"required,max=255"`
	Email           string          `json:"email" validate:"required,email"`
	Photo           *string         `json:"photo" validate:"omitempty,max=255"`
	Role            domainUser.Role `json:"role" validate:"omitempty,oneof=user guide lead-guide admin"`
	Password        string          `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirm string          `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// Session is a freshly minted token and the user it belongs to.
type Session struct {
	Token string
	User  *domainUser.User
}
