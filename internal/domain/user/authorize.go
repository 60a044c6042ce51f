package user

import (
	appErrors "tour-booking-api/pkg/errors"
)

// RoleSet is the set of roles allowed through a gate.
type RoleSet map[Role]struct{}

func Roles(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Authorize fails with ErrForbidden unless the principal's role is in allowed.
// It must only be called with a principal returned by authentication.
func Authorize(principal *User, allowed RoleSet) error {
	if principal == nil || !allowed.Has(principal.Role) {
		return appErrors.ErrForbidden
	}
	return nil
}
