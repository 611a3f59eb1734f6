// Package tenancy decides whether an actor may touch a company's resources.
//
// Every decision is a plain error: nil allows the action, ErrUnauthenticated
// means nobody is signed in, and anything wrapping ErrDenied is a refusal that
// the HTTP boundary renders the same way regardless of its cause, so callers
// cannot tell a foreign company apart from a missing role.
package tenancy

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavitra93/food-ordering-admin/shared/models"
)

// Permission is the level of access an action needs inside a company
type Permission int

const (
	// PermissionMember covers listing, showing, creating and importing
	PermissionMember Permission = iota
	// PermissionAdmin covers changing other users' status, the company profile
	// and deleting terminals or menu items
	PermissionAdmin
)

func (p Permission) String() string {
	switch p {
	case PermissionMember:
		return "member"
	case PermissionAdmin:
		return "admin"
	}
	return fmt.Sprintf("permission(%d)", int(p))
}

var (
	ErrUnauthenticated = errors.New("sign in required")
	ErrDenied          = errors.New("access denied")

	ErrCrossTenant      = fmt.Errorf("%w: company mismatch", ErrDenied)
	ErrInsufficientRole = fmt.Errorf("%w: company admin role required", ErrDenied)
	ErrForeignResource  = fmt.Errorf("%w: resource belongs to another company", ErrDenied)
)

// Authorize checks that actor is a member of companyID holding at least perm
func Authorize(actor *models.Actor, companyID uuid.UUID, perm Permission) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if companyID == uuid.Nil || !actor.BelongsTo(companyID) {
		return ErrCrossTenant
	}
	if perm == PermissionAdmin && !actor.IsCompanyAdmin() {
		return ErrInsufficientRole
	}
	return nil
}

// AuthorizeResource also requires the resource to be owned by the requested company
func AuthorizeResource(actor *models.Actor, companyID, ownerID uuid.UUID, perm Permission) error {
	if err := Authorize(actor, companyID, perm); err != nil {
		return err
	}
	if ownerID != companyID {
		return ErrForeignResource
	}
	return nil
}

// IsDenied reports whether err is any refusal other than a missing sign-in
func IsDenied(err error) bool {
	return errors.Is(err, ErrDenied)
}
