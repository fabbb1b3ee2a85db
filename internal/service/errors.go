package service

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state")
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Admin  bool
}

// canAccess reports whether the actor may act on a resource owned by ownerID.
func (a Actor) canAccess(ownerID string) bool {
	return a.Admin || (a.UserID != "" && a.UserID == ownerID)
}
