package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/teamnishkar/nishkar-backend/api/middleware"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

// UserIDFromRequest extracts the authenticated user id seeded by the auth middleware.
func UserIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return userID, nil
}

// VendorIDFromRequest extracts the vendor id for vendor-scoped endpoints.
func VendorIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.VendorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context required")
	}
	vendorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid vendor identity")
	}
	return vendorID, nil
}

// RoleFromRequest returns the actor role seeded by the auth middleware.
func RoleFromRequest(r *http.Request) enums.ActorRole {
	return enums.ActorRole(middleware.RoleFromContext(r.Context()))
}
