package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/teamnishkar/nishkar-backend/api/responses"
	"github.com/teamnishkar/nishkar-backend/api/validators"
	checkoutsvc "github.com/teamnishkar/nishkar-backend/internal/checkout"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
)

type checkoutRequest struct {
	AddressID  uuid.UUID `json:"address_id" validate:"required"`
	CouponCode *string   `json:"coupon_code,omitempty" validate:"omitempty,min=1,max=64"`
}

// CheckoutOrderNow places an order from the active cart in one transaction.
func CheckoutOrderNow(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := UserIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.OrderNow(r.Context(), userID, checkoutsvc.OrderNowInput{
			AddressID:  payload.AddressID,
			CouponCode: payload.CouponCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

// CheckoutSession reserves a tracking code and opens a gateway session.
func CheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := UserIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateSession(r.Context(), userID, checkoutsvc.SessionInput{
			AddressID:  payload.AddressID,
			CouponCode: payload.CouponCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}
