package orders

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/teamnishkar/nishkar-backend/api/controllers"
	"github.com/teamnishkar/nishkar-backend/api/responses"
	"github.com/teamnishkar/nishkar-backend/api/validators"
	orderssvc "github.com/teamnishkar/nishkar-backend/internal/orders"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
)

type itemStatusRequest struct {
	Status enums.VendorStatus `json:"status" validate:"required"`
}

// BuyerOrders lists the authenticated buyer's orders, newest first.
func BuyerOrders(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := controllers.UserIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.BuyerOrders(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// BuyerOrderDetail returns one order with items and stage timestamps.
func BuyerOrderDetail(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := controllers.UserIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.BuyerOrderDetail(r.Context(), userID, chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// OrderStatus returns the aggregate status timeline. Buyers see their own
// orders; admins see any order.
func OrderStatus(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := controllers.UserIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID := chi.URLParam(r, "orderId")

		if controllers.RoleFromRequest(r) == enums.ActorRoleAdmin {
			detail, err := svc.AdminOrderDetail(r.Context(), orderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, &orderssvc.OrderStatusView{
				OrderID:  detail.OrderID,
				Status:   detail.Status,
				Timeline: detail.Timeline,
			})
			return
		}

		view, err := svc.BuyerOrderStatus(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// VendorOrders lists orders containing the vendor's items.
func VendorOrders(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := controllers.VendorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.VendorOrders(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// VendorOrderDetail returns one order scoped to the vendor's own items.
func VendorOrderDetail(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := controllers.VendorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.VendorOrderDetail(r.Context(), vendorID, chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// VendorItemStatus returns the fulfillment trail of one of the vendor's items.
func VendorItemStatus(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := controllers.VendorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.VendorItemStatus(r.Context(), vendorID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// VendorAdvanceItem moves one item a single step along the vendor ladder.
func VendorAdvanceItem(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := controllers.UserIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := controllers.VendorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload itemStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.VendorAdvanceItem(r.Context(), orderssvc.VendorAdvanceInput{
			ItemID:        itemID,
			Target:        payload.Status,
			ActorUserID:   userID,
			ActorVendorID: vendorID,
			ActorRole:     controllers.RoleFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func parseItemID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "itemId")
	itemID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || itemID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "item id must be a positive integer")
	}
	return itemID, nil
}
