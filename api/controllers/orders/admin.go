package orders

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teamnishkar/nishkar-backend/api/controllers"
	"github.com/teamnishkar/nishkar-backend/api/responses"
	"github.com/teamnishkar/nishkar-backend/api/validators"
	orderssvc "github.com/teamnishkar/nishkar-backend/internal/orders"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
)

type orderStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

// AdminOrders lists orders across all buyers with optional filters.
func AdminOrders(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseAdminFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.AdminOrders(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminOrderDetail returns any order with its items and timeline.
func AdminOrderDetail(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.AdminOrderDetail(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// AdminAdvanceOrder moves an order into a delivery-stage status.
func AdminAdvanceOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := controllers.UserIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.AdminAdvanceOrder(r.Context(), orderssvc.AdminAdvanceInput{
			OrderID:     chi.URLParam(r, "orderId"),
			Target:      payload.Status,
			ActorUserID: userID,
			ActorRole:   controllers.RoleFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func parseAdminFilters(r *http.Request) (orderssvc.AdminOrderFilters, error) {
	var filters orderssvc.AdminOrderFilters
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status := enums.OrderStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status filter")
		}
		filters.Status = &status
	}
	if raw := q.Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "user_id filter must be a uuid")
		}
		filters.UserID = &userID
	}
	if raw := q.Get("date_from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "date_from must be RFC3339")
		}
		filters.DateFrom = &from
	}
	if raw := q.Get("date_to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "date_to must be RFC3339")
		}
		filters.DateTo = &to
	}
	return filters, nil
}
