package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/courierloop/courierloop-backend/api/middleware"
	"github.com/courierloop/courierloop-backend/api/responses"
	"github.com/courierloop/courierloop-backend/api/validators"
	orderssvc "github.com/courierloop/courierloop-backend/internal/orders"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/logger"
	"github.com/courierloop/courierloop-backend/pkg/pagination"
)

type stopPayload struct {
	Address      string     `json:"address" validate:"required"`
	Lat          float64    `json:"lat" validate:"min=-90,max=90"`
	Lon          float64    `json:"lon" validate:"min=-180,max=180"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	ContactName  *string    `json:"contact_name,omitempty"`
	ContactPhone *string    `json:"contact_phone,omitempty"`
}

type createOrderRequest struct {
	Pickup             stopPayload `json:"pickup" validate:"required"`
	Delivery           stopPayload `json:"delivery" validate:"required"`
	PackageDescription string      `json:"package_description" validate:"required,max=500"`
	PackageWeightKg    float64     `json:"package_weight_kg" validate:"min=0"`
	CustomerNotes      *string     `json:"customer_notes,omitempty"`
}

func (p stopPayload) toInput() orderssvc.StopInput {
	return orderssvc.StopInput{
		Address:      p.Address,
		Lat:          p.Lat,
		Lon:          p.Lon,
		ScheduledAt:  p.ScheduledAt,
		ContactName:  p.ContactName,
		ContactPhone: p.ContactPhone,
	}
}

func actorFromContext(r *http.Request) (uuid.UUID, enums.UserRole, error) {
	actorID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	return actorID, enums.UserRole(middleware.RoleFromContext(r.Context())), nil
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}

// OrderCreate registers a delivery request for the authenticated customer.
func OrderCreate(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), orderssvc.CreateInput{
			CustomerID:         customerID,
			Pickup:             payload.Pickup.toInput(),
			Delivery:           payload.Delivery.toInput(),
			PackageDescription: validators.SanitizeString(payload.PackageDescription, 500),
			PackageWeightKg:    payload.PackageWeightKg,
			CustomerNotes:      payload.CustomerNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// CustomerOrders lists the authenticated customer's orders, newest first.
func CustomerOrders(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByCustomer(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// DriverOrders lists a driver's active orders.
func DriverOrders(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := uuid.Parse(chi.URLParam(r, "driverID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid driver id"))
			return
		}
		if err := actorMayActForDriver(r, driverID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListActiveByDriver(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": rows})
	}
}

// AdminOrders lists every order, optionally filtered by status.
func AdminOrders(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := orderssvc.AdminListFilter{}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}

		list, err := svc.ListAll(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns one order to its customer, its driver, or an admin.
func OrderDetail(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		actorID, role, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allowed := role == enums.UserRoleAdmin ||
			order.CustomerID == actorID ||
			(order.DriverID != nil && *order.DriverID == actorID)
		if !allowed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type assignOrderRequest struct {
	DriverID uuid.UUID `json:"driver_id" validate:"required"`
}

// OrderAssign moves a pending order onto a driver.
func OrderAssign(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		actorID, role, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Assign(r.Context(), orderssvc.AssignInput{
			OrderID:   orderID,
			DriverID:  payload.DriverID,
			ActorID:   actorID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type deliveryUpdateRequest struct {
	Status   string           `json:"status" validate:"required"`
	Location *locationPayload `json:"location,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
}

// DeliveryUpdate drives the order state machine.
func DeliveryUpdate(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		actorID, role, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload deliveryUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orderssvc.UpdateStatusInput{
			OrderID:   orderID,
			Status:    enums.OrderStatus(payload.Status),
			ActorID:   actorID,
			ActorRole: role,
			Notes:     payload.Notes,
		}
		if payload.Location != nil {
			input.Lat = &payload.Location.Lat
			input.Lon = &payload.Location.Lon
		}

		order, err := svc.UpdateStatus(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
