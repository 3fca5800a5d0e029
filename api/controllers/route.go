package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/courierloop/courierloop-backend/api/middleware"
	"github.com/courierloop/courierloop-backend/api/responses"
	"github.com/courierloop/courierloop-backend/api/validators"
	"github.com/courierloop/courierloop-backend/internal/conditions"
	"github.com/courierloop/courierloop-backend/internal/drivers"
	"github.com/courierloop/courierloop-backend/internal/refresh"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/geocode"
	"github.com/courierloop/courierloop-backend/pkg/logger"
)

type locationPayload struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

type routeComputeRequest struct {
	DriverID        uuid.UUID       `json:"driver_id" validate:"required"`
	CurrentLocation locationPayload `json:"current_location" validate:"required"`
	RoadConditions  []string        `json:"road_conditions,omitempty"`
}

// actorMayActForDriver limits driver-scoped endpoints to the driver itself or
// an admin acting on its behalf.
func actorMayActForDriver(r *http.Request, driverID uuid.UUID) error {
	role := middleware.RoleFromContext(r.Context())
	if role == string(enums.UserRoleAdmin) {
		return nil
	}
	if role == string(enums.UserRoleDriver) && middleware.UserIDFromContext(r.Context()) == driverID.String() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "driver scope required")
}

func (req routeComputeRequest) toInput() (refresh.Input, error) {
	input := refresh.Input{
		DriverID: req.DriverID,
		Lat:      req.CurrentLocation.Lat,
		Lon:      req.CurrentLocation.Lon,
	}
	for _, raw := range req.RoadConditions {
		ct, err := enums.ParseConditionType(raw)
		if err != nil {
			return refresh.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown road condition").
				WithDetails(map[string]any{"condition": raw})
		}
		input.Conditions = append(input.Conditions, ct)
	}
	return input, nil
}

// RouteOptimize computes and persists the initial route for a driver.
func RouteOptimize(svc refresh.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload routeComputeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := actorMayActForDriver(r, payload.DriverID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Optimize(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RouteRefresh recomputes the driver's route against live traffic and any
// road conditions supplied with the request.
func RouteRefresh(svc refresh.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload routeComputeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := actorMayActForDriver(r, payload.DriverID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Refresh(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RouteCurrent returns the last persisted route snapshot for a driver.
func RouteCurrent(svc refresh.Service, logg *logger.Logger) http.HandlerFunc {
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

		route, err := svc.Current(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, route)
	}
}

type updateLocationRequest struct {
	DriverID uuid.UUID       `json:"driver_id" validate:"required"`
	Location locationPayload `json:"location" validate:"required"`
}

// RouteUpdateLocation records a driver position ping and mirrors it onto the
// driver's active orders.
func RouteUpdateLocation(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateLocationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := actorMayActForDriver(r, payload.DriverID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		location, err := svc.UpdateLocation(r.Context(), drivers.UpdateLocationInput{
			DriverID: payload.DriverID,
			Lat:      payload.Location.Lat,
			Lon:      payload.Location.Lon,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, location)
	}
}

type reportConditionRequest struct {
	Location      locationPayload `json:"location" validate:"required"`
	ConditionType string          `json:"condition_type" validate:"required"`
	Severity      string          `json:"severity,omitempty"`
	Description   string          `json:"description,omitempty" validate:"max=500"`
}

// RouteReportCondition stores a driver-reported road condition for the
// configured validity window.
func RouteReportCondition(svc conditions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload reportConditionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := geocode.Encode(payload.Location.Lat, payload.Location.Lon)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report := conditions.Report{
			LocationCode: code,
			Lat:          payload.Location.Lat,
			Lon:          payload.Location.Lon,
			Type:         enums.ConditionType(payload.ConditionType),
			Severity:     enums.ConditionSeverity(payload.Severity),
			Description:  validators.SanitizeString(payload.Description, 500),
		}
		if reporter, err := uuid.Parse(middleware.UserIDFromContext(r.Context())); err == nil {
			report.ReporterID = reporter
		}

		stored, err := svc.Report(r.Context(), report)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, stored)
	}
}
