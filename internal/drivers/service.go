package drivers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courierloop/courierloop-backend/internal/orders"
	"github.com/courierloop/courierloop-backend/internal/realtime"
	"github.com/courierloop/courierloop-backend/pkg/db/models"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/geocode"
	"github.com/courierloop/courierloop-backend/pkg/logger"
)

// UpdateLocationInput is one driver position ping.
type UpdateLocationInput struct {
	DriverID uuid.UUID
	Lat      float64
	Lon      float64
}

// LocationPayload rides on location-update events.
type LocationPayload struct {
	OrderID  uuid.UUID      `json:"order_id"`
	Location LocationFields `json:"location"`
}

// LocationFields is the position block shared by events and responses.
type LocationFields struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	LocationCode string  `json:"location_code"`
}

// Service handles driver position pings and lookups.
type Service interface {
	UpdateLocation(ctx context.Context, input UpdateLocationInput) (*models.DriverLocation, error)
	LastKnown(ctx context.Context, driverID uuid.UUID) (*models.DriverLocation, error)
}

type service struct {
	locations LocationRepository
	orders    orders.Repository
	publisher Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the location pipeline: persist the ping, mirror it onto the
// driver's active orders, then notify order subscribers.
func NewService(locations LocationRepository, ordersRepo orders.Repository, publisher Publisher, logg *logger.Logger) (Service, error) {
	if locations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "location repository required")
	}
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	return &service{
		locations: locations,
		orders:    ordersRepo,
		publisher: publisher,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) UpdateLocation(ctx context.Context, input UpdateLocationInput) (*models.DriverLocation, error) {
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	code, err := geocode.Encode(input.Lat, input.Lon)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	location := &models.DriverLocation{
		DriverID:     input.DriverID,
		Lat:          input.Lat,
		Lon:          input.Lon,
		LocationCode: code,
		UpdatedAt:    now,
	}
	if err := s.locations.Upsert(ctx, location); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store driver location")
	}

	updates := map[string]any{
		"tracking_lat":           input.Lat,
		"tracking_lon":           input.Lon,
		"tracking_location_code": code,
		"tracking_recorded_at":   now,
		"updated_at":             now,
	}
	if _, err := s.orders.UpdateTrackingByDriver(ctx, input.DriverID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mirror tracking onto orders")
	}

	s.broadcast(ctx, input.DriverID, location)

	if s.logg != nil {
		logCtx := s.logg.WithDriverID(ctx, input.DriverID.String())
		s.logg.Debug(logCtx, "driver.location_updated")
	}
	return location, nil
}

func (s *service) broadcast(ctx context.Context, driverID uuid.UUID, location *models.DriverLocation) {
	if s.publisher == nil {
		return
	}
	active, err := s.orders.ListActiveByDriver(ctx, driverID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithDriverID(ctx, driverID.String()), "location broadcast skipped")
		}
		return
	}
	for _, order := range active {
		s.publisher.Publish(ctx, realtime.OrderTopic(order.ID), realtime.EventLocationUpdate, LocationPayload{
			OrderID: order.ID,
			Location: LocationFields{
				Lat:          location.Lat,
				Lon:          location.Lon,
				LocationCode: location.LocationCode,
			},
		})
	}
}

func (s *service) LastKnown(ctx context.Context, driverID uuid.UUID) (*models.DriverLocation, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	location, err := s.locations.FindByDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver location unknown")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find driver location")
	}
	return location, nil
}
