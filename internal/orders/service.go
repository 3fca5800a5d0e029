package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/courierloop/courierloop-backend/pkg/config"
	"github.com/courierloop/courierloop-backend/pkg/db/models"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/geo"
	"github.com/courierloop/courierloop-backend/pkg/geocode"
	"github.com/courierloop/courierloop-backend/pkg/logger"
	"github.com/courierloop/courierloop-backend/pkg/pagination"
)

// Service defines order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Assign(ctx context.Context, input AssignInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListActiveByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context, filter AdminListFilter, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo      Repository
	logg      *logger.Logger
	basePrice decimal.Decimal
	perKm     decimal.Decimal
	now       func() time.Time
}

// NewService wires order dependencies and parses the pricing table.
func NewService(repo Repository, pricing config.PricingConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	base, err := decimal.NewFromString(pricing.BasePrice)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid base price")
	}
	perKm, err := decimal.NewFromString(pricing.PerKmPrice)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid per-km price")
	}
	return &service{
		repo:      repo,
		logg:      logg,
		basePrice: base,
		perKm:     perKm,
		now:       time.Now,
	}, nil
}

// Create registers a new delivery request in pending status. Both legs are
// geocoded and the price derives from the haversine pickup-delivery distance.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if strings.TrimSpace(input.Pickup.Address) == "" || strings.TrimSpace(input.Delivery.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup and delivery addresses required")
	}

	pickupCode, err := geocode.Encode(input.Pickup.Lat, input.Pickup.Lon)
	if err != nil {
		return nil, err
	}
	deliveryCode, err := geocode.Encode(input.Delivery.Lat, input.Delivery.Lon)
	if err != nil {
		return nil, err
	}

	distanceKm := geo.HaversineKm(input.Pickup.Lat, input.Pickup.Lon, input.Delivery.Lat, input.Delivery.Lon)
	distancePrice := s.perKm.Mul(decimal.NewFromFloat(distanceKm)).Round(2)
	total := s.basePrice.Add(distancePrice)

	order := &models.Order{
		Reference:  newReference(),
		CustomerID: input.CustomerID,
		Status:     enums.OrderStatusPending,
		Pickup: models.Stop{
			Address:      strings.TrimSpace(input.Pickup.Address),
			LocationCode: pickupCode,
			Lat:          input.Pickup.Lat,
			Lon:          input.Pickup.Lon,
			ScheduledAt:  input.Pickup.ScheduledAt,
			ContactName:  input.Pickup.ContactName,
			ContactPhone: input.Pickup.ContactPhone,
		},
		Delivery: models.Stop{
			Address:      strings.TrimSpace(input.Delivery.Address),
			LocationCode: deliveryCode,
			Lat:          input.Delivery.Lat,
			Lon:          input.Delivery.Lon,
			ScheduledAt:  input.Delivery.ScheduledAt,
			ContactName:  input.Delivery.ContactName,
			ContactPhone: input.Delivery.ContactPhone,
		},
		PackageDescription: strings.TrimSpace(input.PackageDescription),
		PackageWeightKg:    decimal.NewFromFloat(input.PackageWeightKg),
		BasePrice:          s.basePrice,
		DistancePrice:      distancePrice,
		TotalPrice:         total,
		CustomerNotes:      input.CustomerNotes,
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, created.ID.String())
		s.logg.Info(logCtx, "order.created")
	}
	return created, nil
}

// Assign moves a pending order to a driver. Admin only.
func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Order, error) {
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only an admin may assign orders")
	}
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}

	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(order.Status, enums.OrderStatusAssigned) {
		return nil, illegalTransition(order.Status, enums.OrderStatusAssigned)
	}

	updates := map[string]any{
		"status":    enums.OrderStatusAssigned,
		"driver_id": input.DriverID,
	}
	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign order")
	}

	order.Status = enums.OrderStatusAssigned
	order.DriverID = &input.DriverID
	return order, nil
}

// UpdateStatus drives the state machine. Only the assigned driver or an admin
// may transition an order; picked_up and delivered stamp their actual times.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": string(input.Status)})
	}

	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	if !s.actorMayTransition(order, input.ActorID, input.ActorRole) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor may not update this order")
	}

	if !CanTransition(order.Status, input.Status) {
		return nil, illegalTransition(order.Status, input.Status)
	}

	now := s.now().UTC()
	updates := map[string]any{"status": input.Status}

	switch input.Status {
	case enums.OrderStatusPickedUp:
		updates["actual_pickup_at"] = now
		order.ActualPickupAt = &now
	case enums.OrderStatusDelivered:
		updates["actual_delivery_at"] = now
		order.ActualDeliveryAt = &now
	}

	if input.Lat != nil && input.Lon != nil {
		code, err := geocode.Encode(*input.Lat, *input.Lon)
		if err != nil {
			return nil, err
		}
		updates["tracking_lat"] = *input.Lat
		updates["tracking_lon"] = *input.Lon
		updates["tracking_location_code"] = code
		updates["tracking_recorded_at"] = now
		order.Tracking = models.TrackingPoint{
			Lat:          *input.Lat,
			Lon:          *input.Lon,
			LocationCode: code,
			RecordedAt:   &now,
		}
	}

	if input.Notes != nil {
		updates["driver_notes"] = *input.Notes
		order.DriverNotes = input.Notes
	}

	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	previous := order.Status
	order.Status = input.Status

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"from": string(previous),
			"to":   string(input.Status),
		})
		s.logg.Info(logCtx, "order.status_changed")
	}
	return order, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.findOrder(ctx, id)
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	list, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return list, nil
}

func (s *service) ListActiveByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Order, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	rows, err := s.repo.ListActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list driver orders")
	}
	return rows, nil
}

func (s *service) ListAll(ctx context.Context, filter AdminListFilter, params pagination.Params) (*OrderList, error) {
	list, err := s.repo.ListAll(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) findOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order")
	}
	return order, nil
}

func (s *service) actorMayTransition(order *models.Order, actorID uuid.UUID, role enums.UserRole) bool {
	if role == enums.UserRoleAdmin {
		return true
	}
	if role == enums.UserRoleDriver && order.DriverID != nil && *order.DriverID == actorID {
		return true
	}
	return false
}

func illegalTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeIllegalTransition, "status transition disallowed").
		WithDetails(map[string]any{"from": string(from), "to": string(to)})
}

func newReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "CL-" + raw[:12]
}
