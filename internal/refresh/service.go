package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courierloop/courierloop-backend/internal/conditions"
	"github.com/courierloop/courierloop-backend/internal/orders"
	"github.com/courierloop/courierloop-backend/internal/realtime"
	"github.com/courierloop/courierloop-backend/internal/routing"
	"github.com/courierloop/courierloop-backend/pkg/config"
	"github.com/courierloop/courierloop-backend/pkg/db/models"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/geo"
	"github.com/courierloop/courierloop-backend/pkg/geocode"
	"github.com/courierloop/courierloop-backend/pkg/logger"
	"github.com/courierloop/courierloop-backend/pkg/metrics"
)

// Trigger labels for refresh metrics.
const (
	TriggerOptimize = "optimize"
	TriggerRefresh  = "refresh"
)

// Input starts one route computation for a driver.
type Input struct {
	DriverID   uuid.UUID
	Lat        float64
	Lon        float64
	Conditions []enums.ConditionType
}

// Improvements compares the new snapshot against the one it replaced.
type Improvements struct {
	TimeSavedMin    float64 `json:"time_saved_min"`
	DistanceSavedKm float64 `json:"distance_saved_km"`
}

// Result is the outcome of one optimize or refresh cycle.
type Result struct {
	Route        *models.DriverRoute `json:"route,omitempty"`
	ETAs         []routing.ETAEntry  `json:"etas,omitempty"`
	Improvements *Improvements       `json:"improvements,omitempty"`
	RefreshCount int                 `json:"refresh_count"`
	NoOp         bool                `json:"no_op,omitempty"`
}

// ETAPayload rides on eta-updated events.
type ETAPayload struct {
	OrderID string    `json:"order_id"`
	NewETA  time.Time `json:"new_eta"`
}

// Service orchestrates route optimization and refresh for drivers.
type Service interface {
	Optimize(ctx context.Context, input Input) (*Result, error)
	Refresh(ctx context.Context, input Input) (*Result, error)
	Current(ctx context.Context, driverID uuid.UUID) (*models.DriverRoute, error)
}

type service struct {
	routes     RouteRepository
	orders     orders.Repository
	conditions conditions.Service
	provider   routing.Provider
	tx         TxRunner
	publisher  Publisher
	refreshMx  *metrics.RefreshMetrics
	logg       *logger.Logger

	refreshTimeout time.Duration
	locks          *driverLocks
	now            func() time.Time
}

// NewService wires the refresh pipeline. A nil provider falls back to
// deterministic nearest-neighbor estimates, for environments without a
// directions API key.
func NewService(
	routes RouteRepository,
	ordersRepo orders.Repository,
	condSvc conditions.Service,
	provider routing.Provider,
	tx TxRunner,
	publisher Publisher,
	refreshMx *metrics.RefreshMetrics,
	cfg config.RoutingConfig,
	logg *logger.Logger,
) (Service, error) {
	if routes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "route repository required")
	}
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{
		routes:         routes,
		orders:         ordersRepo,
		conditions:     condSvc,
		provider:       provider,
		tx:             tx,
		publisher:      publisher,
		refreshMx:      refreshMx,
		logg:           logg,
		refreshTimeout: cfg.RefreshTimeout,
		locks:          newDriverLocks(),
		now:            time.Now,
	}, nil
}

func (s *service) Optimize(ctx context.Context, input Input) (*Result, error) {
	return s.run(ctx, TriggerOptimize, input)
}

func (s *service) Refresh(ctx context.Context, input Input) (*Result, error) {
	return s.run(ctx, TriggerRefresh, input)
}

func (s *service) Current(ctx context.Context, driverID uuid.UUID) (*models.DriverRoute, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	route, err := s.routes.FindByDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no route snapshot for driver")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find driver route")
	}
	return route, nil
}

func (s *service) run(ctx context.Context, trigger string, input Input) (*Result, error) {
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if _, err := geocode.Encode(input.Lat, input.Lon); err != nil {
		return nil, err
	}

	if !s.locks.tryAcquire(input.DriverID) {
		return nil, pkgerrors.New(pkgerrors.CodeRefreshInProgress, "route refresh already running for this driver")
	}
	defer s.locks.release(input.DriverID)

	if s.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.refreshTimeout)
		defer cancel()
	}

	started := s.now()
	defer func() {
		s.refreshMx.ObserveDuration(trigger, s.now().Sub(started))
	}()

	result, err := s.compute(ctx, trigger, input)
	if err != nil {
		s.refreshMx.IncFailure(trigger)
		return nil, err
	}
	if result.NoOp {
		s.refreshMx.IncSkipped(trigger)
	} else {
		s.refreshMx.IncSuccess(trigger)
	}
	return result, nil
}

func (s *service) compute(ctx context.Context, trigger string, input Input) (*Result, error) {
	active, err := s.orders.ListActiveByDriver(ctx, input.DriverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active orders")
	}
	if len(active) == 0 {
		return &Result{NoOp: true}, nil
	}

	previous, err := s.previousSnapshot(ctx, input.DriverID)
	if err != nil {
		return nil, err
	}

	origin := routing.Coordinate{Lat: input.Lat, Lon: input.Lon}
	ordered := routing.NearestNeighborOrder(origin, stopsFromOrders(active))

	route, err := s.computeRoute(ctx, origin, ordered)
	if err != nil {
		// The previous snapshot stays authoritative.
		return nil, err
	}

	now := s.now().UTC()
	adjusted := geo.Round2(routing.AdjustDurationMin(route.TotalDurationMin, s.conditionTypes(ctx, input)))
	legs := spreadPenalty(route.PerLegDurationMin, adjusted-route.TotalDurationMin)
	etaTimes := routing.ComputeETAs(now, legs, routing.DefaultDwellMin)
	if len(etaTimes) < len(route.Stops) {
		return nil, pkgerrors.New(pkgerrors.CodeRouteComputation, "leg durations do not cover every stop")
	}

	snapshot := s.buildSnapshot(previous, input.DriverID, route, adjusted, now)
	etas := make([]routing.ETAEntry, 0, len(route.Stops))
	for i, stop := range route.Stops {
		etas = append(etas, routing.ETAEntry{OrderID: stop.OrderID, ETA: etaTimes[i]})
	}

	if err := s.persist(ctx, snapshot, etas, now); err != nil {
		return nil, err
	}

	s.broadcast(ctx, input.DriverID, snapshot, etas)

	if s.logg != nil {
		logCtx := s.logg.WithDriverID(ctx, input.DriverID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"trigger":       trigger,
			"stops":         len(route.Stops),
			"refresh_count": snapshot.RefreshCount,
		})
		s.logg.Info(logCtx, "route.refreshed")
	}

	result := &Result{
		Route:        snapshot,
		ETAs:         etas,
		RefreshCount: snapshot.RefreshCount,
	}
	if trigger == TriggerRefresh && previous != nil {
		result.Improvements = &Improvements{
			TimeSavedMin:    geo.Round2(previous.AdjustedDurationMin - adjusted),
			DistanceSavedKm: geo.Round2(previous.TotalDistanceKm - route.TotalDistanceKm),
		}
	}
	return result, nil
}

func (s *service) previousSnapshot(ctx context.Context, driverID uuid.UUID) (*models.DriverRoute, error) {
	previous, err := s.routes.FindByDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load previous snapshot")
	}
	return previous, nil
}

func (s *service) computeRoute(ctx context.Context, origin routing.Coordinate, stops []routing.Stop) (*routing.Route, error) {
	if s.provider == nil {
		return routing.FallbackRoute(origin, stops, 0), nil
	}
	return s.provider.ComputeRoute(ctx, origin, stops)
}

func (s *service) conditionTypes(ctx context.Context, input Input) []enums.ConditionType {
	types := append([]enums.ConditionType{}, input.Conditions...)
	if s.conditions == nil {
		return types
	}
	reports, err := s.conditions.ActiveNear(ctx, input.Lat, input.Lon)
	if err != nil {
		// Stored reports only sharpen the estimate; refresh proceeds without them.
		if s.logg != nil {
			s.logg.Warn(s.logg.WithDriverID(ctx, input.DriverID.String()), "active conditions unavailable")
		}
		return types
	}
	for _, report := range reports {
		types = append(types, report.Type)
	}
	return types
}

func (s *service) buildSnapshot(previous *models.DriverRoute, driverID uuid.UUID, route *routing.Route, adjustedMin float64, now time.Time) *models.DriverRoute {
	snapshot := &models.DriverRoute{
		ID:                  uuid.New(),
		DriverID:            driverID,
		Geometry:            route.Geometry,
		TotalDistanceKm:     route.TotalDistanceKm,
		TotalDurationMin:    route.TotalDurationMin,
		AdjustedDurationMin: adjustedMin,
		LastOptimizedAt:     &now,
		RefreshCount:        1,
		UpdatedAt:           now,
	}
	if previous != nil {
		// Keep the aggregate's identity stable so order route_id references survive.
		snapshot.ID = previous.ID
		snapshot.CreatedAt = previous.CreatedAt
		snapshot.RefreshCount = previous.RefreshCount + 1
	}

	snapshot.Waypoints = make([]models.Waypoint, 0, len(route.Stops))
	for i, stop := range route.Stops {
		orderID, err := uuid.Parse(stop.OrderID)
		if err != nil {
			continue
		}
		snapshot.Waypoints = append(snapshot.Waypoints, models.Waypoint{
			OrderID:      orderID,
			Sequence:     i,
			Lat:          stop.Coordinate.Lat,
			Lon:          stop.Coordinate.Lon,
			LocationCode: stop.LocationCode,
			Address:      stop.Address,
		})
	}
	return snapshot
}

// persist writes the snapshot and every order's ETA in one transaction, so a
// reader sees either the old route with old ETAs or the new route with new ones.
func (s *service) persist(ctx context.Context, snapshot *models.DriverRoute, etas []routing.ETAEntry, now time.Time) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.routes.WithTx(tx).Save(ctx, snapshot); err != nil {
			return err
		}
		ordersRepo := s.orders.WithTx(tx)
		for _, entry := range etas {
			orderID, err := uuid.Parse(entry.OrderID)
			if err != nil {
				continue
			}
			updates := map[string]any{
				"estimated_arrival": entry.ETA,
				"route_id":          snapshot.ID,
				"updated_at":        now,
			}
			if err := ordersRepo.Update(ctx, orderID, updates); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist route snapshot")
	}
	return nil
}

func (s *service) broadcast(ctx context.Context, driverID uuid.UUID, snapshot *models.DriverRoute, etas []routing.ETAEntry) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, realtime.DriverTopic(driverID), realtime.EventRouteRefreshed, snapshot)
	for _, entry := range etas {
		orderID, err := uuid.Parse(entry.OrderID)
		if err != nil {
			continue
		}
		s.publisher.Publish(ctx, realtime.OrderTopic(orderID), realtime.EventETAUpdated, ETAPayload{
			OrderID: entry.OrderID,
			NewETA:  entry.ETA,
		})
	}
}

// stopsFromOrders maps each active order to its next required location:
// pickup until the package is on board, delivery afterwards.
func stopsFromOrders(active []models.Order) []routing.Stop {
	stops := make([]routing.Stop, 0, len(active))
	for _, order := range active {
		leg := order.Delivery
		if order.Status == enums.OrderStatusAssigned {
			leg = order.Pickup
		}
		stops = append(stops, routing.Stop{
			OrderID:      order.ID.String(),
			Address:      leg.Address,
			LocationCode: leg.LocationCode,
			Coordinate:   routing.Coordinate{Lat: leg.Lat, Lon: leg.Lon},
		})
	}
	return stops
}

// spreadPenalty distributes the condition penalty evenly across legs so the
// cumulative ETA of the last stop matches the adjusted total duration.
func spreadPenalty(perLegMin []float64, penaltyMin float64) []float64 {
	if len(perLegMin) == 0 || penaltyMin <= 0 {
		return perLegMin
	}
	share := penaltyMin / float64(len(perLegMin))
	out := make([]float64, len(perLegMin))
	for i, leg := range perLegMin {
		out[i] = leg + share
	}
	return out
}
