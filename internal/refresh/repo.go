package refresh

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/courierloop/courierloop-backend/pkg/db/models"
)

type routeRepository struct {
	db *gorm.DB
}

// NewRouteRepository builds a driver route repository bound to the provided DB.
func NewRouteRepository(db *gorm.DB) RouteRepository {
	return &routeRepository{db: db}
}

func (r *routeRepository) WithTx(tx *gorm.DB) RouteRepository {
	if tx == nil {
		return r
	}
	return &routeRepository{db: tx}
}

func (r *routeRepository) FindByDriver(ctx context.Context, driverID uuid.UUID) (*models.DriverRoute, error) {
	var route models.DriverRoute
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		First(&route).Error
	if err != nil {
		return nil, err
	}
	return &route, nil
}

// Save upserts the driver's single aggregate row keyed by driver_id.
func (r *routeRepository) Save(ctx context.Context, route *models.DriverRoute) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "driver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"waypoints", "geometry",
				"total_distance_km", "total_duration_min", "adjusted_duration_min",
				"last_optimized_at", "refresh_count", "updated_at",
			}),
		}).
		Create(route).Error
}
