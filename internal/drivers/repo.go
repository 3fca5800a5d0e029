package drivers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/courierloop/courierloop-backend/pkg/db/models"
)

type locationRepository struct {
	db *gorm.DB
}

// NewLocationRepository builds a driver location repository bound to the provided DB.
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) WithTx(tx *gorm.DB) LocationRepository {
	if tx == nil {
		return r
	}
	return &locationRepository{db: tx}
}

// Upsert overwrites the driver's row; one row per driver, last write wins.
func (r *locationRepository) Upsert(ctx context.Context, location *models.DriverLocation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "driver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lat", "lon", "location_code", "updated_at"}),
		}).
		Create(location).Error
}

func (r *locationRepository) FindByDriver(ctx context.Context, driverID uuid.UUID) (*models.DriverLocation, error) {
	var location models.DriverLocation
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		First(&location).Error
	if err != nil {
		return nil, err
	}
	return &location, nil
}
