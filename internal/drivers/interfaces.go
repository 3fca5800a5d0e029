package drivers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courierloop/courierloop-backend/pkg/db/models"
)

// LocationRepository persists each driver's last known position.
type LocationRepository interface {
	WithTx(tx *gorm.DB) LocationRepository
	Upsert(ctx context.Context, location *models.DriverLocation) error
	FindByDriver(ctx context.Context, driverID uuid.UUID) (*models.DriverLocation, error)
}

// Publisher fans events out to realtime topic subscribers.
type Publisher interface {
	Publish(ctx context.Context, topic, name string, payload any)
}
