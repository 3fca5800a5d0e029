package refresh

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courierloop/courierloop-backend/pkg/db/models"
)

// RouteRepository persists the per-driver route aggregate.
type RouteRepository interface {
	WithTx(tx *gorm.DB) RouteRepository
	FindByDriver(ctx context.Context, driverID uuid.UUID) (*models.DriverRoute, error)
	Save(ctx context.Context, route *models.DriverRoute) error
}

// TxRunner executes fn inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Publisher fans events out to realtime topic subscribers.
type Publisher interface {
	Publish(ctx context.Context, topic, name string, payload any)
}
