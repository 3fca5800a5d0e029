package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courierloop/courierloop-backend/pkg/db/models"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	"github.com/courierloop/courierloop-backend/pkg/pagination"
)

// Repository defines persistence operations for delivery orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListActiveByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context, filter AdminListFilter, params pagination.Params) (*OrderList, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateTrackingByDriver(ctx context.Context, driverID uuid.UUID, updates map[string]any) (int64, error)
}

// AdminListFilter narrows the admin order listing.
type AdminListFilter struct {
	Status *enums.OrderStatus
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
