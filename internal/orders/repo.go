package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courierloop/courierloop-backend/pkg/db/models"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	"github.com/courierloop/courierloop-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID)
	return r.listPage(ctx, query, params)
}

func (r *repository) ListActiveByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND status IN ?", driverID, enums.ActiveOrderStatuses).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListAll(ctx context.Context, filter AdminListFilter, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return r.listPage(ctx, query, params)
}

func (r *repository) listPage(ctx context.Context, query *gorm.DB, params pagination.Params) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor != nil {
			query = query.Where(
				"(created_at, id) < (?, ?)",
				cursor.CreatedAt, cursor.ID,
			)
		}
	}

	var rows []models.Order
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &OrderList{Orders: rows}
	if len(rows) > limit {
		list.Orders = rows[:limit]
		last := list.Orders[len(list.Orders)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpdateTrackingByDriver(ctx context.Context, driverID uuid.UUID, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("driver_id = ? AND status IN ?", driverID, enums.ActiveOrderStatuses).
		Updates(updates)
	return res.RowsAffected, res.Error
}
