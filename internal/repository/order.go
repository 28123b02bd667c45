package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"storefront/internal/model"
)

// OrderRepository persists orders and their line items. Writes are not
// transactional across the two tables; callers compensate.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	// CreateOrderItems returns model.ErrProductMissing when an item points at
	// a product that does not exist.
	CreateOrderItems(ctx context.Context, items []*model.OrderItem) error
	Delete(ctx context.Context, orderID string) error
	MarkFailed(ctx context.Context, orderID string) error
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
	// FindByID returns model.ErrNotFound when the order is absent or not
	// visible to the caller.
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	// ListOrphans returns ids of orders created before cutoff that either
	// have no items or are marked failed.
	ListOrphans(ctx context.Context, cutoff time.Time) ([]string, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Omit("OrderItems").Create(order).Error
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Omit("Product").Create(&items).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return model.ErrProductMissing
	}
	return err
}

func (r *orderRepoImpl) Delete(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		Delete(&model.Order{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *orderRepoImpl) MarkFailed(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     model.OrderStatusFailed,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func preloadOrderItems(q *gorm.DB) *gorm.DB {
	return q.
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc, id asc")
		}).
		Preload("OrderItems.Product", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "price", "src_url", "category")
		})
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := preloadOrderItems(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := preloadOrderItems(r.db.WithContext(ctx)).
		Where("id = ?", orderID).
		First(&order).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) ListOrphans(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("created_at < ?", cutoff).
		Where("status = ? OR NOT EXISTS (SELECT 1 FROM order_items WHERE order_items.order_id = orders.id)", model.OrderStatusFailed).
		Order("created_at asc").
		Pluck("id", &ids).Error

	if err != nil {
		return nil, err
	}

	return ids, nil
}
