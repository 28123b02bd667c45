package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/model"
)

type ProductRepository interface {
	Seed(ctx context.Context) error
	List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	Count(ctx context.Context, filter model.ProductFilter) (int64, error)
	// FindByID returns model.ErrNotFound when no product has the id.
	FindByID(ctx context.Context, productID int64) (*model.Product, error)
	Create(ctx context.Context, product *model.Product) error
	// Update returns model.ErrNotFound when no row matched.
	Update(ctx context.Context, productID int64, patch model.ProductPatch) (*model.Product, error)
	Delete(ctx context.Context, productID int64) (bool, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

// Seed inserts the demo catalog into an empty products table.
func (r *productRepoImpl) Seed(ctx context.Context) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	products := seedProducts()
	return r.db.WithContext(ctx).Create(&products).Error
}

func applyProductFilter(q *gorm.DB, filter model.ProductFilter) *gorm.DB {
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if !filter.MinPrice.IsZero() {
		q = q.Where("price >= ?", filter.MinPrice)
	}
	if !filter.MaxPrice.IsZero() {
		q = q.Where("price <= ?", filter.MaxPrice)
	}
	return q
}

func productOrder(sort model.ProductSort) string {
	switch sort {
	case model.SortPriceAsc:
		return "price asc, id asc"
	case model.SortPriceDesc:
		return "price desc, id asc"
	case model.SortRating:
		return "rating desc, id asc"
	}
	return "created_at desc, id desc"
}

func (r *productRepoImpl) List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	q := applyProductFilter(r.db.WithContext(ctx).Model(&model.Product{}), filter).
		Order(productOrder(filter.Sort))
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var products []*model.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepoImpl) Count(ctx context.Context, filter model.ProductFilter) (int64, error) {
	var count int64
	err := applyProductFilter(r.db.WithContext(ctx).Model(&model.Product{}), filter).
		Count(&count).Error
	return count, err
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) Create(ctx context.Context, product *model.Product) error {
	if product.Gallery == nil {
		product.Gallery = []string{}
	}
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepoImpl) Update(ctx context.Context, productID int64, patch model.ProductPatch) (*model.Product, error) {
	now := time.Now()
	patch.UpdatedAt = &now

	var product model.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := model.Product{}
		cols := patch.Apply(&values)

		result := tx.Model(&model.Product{}).
			Where("id = ?", productID).
			Select(cols).
			Updates(&values)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Where("id = ?", productID).First(&product).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) Delete(ctx context.Context, productID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", productID).
		Delete(&model.Product{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func seedProducts() []model.Product {
	d := decimal.RequireFromString
	return []model.Product{
		{Title: "Gradient Graphic T-shirt", Price: d("145"), Rating: 3.5, Category: "t-shirts", InStock: true,
			SrcURL: "/images/pic1.png", Gallery: []string{"/images/pic1.png", "/images/pic10.png", "/images/pic11.png"}},
		{Title: "Polo with Tipping Details", Price: d("180"), Rating: 4.5, Category: "shirts", InStock: true,
			SrcURL: "/images/pic2.png", Gallery: []string{"/images/pic2.png"}},
		{Title: "Black Striped T-shirt", Price: d("150"), DiscountPercentage: 30, Rating: 5, Category: "t-shirts", InStock: true,
			SrcURL: "/images/pic3.png", Gallery: []string{"/images/pic3.png"}},
		{Title: "Skinny Fit Jeans", Price: d("260"), DiscountPercentage: 20, Rating: 3.5, Category: "jeans", InStock: true,
			SrcURL: "/images/pic4.png", Gallery: []string{"/images/pic4.png", "/images/pic10.png"}},
		{Title: "Checkered Shirt", Price: d("180"), Rating: 4.5, Category: "shirts", InStock: true,
			SrcURL: "/images/pic5.png", Gallery: []string{"/images/pic5.png"}},
		{Title: "Sleeve Striped T-shirt", Price: d("130"), DiscountPercentage: 30, Rating: 4.5, Category: "t-shirts", InStock: true,
			SrcURL: "/images/pic6.png", Gallery: []string{"/images/pic6.png"}},
		{Title: "Vertical Striped Shirt", Price: d("232"), DiscountPercentage: 20, Rating: 5, Category: "shirts", InStock: true,
			SrcURL: "/images/pic7.png", Gallery: []string{"/images/pic7.png"}},
		{Title: "Courage Graphic T-shirt", Price: d("145"), Rating: 4, Category: "t-shirts", InStock: true,
			SrcURL: "/images/pic8.png", Gallery: []string{"/images/pic8.png"}},
		{Title: "Loose Fit Bermuda Shorts", Price: d("80"), Rating: 3, Category: "shorts", InStock: true,
			SrcURL: "/images/pic9.png", Gallery: []string{"/images/pic9.png"}},
		{Title: "Faded Skinny Jeans", Price: d("210"), Rating: 4.5, Category: "jeans", InStock: false,
			SrcURL: "/images/pic10.png", Gallery: []string{"/images/pic10.png"}},
	}
}
