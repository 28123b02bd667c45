package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"storefront/internal/cache"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// ProductService serves the public catalog and the admin product panel.
// Read paths degrade to empty results; write paths return errors.
type ProductService interface {
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	CountProducts(ctx context.Context, filter model.ProductFilter) (int64, error)
	// GetProduct returns nil, nil when no product has the id.
	GetProduct(ctx context.Context, productID int64) (*model.Product, error)
	// GetFullProduct is the uncached admin read.
	GetFullProduct(ctx context.Context, productID int64) (*model.Product, error)
	CreateProduct(ctx context.Context, in model.ProductInput) (*model.Product, error)
	// UpdateProduct returns nil, nil when no row matched.
	UpdateProduct(ctx context.Context, productID int64, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID int64) (bool, error)
}

type CategoryService interface {
	GetCategories(ctx context.Context) ([]*model.Category, error)
	// GetCategory returns nil, nil when no category has the id.
	GetCategory(ctx context.Context, categoryID int64) (*model.Category, error)
	CreateCategory(ctx context.Context, name, slug string) (*model.Category, error)
	UpdateCategory(ctx context.Context, categoryID int64, name, slug string) (bool, error)
	DeleteCategory(ctx context.Context, categoryID int64) (bool, error)
}

type productServiceImpl struct {
	productRepo repository.ProductRepository
	cache       cache.CatalogCache
	log         logrus.FieldLogger
}

func NewProductService(
	productRepo repository.ProductRepository,
	catalogCache cache.CatalogCache,
	log logrus.FieldLogger,
) ProductService {
	return &productServiceImpl{
		productRepo: productRepo,
		cache:       catalogCache,
		log:         log,
	}
}

// cached reads key through the catalog cache. Cache failures are logged and
// fall through to load.
func cached[T any](ctx context.Context, c cache.CatalogCache, log logrus.FieldLogger, key string, load func() (T, error)) (T, error) {
	var v T
	hit, err := c.Get(ctx, key, &v)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("catalog cache read failed")
	}
	if hit {
		return v, nil
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v); err != nil {
		log.WithError(err).WithField("key", key).Warn("catalog cache write failed")
	}
	return v, nil
}

func invalidate(ctx context.Context, c cache.CatalogCache, log logrus.FieldLogger) {
	if err := c.Invalidate(ctx); err != nil {
		log.WithError(err).Warn("catalog cache invalidation failed")
	}
}

func (s *productServiceImpl) ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	filter.Sort = model.ParseProductSort(string(filter.Sort))

	products, err := cached(ctx, s.cache, s.log, "products:"+filter.CacheKey(), func() ([]*model.Product, error) {
		return s.productRepo.List(ctx, filter)
	})
	if err != nil {
		s.log.WithError(err).WithField("category", filter.Category).Error("list products")
		return []*model.Product{}, nil
	}
	if products == nil {
		products = []*model.Product{}
	}
	return products, nil
}

func (s *productServiceImpl) CountProducts(ctx context.Context, filter model.ProductFilter) (int64, error) {
	filter = filter.CountFilter()

	count, err := cached(ctx, s.cache, s.log, "count:"+filter.CacheKey(), func() (int64, error) {
		return s.productRepo.Count(ctx, filter)
	})
	if err != nil {
		s.log.WithError(err).WithField("category", filter.Category).Error("count products")
		return 0, nil
	}
	return count, nil
}

func (s *productServiceImpl) GetProduct(ctx context.Context, productID int64) (*model.Product, error) {
	key := fmt.Sprintf("product:%d", productID)
	product, err := cached(ctx, s.cache, s.log, key, func() (*model.Product, error) {
		return s.productRepo.FindByID(ctx, productID)
	})
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	return product, nil
}

func (s *productServiceImpl) GetFullProduct(ctx context.Context, productID int64) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	return product, nil
}

func (s *productServiceImpl) CreateProduct(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, model.NewValidationError("title", "Title is required")
	}
	if in.Price.IsNegative() {
		return nil, model.NewValidationError("price", "Price must be a positive number")
	}

	product := in.Product()
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	invalidate(ctx, s.cache, s.log)

	s.log.WithField("product_id", product.ID).Info("product created")
	return product, nil
}

func (s *productServiceImpl) UpdateProduct(ctx context.Context, productID int64, patch model.ProductPatch) (*model.Product, error) {
	if patch.Empty() {
		return s.GetFullProduct(ctx, productID)
	}

	product, err := s.productRepo.Update(ctx, productID, patch)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update product %d: %w", productID, err)
	}
	invalidate(ctx, s.cache, s.log)

	return product, nil
}

func (s *productServiceImpl) DeleteProduct(ctx context.Context, productID int64) (bool, error) {
	deleted, err := s.productRepo.Delete(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("delete product %d: %w", productID, err)
	}
	if deleted {
		invalidate(ctx, s.cache, s.log)
	}
	return deleted, nil
}

type categoryServiceImpl struct {
	categoryRepo repository.CategoryRepository
	cache        cache.CatalogCache
	log          logrus.FieldLogger
}

func NewCategoryService(
	categoryRepo repository.CategoryRepository,
	catalogCache cache.CatalogCache,
	log logrus.FieldLogger,
) CategoryService {
	return &categoryServiceImpl{
		categoryRepo: categoryRepo,
		cache:        catalogCache,
		log:          log,
	}
}

func (s *categoryServiceImpl) GetCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := cached(ctx, s.cache, s.log, "categories", func() ([]*model.Category, error) {
		return s.categoryRepo.List(ctx)
	})
	if err != nil {
		s.log.WithError(err).Error("list categories")
		return []*model.Category{}, nil
	}
	if categories == nil {
		categories = []*model.Category{}
	}
	return categories, nil
}

func (s *categoryServiceImpl) GetCategory(ctx context.Context, categoryID int64) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", categoryID, err)
	}
	return category, nil
}

// categorySlug falls back to a slug derived from name and checks the result.
func categorySlug(name, slug string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", model.NewValidationError("name", "Name is required")
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if !ValidSlug(slug) {
		return "", model.NewValidationError("slug", "Slug can only contain lowercase letters, numbers, and hyphens")
	}
	return slug, nil
}

func (s *categoryServiceImpl) CreateCategory(ctx context.Context, name, slug string) (*model.Category, error) {
	slug, err := categorySlug(name, slug)
	if err != nil {
		return nil, err
	}

	category := &model.Category{Name: name, Slug: slug}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	invalidate(ctx, s.cache, s.log)

	return category, nil
}

func (s *categoryServiceImpl) UpdateCategory(ctx context.Context, categoryID int64, name, slug string) (bool, error) {
	slug, err := categorySlug(name, slug)
	if err != nil {
		return false, err
	}

	updated, err := s.categoryRepo.Update(ctx, categoryID, name, slug)
	if err != nil {
		return false, fmt.Errorf("update category %d: %w", categoryID, err)
	}
	if updated {
		invalidate(ctx, s.cache, s.log)
	}
	return updated, nil
}

func (s *categoryServiceImpl) DeleteCategory(ctx context.Context, categoryID int64) (bool, error) {
	deleted, err := s.categoryRepo.Delete(ctx, categoryID)
	if err != nil {
		return false, fmt.Errorf("delete category %d: %w", categoryID, err)
	}
	if deleted {
		invalidate(ctx, s.cache, s.log)
	}
	return deleted, nil
}
