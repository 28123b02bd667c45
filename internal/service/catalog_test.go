package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cache"
	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/repository"
)

func newCatalog(t *testing.T, c cache.CatalogCache) (ProductService, CategoryService) {
	t.Helper()
	db := newTestDB(t)
	log := logger.Discard()
	return NewProductService(repository.NewProductRepository(db), c, log),
		NewCategoryService(repository.NewCategoryRepository(db), c, log)
}

func TestProductServiceMissingRowsAreNil(t *testing.T) {
	ctx := context.Background()
	products, categories := newCatalog(t, cache.NewNoopCatalogCache())

	p, err := products.GetProduct(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = products.GetFullProduct(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, p)

	c, err := categories.GetCategory(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, c)

	title := "ghost"
	p, err = products.UpdateProduct(ctx, 999, model.ProductPatch{Title: &title})
	assert.NoError(t, err)
	assert.Nil(t, p)

	deleted, err := products.DeleteProduct(ctx, 999)
	assert.NoError(t, err)
	assert.False(t, deleted)

	updated, err := categories.UpdateCategory(ctx, 999, "Ghost", "")
	assert.NoError(t, err)
	assert.False(t, updated)

	deleted, err = categories.DeleteCategory(ctx, 999)
	assert.NoError(t, err)
	assert.False(t, deleted)
}

func TestProductServiceCRUD(t *testing.T) {
	ctx := context.Background()
	products, _ := newCatalog(t, cache.NewNoopCatalogCache())

	_, err := products.CreateProduct(ctx, model.ProductInput{Price: dec("1")})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)

	created, err := products.CreateProduct(ctx, model.ProductInput{
		Title:    "Denim Jacket",
		Price:    dec("89.90"),
		Category: "jackets",
		Gallery:  []string{"a.png", "b.png"},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	price := dec("79.90")
	updated, err := products.UpdateProduct(ctx, created.ID, model.ProductPatch{Price: &price})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, price.Equal(updated.Price))
	assert.Equal(t, "Denim Jacket", updated.Title)
	assert.Equal(t, []string{"a.png", "b.png"}, updated.Gallery)

	got, err := products.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "jackets", got.Category)

	deleted, err := products.DeleteProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestCategoryServiceDerivesSlug(t *testing.T) {
	ctx := context.Background()
	_, categories := newCatalog(t, cache.NewNoopCatalogCache())

	c, err := categories.CreateCategory(ctx, "Summer Dresses", "")
	require.NoError(t, err)
	assert.Equal(t, "summer-dresses", c.Slug)

	_, err = categories.CreateCategory(ctx, "Bad", "Not A Slug")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slug", verr.Field)

	_, err = categories.CreateCategory(ctx, "!!!", "")
	require.ErrorAs(t, err, &verr)

	updated, err := categories.UpdateCategory(ctx, c.ID, "Winter Coats", "")
	require.NoError(t, err)
	assert.True(t, updated)

	list, err := categories.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "winter-coats", list[0].Slug)
}

func TestCatalogCacheInvalidatedByWrites(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	products, categories := newCatalog(t, cache.NewRedisCatalogCache(rdb, time.Minute))

	list, err := categories.GetCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.True(t, mr.Exists("catalog:categories"))

	_, err = categories.CreateCategory(ctx, "Hats", "")
	require.NoError(t, err)
	assert.False(t, mr.Exists("catalog:categories"))

	list, err = categories.GetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	filter := model.ProductFilter{Category: "hats", Limit: 9}
	items, err := products.ListProducts(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = products.CreateProduct(ctx, model.ProductInput{Title: "Cap", Price: dec("15"), Category: "hats"})
	require.NoError(t, err)

	items, err = products.ListProducts(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	count, err := products.CountProducts(ctx, filter)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCatalogReadsSurviveCacheOutage(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	products, _ := newCatalog(t, cache.NewRedisCatalogCache(rdb, time.Minute))
	mr.Close()

	_, err := products.CreateProduct(ctx, model.ProductInput{Title: "Cap", Price: dec("15")})
	require.NoError(t, err)

	items, err := products.ListProducts(ctx, model.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
