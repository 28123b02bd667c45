package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"storefront/internal/dto"
	"storefront/internal/model"
	"storefront/internal/service"
)

const homeShelfSize = 4

type CatalogHandler struct {
	productService  service.ProductService
	categoryService service.CategoryService
	pageSize        int
}

func NewCatalogHandler(productService service.ProductService, categoryService service.CategoryService, pageSize int) *CatalogHandler {
	return &CatalogHandler{
		productService:  productService,
		categoryService: categoryService,
		pageSize:        pageSize,
	}
}

func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *CatalogHandler) Shop(c echo.Context) error {
	ctx := c.Request().Context()

	q := service.ParseListingQuery(c.QueryParam("page"), c.QueryParam("sort"), c.QueryParam("category"))
	listing, err := service.BuildListing(ctx, h.productService, q, h.pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listing)
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := paramID(c)
	if err != nil {
		return err
	}

	product, err := h.productService.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) GetCategories(c echo.Context) error {
	ctx := c.Request().Context()

	categories, err := h.categoryService.GetCategories(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, categories)
}

// Home returns the new arrivals and top rated shelves.
func (h *CatalogHandler) Home(c echo.Context) error {
	ctx := c.Request().Context()

	newArrivals, err := h.productService.ListProducts(ctx, model.ProductFilter{Sort: model.SortNewest, Limit: homeShelfSize})
	if err != nil {
		return err
	}
	topRated, err := h.productService.ListProducts(ctx, model.ProductFilter{Sort: model.SortRating, Limit: homeShelfSize})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.HomeResponse{
		NewArrivals: newArrivals,
		TopRated:    topRated,
	})
}
