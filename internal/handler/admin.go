package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/dto"
	"storefront/internal/model"
	"storefront/internal/service"
)

type AdminHandler struct {
	productService  service.ProductService
	categoryService service.CategoryService
	mediaService    service.MediaService
}

func NewAdminHandler(productService service.ProductService, categoryService service.CategoryService, mediaService service.MediaService) *AdminHandler {
	return &AdminHandler{
		productService:  productService,
		categoryService: categoryService,
		mediaService:    mediaService,
	}
}

// -------- products --------

func (h *AdminHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	products, err := h.productService.ListProducts(ctx, model.ProductFilter{
		Category: c.QueryParam("category"),
		Sort:     model.ParseProductSort(c.QueryParam("sort")),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, products)
}

func (h *AdminHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := paramID(c)
	if err != nil {
		return err
	}

	product, err := h.productService.GetFullProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *AdminHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProductRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	product, err := h.productService.CreateProduct(ctx, req.Input())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := paramID(c)
	if err != nil {
		return err
	}

	var req dto.ProductRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	product, err := h.productService.UpdateProduct(ctx, productID, req.Patch())
	if err != nil {
		return err
	}
	if product == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *AdminHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := paramID(c)
	if err != nil {
		return err
	}

	deleted, err := h.productService.DeleteProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	return c.NoContent(http.StatusNoContent)
}

// UploadProductImages takes a "main" file and any number of "gallery"
// files.
func (h *AdminHandler) UploadProductImages(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := paramID(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form expected")
	}
	mains, galleryFiles := form.File["main"], form.File["gallery"]
	if len(mains) == 0 && len(galleryFiles) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no images uploaded")
	}

	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	open := func(fh *multipart.FileHeader) (service.Upload, error) {
		upload, f, err := openUpload(fh)
		if err != nil {
			return service.Upload{}, err
		}
		opened = append(opened, f)
		return upload, nil
	}

	var mainImage *service.Upload
	if len(mains) > 0 {
		upload, err := open(mains[0])
		if err != nil {
			return err
		}
		mainImage = &upload
	}
	gallery := make([]service.Upload, 0, len(galleryFiles))
	for _, fh := range galleryFiles {
		upload, err := open(fh)
		if err != nil {
			return err
		}
		gallery = append(gallery, upload)
	}

	product, err := h.mediaService.UploadProductImages(ctx, productID, mainImage, gallery)
	if err != nil {
		return err
	}
	if product == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	return c.JSON(http.StatusOK, product)
}

// -------- categories --------

func (h *AdminHandler) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()

	categories, err := h.categoryService.GetCategories(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, categories)
}

func (h *AdminHandler) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()

	categoryID, err := paramID(c)
	if err != nil {
		return err
	}

	category, err := h.categoryService.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Category not found")
	}

	return c.JSON(http.StatusOK, category)
}

func (h *AdminHandler) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	category, err := h.categoryService.CreateCategory(ctx, req.Name, req.Slug)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, category)
}

func (h *AdminHandler) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	categoryID, err := paramID(c)
	if err != nil {
		return err
	}

	var req dto.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	updated, err := h.categoryService.UpdateCategory(ctx, categoryID, req.Name, req.Slug)
	if err != nil {
		return err
	}
	if !updated {
		return echo.NewHTTPError(http.StatusNotFound, "Category not found")
	}

	return c.JSON(http.StatusOK, map[string]bool{
		"updated": true,
	})
}

func (h *AdminHandler) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()

	categoryID, err := paramID(c)
	if err != nil {
		return err
	}

	deleted, err := h.categoryService.DeleteCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "Category not found")
	}

	return c.NoContent(http.StatusNoContent)
}
