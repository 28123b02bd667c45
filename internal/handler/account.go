package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/dto"
	"storefront/internal/middleware"
	"storefront/internal/service"
)

type AccountHandler struct {
	orderService service.OrderService
	mediaService service.MediaService
}

func NewAccountHandler(orderService service.OrderService, mediaService service.MediaService) *AccountHandler {
	return &AccountHandler{
		orderService: orderService,
		mediaService: mediaService,
	}
}

// openUpload opens a multipart file field. The caller closes the file.
func openUpload(fh *multipart.FileHeader) (service.Upload, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, nil, err
	}
	return service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Body:        f,
	}, f, nil
}

func (h *AccountHandler) GetProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProfileRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := s.UpdateProfile(ctx, req.Patch()); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, s.GetState().User)
}

func (h *AccountHandler) UploadAvatar(c echo.Context) error {
	ctx := c.Request().Context()

	fh, err := c.FormFile("avatar")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "avatar file is required")
	}
	upload, f, err := openUpload(fh)
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := currentSession(c)
	if err != nil {
		return err
	}
	avatarURL, err := h.mediaService.ReplaceAvatar(ctx, s, middleware.CurrentUser(c), upload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"avatar_url": avatarURL,
	})
}

func (h *AccountHandler) RemoveAvatar(c echo.Context) error {
	ctx := c.Request().Context()

	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.mediaService.RemoveAvatar(ctx, s, middleware.CurrentUser(c)); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.GetOrdersByUserID(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orders)
}
