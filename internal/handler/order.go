package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/dto"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	lines := make([]service.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, service.CartLine{
			ProductID: item.Ref(),
			Quantity:  item.Quantity,
			Price:     item.UnitPrice(),
		})
	}

	result, err := h.orderService.PlaceOrder(ctx, service.PlaceOrderInput{
		UserID:      middleware.UserID(c),
		Lines:       lines,
		TotalAmount: req.TotalAmount,
		Shipping:    req.ShippingAddress,
		Billing:     req.BillingAddress,
		Status:      model.OrderStatusPending,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, dto.CheckoutResponse{
		OrderID:     result.OrderID,
		RedirectURL: result.RedirectURL,
		CartCleared: true,
		Message:     fmt.Sprintf("Your order #%s has been placed.", result.OrderID),
	})
}

// GetOrder shows one of the caller's orders. Orders of other users get a
// 403 when the store can tell them apart from missing ones.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	lookup, err := h.orderService.LookupOrder(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}

	switch lookup.Outcome {
	case model.OrderFound:
		return c.JSON(http.StatusOK, lookup.Order)
	case model.OrderForbidden:
		return echo.NewHTTPError(http.StatusForbidden, "You do not have permission to view this order")
	default:
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}
}
