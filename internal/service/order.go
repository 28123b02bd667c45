package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"
)

type CartLine struct {
	ProductID model.ProductRef
	Quantity  int
	Price     decimal.Decimal
}

type PlaceOrderInput struct {
	UserID string
	Lines  []CartLine
	// TotalAmount is stored as given.
	TotalAmount decimal.Decimal
	Shipping    model.Address
	// Billing defaults to Shipping.
	Billing *model.Address
	// Status defaults to pending. Failed is reserved for compensation.
	Status model.OrderStatus
}

type PlaceOrderResult struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

type OrderService interface {
	// PlaceOrder writes the order and then its items. If the items cannot be
	// written the order row is deleted, or marked failed when the delete
	// fails too.
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]*model.Order, error)
	// GetOrderByID returns nil, nil when the order is missing or belongs to
	// someone other than viewerID.
	GetOrderByID(ctx context.Context, viewerID, orderID string) (*model.Order, error)
	LookupOrder(ctx context.Context, viewerID, orderID string) (model.OrderLookup, error)
	// SweepOrphans removes orders older than age that have no items or are
	// marked failed, and returns how many went.
	SweepOrphans(ctx context.Context, age time.Duration) (int, error)
}

type orderServiceImpl struct {
	orderRepo repository.OrderRepository
	validate  *validator.Validate
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	validate *validator.Validate,
	log logrus.FieldLogger,
) OrderService {
	return &orderServiceImpl{
		orderRepo: orderRepo,
		validate:  validate,
		log:       log,
		now:       time.Now,
	}
}

func ConfirmationURL(orderID string) string {
	return "/order-confirmation?orderId=" + url.QueryEscape(orderID)
}

// orderItems coerces every line before anything is written.
func orderItems(lines []CartLine) ([]*model.OrderItem, error) {
	items := make([]*model.OrderItem, len(lines))
	for i, line := range lines {
		productID, err := line.ProductID.Int64()
		if err != nil {
			return nil, err
		}
		if line.Quantity <= 0 {
			return nil, model.NewValidationError("quantity", "Quantity must be at least 1")
		}
		items[i] = &model.OrderItem{
			ProductID:       productID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.Price,
		}
	}
	return items, nil
}

func (s *orderServiceImpl) validateAddress(field string, addr *model.Address) error {
	if err := s.validate.Struct(addr); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return model.NewValidationError(field+"."+verrs[0].Field(), addressMessage(verrs[0]))
		}
		return model.NewValidationError(field, err.Error())
	}
	return nil
}

func addressMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

func (s *orderServiceImpl) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if in.UserID == "" {
		return nil, model.ErrNotAuthenticated
	}
	if len(in.Lines) == 0 {
		return nil, model.ErrEmptyCart
	}
	items, err := orderItems(in.Lines)
	if err != nil {
		return nil, err
	}
	if err := s.validateAddress("shipping_address", &in.Shipping); err != nil {
		return nil, err
	}
	billing := in.Billing
	if billing == nil {
		shipping := in.Shipping
		billing = &shipping
	} else if err := s.validateAddress("billing_address", billing); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = model.OrderStatusPending
	}
	if !status.Valid() || status == model.OrderStatusFailed {
		return nil, model.NewValidationError("status", "Status is invalid")
	}

	log := s.log.WithField("user_id", in.UserID)

	order := &model.Order{
		UserID:          in.UserID,
		TotalAmount:     in.TotalAmount,
		Status:          status,
		ShippingAddress: in.Shipping,
		BillingAddress:  billing,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		metrics.RecordOrder(metrics.OrderFailed)
		log.WithError(err).Error("create order")
		return nil, fmt.Errorf("create order: %w", err)
	}
	log = log.WithField("order_id", order.ID)

	for _, item := range items {
		item.OrderID = order.ID
	}
	if err := s.orderRepo.CreateOrderItems(ctx, items); err != nil {
		log.WithError(err).WithField("items", len(items)).Error("create order items")
		s.compensate(ctx, log, order.ID)

		if errors.Is(err, model.ErrProductMissing) {
			return nil, model.ErrProductMissing
		}
		return nil, fmt.Errorf("create order items: %w", err)
	}

	metrics.RecordOrder(metrics.OrderPlaced)
	log.Info("order placed")

	return &PlaceOrderResult{
		OrderID:     order.ID,
		RedirectURL: ConfirmationURL(order.ID),
	}, nil
}

// compensate undoes a half-written order. It runs even if the request was
// cancelled.
func (s *orderServiceImpl) compensate(ctx context.Context, log logrus.FieldLogger, orderID string) {
	ctx = context.WithoutCancel(ctx)

	err := s.orderRepo.Delete(ctx, orderID)
	if errors.Is(err, model.ErrNotFound) {
		// A row policy can refuse the delete with zero rows. Confirm with a
		// re-read.
		if _, findErr := s.orderRepo.FindByID(ctx, orderID); errors.Is(findErr, model.ErrNotFound) {
			err = nil
		}
	}
	if err == nil {
		metrics.RecordOrder(metrics.OrderCompensated)
		log.Warn("order removed after item write failure")
		return
	}
	log.WithError(err).Error("compensating delete failed")

	if err := s.orderRepo.MarkFailed(ctx, orderID); err != nil {
		metrics.RecordOrder(metrics.OrderOrphaned)
		log.WithError(err).Error("order left without items")
		return
	}
	metrics.RecordOrder(metrics.OrderMarkedFail)
	log.Warn("order marked failed")
}

func (s *orderServiceImpl) GetOrdersByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	if userID == "" {
		return nil, errors.New("User ID is required to fetch orders.")
	}

	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	return orders, nil
}

func (s *orderServiceImpl) LookupOrder(ctx context.Context, viewerID, orderID string) (model.OrderLookup, error) {
	if orderID == "" {
		return model.OrderLookup{}, errors.New("Order ID is required to fetch an order.")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, model.ErrNotFound) {
		return model.OrderLookup{Outcome: model.OrderNotFound}, nil
	}
	if err != nil {
		return model.OrderLookup{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if order.UserID != viewerID {
		s.log.WithFields(logrus.Fields{"order_id": orderID, "user_id": viewerID}).
			Warn("order belongs to another user")
		return model.OrderLookup{Outcome: model.OrderForbidden}, nil
	}
	return model.OrderLookup{Outcome: model.OrderFound, Order: order}, nil
}

func (s *orderServiceImpl) GetOrderByID(ctx context.Context, viewerID, orderID string) (*model.Order, error) {
	lookup, err := s.LookupOrder(ctx, viewerID, orderID)
	if err != nil {
		return nil, err
	}
	if lookup.Outcome != model.OrderFound {
		return nil, nil
	}
	return lookup.Order, nil
}

func (s *orderServiceImpl) SweepOrphans(ctx context.Context, age time.Duration) (int, error) {
	ids, err := s.orderRepo.ListOrphans(ctx, s.now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("list orphan orders: %w", err)
	}

	swept := 0
	for _, id := range ids {
		if err := s.orderRepo.Delete(ctx, id); err != nil && !errors.Is(err, model.ErrNotFound) {
			s.log.WithError(err).WithField("order_id", id).Error("sweep orphan order")
			continue
		}
		swept++
	}
	metrics.RecordSwept(swept)
	return swept, nil
}
