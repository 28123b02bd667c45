package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/client"
	"storefront/internal/model"
)

const (
	ordersTable     = "orders"
	orderItemsTable = "order_items"

	orderSelect = "*,order_items(*,products(id,title,price,src_url,category))"
)

type orderRestRepoImpl struct {
	rest client.SupabaseClient
}

// NewOrderRestRepository stores orders through PostgREST. Row-level security
// hides other users' orders, so FindByID cannot tell "absent" from "not
// yours".
func NewOrderRestRepository(rest client.SupabaseClient) OrderRepository {
	return &orderRestRepoImpl{
		rest: rest,
	}
}

type orderWrite struct {
	UserID          string            `json:"user_id"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	Status          model.OrderStatus `json:"status"`
	ShippingAddress model.Address     `json:"shipping_address"`
	BillingAddress  *model.Address    `json:"billing_address"`
}

type orderItemWrite struct {
	OrderID         string          `json:"order_id"`
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// orderRow mirrors the embedded select, where the product comes back under
// the table name.
type orderRow struct {
	model.Order
	OrderItems []orderItemRow `json:"order_items"`
}

type orderItemRow struct {
	model.OrderItem
	Products *model.Product `json:"products"`
}

func (row orderRow) toModel() *model.Order {
	order := row.Order
	order.OrderItems = make([]model.OrderItem, len(row.OrderItems))
	for i, it := range row.OrderItems {
		item := it.OrderItem
		item.Product = it.Products
		order.OrderItems[i] = item
	}
	return &order
}

func (r *orderRestRepoImpl) Create(ctx context.Context, order *model.Order) error {
	body, err := r.rest.Insert(ctx, ordersTable, orderWrite{
		UserID:          order.UserID,
		TotalAmount:     order.TotalAmount,
		Status:          order.Status,
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
	}, url.Values{"select": {"*"}})
	if err != nil {
		return err
	}
	created, err := firstRow[model.Order](body)
	if err != nil {
		return fmt.Errorf("decode created order: %w", err)
	}
	if created == nil || created.ID == "" {
		return errors.New("insert order: no row returned")
	}
	*order = *created
	return nil
}

func (r *orderRestRepoImpl) CreateOrderItems(ctx context.Context, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]orderItemWrite, len(items))
	for i, it := range items {
		rows[i] = orderItemWrite{
			OrderID:         it.OrderID,
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
		}
	}
	_, err := r.rest.Insert(ctx, orderItemsTable, rows, nil)
	if client.IsForeignKeyViolation(err) {
		return model.ErrProductMissing
	}
	return err
}

func (r *orderRestRepoImpl) Delete(ctx context.Context, orderID string) error {
	body, err := r.rest.Delete(ctx, ordersTable, url.Values{"id": {client.Eq(orderID)}})
	if err != nil {
		return err
	}
	if rowCount(body) == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *orderRestRepoImpl) MarkFailed(ctx context.Context, orderID string) error {
	body, err := r.rest.Update(ctx, ordersTable, map[string]interface{}{
		"status":     model.OrderStatusFailed,
		"updated_at": time.Now().UTC(),
	}, url.Values{"id": {client.Eq(orderID)}})
	if err != nil {
		return err
	}
	if rowCount(body) == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *orderRestRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	body, err := r.rest.Select(ctx, ordersTable, url.Values{
		"select":  {orderSelect},
		"user_id": {client.Eq(userID)},
		"order":   {"created_at.desc"},
	})
	if err != nil {
		return nil, err
	}
	var rows []orderRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	orders := make([]*model.Order, len(rows))
	for i, row := range rows {
		orders[i] = row.toModel()
	}
	return orders, nil
}

func (r *orderRestRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	body, err := r.rest.SelectSingle(ctx, ordersTable, url.Values{
		"select": {orderSelect},
		"id":     {client.Eq(orderID)},
	})
	if client.IsNoRows(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var row orderRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return row.toModel(), nil
}

func (r *orderRestRepoImpl) ListOrphans(ctx context.Context, cutoff time.Time) ([]string, error) {
	body, err := r.rest.Select(ctx, ordersTable, url.Values{
		"select":     {"id,status,order_items(id)"},
		"created_at": {client.Lt(cutoff.UTC().Format(time.RFC3339))},
		"order":      {"created_at.asc"},
	})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID         string            `json:"id"`
		Status     model.OrderStatus `json:"status"`
		OrderItems []json.RawMessage `json:"order_items"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	var ids []string
	for _, row := range rows {
		if row.Status == model.OrderStatusFailed || len(row.OrderItems) == 0 {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}
