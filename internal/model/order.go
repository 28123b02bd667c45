package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	// OrderStatusFailed marks an order whose items could not be written and
	// whose compensating delete also failed.
	OrderStatusFailed OrderStatus = "failed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

type Address struct {
	FullName   string `json:"fullName" validate:"required,min=2"`
	Street     string `json:"street" validate:"required,min=3"`
	City       string `json:"city" validate:"required,min=2"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode" validate:"required,min=3"`
	Country    string `json:"country" validate:"required,min=2"`
	Phone      string `json:"phone,omitempty"`
}

// ProductRef is a cart line's product id as the client sent it. Carts
// persisted in the browser carry either numbers or numeric strings.
type ProductRef string

func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ProductRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a string or a number: %w", err)
	}
	*r = ProductRef(n.String())
	return nil
}

// Int64 coerces the reference to a numeric product id. Only whole numbers
// are accepted: "12", 12 and 12.0 pass, "12abc" and 12.5 do not.
func (r ProductRef) Int64() (int64, error) {
	s := strings.TrimSpace(string(r))
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidProductID, string(r))
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidProductID, string(r))
	}
	return int64(f), nil
}

// OrderOutcome tells the three ways a single-order lookup can end.
type OrderOutcome int

const (
	OrderNotFound OrderOutcome = iota
	OrderFound
	OrderForbidden
)

func (o OrderOutcome) String() string {
	switch o {
	case OrderFound:
		return "found"
	case OrderForbidden:
		return "forbidden"
	default:
		return "not_found"
	}
}

type OrderLookup struct {
	Outcome OrderOutcome
	Order   *Order
}
