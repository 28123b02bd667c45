package dto

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	AccessToken     string `json:"access_token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ProfileRequest struct {
	FullName *string `json:"full_name"`
	Username *string `json:"username"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

func (r ProfileRequest) Patch() model.ProfilePatch {
	return model.ProfilePatch{
		FullName: r.FullName,
		Username: r.Username,
		Phone:    r.Phone,
		Address:  r.Address,
	}
}

type CartItem struct {
	ProductID model.ProductRef `json:"product_id"`
	// ID is accepted for carts saved before product_id existed.
	ID       model.ProductRef `json:"id"`
	Quantity int              `json:"quantity"`

	Price decimal.Decimal `json:"price"`
	// PriceAtPurchase is the order item spelling of Price.
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

func (i CartItem) UnitPrice() decimal.Decimal {
	if i.Price.IsZero() {
		return i.PriceAtPurchase
	}
	return i.Price
}

func (i CartItem) Ref() model.ProductRef {
	if i.ProductID != "" {
		return i.ProductID
	}
	return i.ID
}

type CheckoutRequest struct {
	Items           []CartItem      `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress model.Address   `json:"shipping_address"`
	BillingAddress  *model.Address  `json:"billing_address"`
}

type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
	CartCleared bool   `json:"cart_cleared"`
	Message     string `json:"message"`
}

// Gallery accepts either a JSON array of URLs or a comma-separated string.
type Gallery []string

func (g *Gallery) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*g = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = SplitGallery(s)
		return nil
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return err
	}
	*g = SplitGallery(strings.Join(urls, ","))
	return nil
}

// SplitGallery trims each entry and drops the empty ones.
func SplitGallery(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type ProductRequest struct {
	Title              string          `json:"title" validate:"required"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercentage int             `json:"discount_percentage" validate:"min=0,max=100"`
	Rating             float64         `json:"rating" validate:"min=0,max=5"`
	SrcURL             string          `json:"src_url"`
	Gallery            Gallery         `json:"gallery"`
	Category           string          `json:"category"`
	InStock            *bool           `json:"in_stock"`
}

// Input defaults in_stock to true, as the admin form does.
func (r ProductRequest) Input() model.ProductInput {
	inStock := true
	if r.InStock != nil {
		inStock = *r.InStock
	}
	return model.ProductInput{
		Title:              strings.TrimSpace(r.Title),
		Description:        r.Description,
		Price:              r.Price,
		DiscountAmount:     r.DiscountAmount,
		DiscountPercentage: r.DiscountPercentage,
		Rating:             r.Rating,
		SrcURL:             r.SrcURL,
		Gallery:            []string(r.Gallery),
		Category:           r.Category,
		InStock:            inStock,
	}
}

// Patch sends every field, the way the admin edit form saves.
func (r ProductRequest) Patch() model.ProductPatch {
	in := r.Input()
	gallery := in.Gallery
	if gallery == nil {
		gallery = []string{}
	}
	return model.ProductPatch{
		Title:              &in.Title,
		Description:        &in.Description,
		Price:              &in.Price,
		DiscountAmount:     &in.DiscountAmount,
		DiscountPercentage: &in.DiscountPercentage,
		Rating:             &in.Rating,
		SrcURL:             &in.SrcURL,
		Gallery:            &gallery,
		Category:           &in.Category,
		InStock:            &in.InStock,
	}
}

type CategoryRequest struct {
	Name string `json:"name"`
	// Slug is derived from Name when empty.
	Slug string `json:"slug"`
}

type AuthStateResponse struct {
	User          *model.UserProfile `json:"user"`
	Authenticated bool               `json:"authenticated"`
	IsAdmin       bool               `json:"is_admin"`
	Loading       bool               `json:"loading"`
	Error         string             `json:"error,omitempty"`
}

type HomeResponse struct {
	NewArrivals []*model.Product `json:"new_arrivals"`
	TopRated    []*model.Product `json:"top_rated"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
