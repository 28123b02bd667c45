package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price-asc"
	SortPriceDesc ProductSort = "price-desc"
	SortRating    ProductSort = "rating-desc"
)

// ParseProductSort maps anything outside the known values to newest.
func ParseProductSort(s string) ProductSort {
	switch ProductSort(s) {
	case SortPriceAsc, SortPriceDesc, SortRating:
		return ProductSort(s)
	}
	return SortNewest
}

// ProductFilter narrows a product listing. Zero prices mean no bound and a
// zero limit means no limit.
type ProductFilter struct {
	Category string
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	Sort     ProductSort
	Limit    int
	Offset   int
}

// CountFilter keeps only the predicates that affect a row count.
func (f ProductFilter) CountFilter() ProductFilter {
	return ProductFilter{Category: f.Category, MinPrice: f.MinPrice, MaxPrice: f.MaxPrice}
}

func (f ProductFilter) CacheKey() string {
	return fmt.Sprintf("c=%s|min=%s|max=%s|s=%s|l=%d|o=%d",
		f.Category, f.MinPrice.String(), f.MaxPrice.String(), f.Sort, f.Limit, f.Offset)
}

// ProductInput is a full product as submitted by the admin form.
type ProductInput struct {
	Title              string
	Description        string
	Price              decimal.Decimal
	DiscountAmount     decimal.Decimal
	DiscountPercentage int
	Rating             float64
	SrcURL             string
	Gallery            []string
	Category           string
	InStock            bool
}

func (in ProductInput) Product() *Product {
	gallery := in.Gallery
	if gallery == nil {
		gallery = []string{}
	}
	return &Product{
		Title:              in.Title,
		Description:        in.Description,
		Price:              in.Price,
		DiscountAmount:     in.DiscountAmount,
		DiscountPercentage: in.DiscountPercentage,
		Rating:             in.Rating,
		SrcURL:             in.SrcURL,
		Gallery:            gallery,
		Category:           in.Category,
		InStock:            in.InStock,
	}
}

// ProductPatch is a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Title              *string          `json:"title,omitempty"`
	Description        *string          `json:"description,omitempty"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
	DiscountPercentage *int             `json:"discount_percentage,omitempty"`
	Rating             *float64         `json:"rating,omitempty"`
	SrcURL             *string          `json:"src_url,omitempty"`
	Gallery            *[]string        `json:"gallery,omitempty"`
	Category           *string          `json:"category,omitempty"`
	InStock            *bool            `json:"in_stock,omitempty"`
	UpdatedAt          *time.Time       `json:"updated_at,omitempty"`
}

func (p ProductPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil &&
		p.DiscountAmount == nil && p.DiscountPercentage == nil && p.Rating == nil &&
		p.SrcURL == nil && p.Gallery == nil && p.Category == nil && p.InStock == nil
}

// Apply copies the set fields onto product and returns the column names it
// touched.
func (p ProductPatch) Apply(product *Product) []string {
	var cols []string
	if p.Title != nil {
		product.Title = *p.Title
		cols = append(cols, "title")
	}
	if p.Description != nil {
		product.Description = *p.Description
		cols = append(cols, "description")
	}
	if p.Price != nil {
		product.Price = *p.Price
		cols = append(cols, "price")
	}
	if p.DiscountAmount != nil {
		product.DiscountAmount = *p.DiscountAmount
		cols = append(cols, "discount_amount")
	}
	if p.DiscountPercentage != nil {
		product.DiscountPercentage = *p.DiscountPercentage
		cols = append(cols, "discount_percentage")
	}
	if p.Rating != nil {
		product.Rating = *p.Rating
		cols = append(cols, "rating")
	}
	if p.SrcURL != nil {
		product.SrcURL = *p.SrcURL
		cols = append(cols, "src_url")
	}
	if p.Gallery != nil {
		product.Gallery = *p.Gallery
		cols = append(cols, "gallery")
	}
	if p.Category != nil {
		product.Category = *p.Category
		cols = append(cols, "category")
	}
	if p.InStock != nil {
		product.InStock = *p.InStock
		cols = append(cols, "in_stock")
	}
	if p.UpdatedAt != nil {
		product.UpdatedAt = *p.UpdatedAt
		cols = append(cols, "updated_at")
	}
	return cols
}
