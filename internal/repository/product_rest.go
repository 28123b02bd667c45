package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/client"
	"storefront/internal/model"
)

const productsTable = "products"

type productRestRepoImpl struct {
	rest client.SupabaseClient
}

// NewProductRestRepository reads and writes products through PostgREST.
func NewProductRestRepository(rest client.SupabaseClient) ProductRepository {
	return &productRestRepoImpl{
		rest: rest,
	}
}

// productWrite is the insert payload; id and timestamps belong to the database.
type productWrite struct {
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercentage int             `json:"discount_percentage"`
	Rating             float64         `json:"rating"`
	SrcURL             string          `json:"src_url"`
	Gallery            []string        `json:"gallery"`
	Category           string          `json:"category"`
	InStock            bool            `json:"in_stock"`
}

func toProductWrite(p *model.Product) productWrite {
	gallery := p.Gallery
	if gallery == nil {
		gallery = []string{}
	}
	return productWrite{
		Title:              p.Title,
		Description:        p.Description,
		Price:              p.Price,
		DiscountAmount:     p.DiscountAmount,
		DiscountPercentage: p.DiscountPercentage,
		Rating:             p.Rating,
		SrcURL:             p.SrcURL,
		Gallery:            gallery,
		Category:           p.Category,
		InStock:            p.InStock,
	}
}

func (r *productRestRepoImpl) Seed(ctx context.Context) error {
	n, err := r.rest.Count(ctx, productsTable, nil)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	products := seedProducts()
	rows := make([]productWrite, len(products))
	for i := range products {
		rows[i] = toProductWrite(&products[i])
	}
	_, err = r.rest.Insert(ctx, productsTable, rows, nil)
	return err
}

func productQuery(filter model.ProductFilter) url.Values {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", client.Eq(filter.Category))
	}
	if !filter.MinPrice.IsZero() {
		q.Add("price", client.Gte(filter.MinPrice.String()))
	}
	if !filter.MaxPrice.IsZero() {
		q.Add("price", client.Lte(filter.MaxPrice.String()))
	}
	return q
}

func restProductOrder(sort model.ProductSort) string {
	switch sort {
	case model.SortPriceAsc:
		return "price.asc,id.asc"
	case model.SortPriceDesc:
		return "price.desc,id.asc"
	case model.SortRating:
		return "rating.desc,id.asc"
	}
	return "created_at.desc,id.desc"
}

func (r *productRestRepoImpl) List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	q := productQuery(filter)
	q.Set("select", "*")
	q.Set("order", restProductOrder(filter.Sort))
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	body, err := r.rest.Select(ctx, productsTable, q)
	if err != nil {
		return nil, err
	}
	var products []*model.Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (r *productRestRepoImpl) Count(ctx context.Context, filter model.ProductFilter) (int64, error) {
	return r.rest.Count(ctx, productsTable, productQuery(filter))
}

func (r *productRestRepoImpl) FindByID(ctx context.Context, productID int64) (*model.Product, error) {
	body, err := r.rest.SelectSingle(ctx, productsTable, url.Values{
		"select": {"*"},
		"id":     {client.Eq(productID)},
	})
	if client.IsNoRows(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var product model.Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return &product, nil
}

func (r *productRestRepoImpl) Create(ctx context.Context, product *model.Product) error {
	body, err := r.rest.Insert(ctx, productsTable, toProductWrite(product), url.Values{"select": {"*"}})
	if err != nil {
		return err
	}
	created, err := firstRow[model.Product](body)
	if err != nil {
		return fmt.Errorf("decode created product: %w", err)
	}
	if created == nil {
		return fmt.Errorf("insert product: no row returned")
	}
	*product = *created
	return nil
}

func (r *productRestRepoImpl) Update(ctx context.Context, productID int64, patch model.ProductPatch) (*model.Product, error) {
	now := time.Now().UTC()
	patch.UpdatedAt = &now

	body, err := r.rest.Update(ctx, productsTable, patch, url.Values{
		"id":     {client.Eq(productID)},
		"select": {"*"},
	})
	if err != nil {
		return nil, err
	}
	updated, err := firstRow[model.Product](body)
	if err != nil {
		return nil, fmt.Errorf("decode updated product: %w", err)
	}
	if updated == nil {
		return nil, model.ErrNotFound
	}
	return updated, nil
}

func (r *productRestRepoImpl) Delete(ctx context.Context, productID int64) (bool, error) {
	body, err := r.rest.Delete(ctx, productsTable, url.Values{"id": {client.Eq(productID)}})
	if err != nil {
		return false, err
	}
	return rowCount(body) > 0, nil
}

// firstRow decodes the first element of a representation array, or nil
// when the array is empty.
func firstRow[T any](body []byte) (*T, error) {
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func rowCount(body []byte) int {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0
	}
	return len(rows)
}
