package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"storefront/internal/client"
	"storefront/internal/model"
)

const categoriesTable = "categories"

type categoryRestRepoImpl struct {
	rest client.SupabaseClient
}

func NewCategoryRestRepository(rest client.SupabaseClient) CategoryRepository {
	return &categoryRestRepoImpl{
		rest: rest,
	}
}

type categoryWrite struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (r *categoryRestRepoImpl) Seed(ctx context.Context) error {
	categories := seedCategories()
	rows := make([]categoryWrite, len(categories))
	for i, c := range categories {
		rows[i] = categoryWrite{Name: c.Name, Slug: c.Slug}
	}
	_, err := r.rest.Insert(ctx, categoriesTable, rows, nil)
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.Code == client.CodeUniqueViolation {
		return nil
	}
	return err
}

func (r *categoryRestRepoImpl) List(ctx context.Context) ([]*model.Category, error) {
	body, err := r.rest.Select(ctx, categoriesTable, url.Values{
		"select": {"*"},
		"order":  {"name.asc"},
	})
	if err != nil {
		return nil, err
	}
	var categories []*model.Category
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRestRepoImpl) FindByID(ctx context.Context, categoryID int64) (*model.Category, error) {
	body, err := r.rest.SelectSingle(ctx, categoriesTable, url.Values{
		"select": {"*"},
		"id":     {client.Eq(categoryID)},
	})
	if client.IsNoRows(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var category model.Category
	if err := json.Unmarshal(body, &category); err != nil {
		return nil, fmt.Errorf("decode category: %w", err)
	}
	return &category, nil
}

func (r *categoryRestRepoImpl) Create(ctx context.Context, category *model.Category) error {
	body, err := r.rest.Insert(ctx, categoriesTable, categoryWrite{Name: category.Name, Slug: category.Slug}, url.Values{"select": {"*"}})
	if err != nil {
		return err
	}
	created, err := firstRow[model.Category](body)
	if err != nil {
		return fmt.Errorf("decode created category: %w", err)
	}
	if created == nil {
		return fmt.Errorf("insert category: no row returned")
	}
	*category = *created
	return nil
}

func (r *categoryRestRepoImpl) Update(ctx context.Context, categoryID int64, name, slug string) (bool, error) {
	body, err := r.rest.Update(ctx, categoriesTable, categoryWrite{Name: name, Slug: slug}, url.Values{
		"id": {client.Eq(categoryID)},
	})
	if err != nil {
		return false, err
	}
	return rowCount(body) > 0, nil
}

func (r *categoryRestRepoImpl) Delete(ctx context.Context, categoryID int64) (bool, error) {
	body, err := r.rest.Delete(ctx, categoriesTable, url.Values{"id": {client.Eq(categoryID)}})
	if err != nil {
		return false, err
	}
	return rowCount(body) > 0, nil
}
