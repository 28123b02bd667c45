package service

import (
	"context"
	"math"
	"net/url"
	"strconv"

	"storefront/internal/model"
)

const (
	pageWindowSize = 5
	maxPage        = math.MaxInt32
)

// ListingQuery is the shop route's query string after parsing.
type ListingQuery struct {
	Page     int
	Sort     model.ProductSort
	Category string
	// RawSort is the sort parameter as given; links echo it back.
	RawSort string
}

// ParseListingQuery falls back to page 1 when page does not parse and to
// newest for unknown sorts. Pages below 1 are kept as given. Pages are capped
// at math.MaxInt32.
func ParseListingQuery(page, sort, category string) ListingQuery {
	p, err := strconv.Atoi(page)
	if err != nil || p == 0 {
		p = 1
	}
	if p > maxPage {
		p = maxPage
	}
	return ListingQuery{
		Page:     p,
		Sort:     model.ParseProductSort(sort),
		Category: category,
		RawSort:  sort,
	}
}

// Offset never goes below zero and stays within math.MaxInt32.
func (q ListingQuery) Offset(pageSize int) int {
	if q.Page < 1 || pageSize <= 0 {
		return 0
	}
	page := q.Page
	if limit := maxPage/pageSize + 1; page > limit {
		page = limit
	}
	return (page - 1) * pageSize
}

// PageURL builds a shop link that keeps the category and sort.
func (q ListingQuery) PageURL(page int) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	link := "/shop?" + v.Encode()
	if q.Category != "" {
		link += "&category=" + url.QueryEscape(q.Category)
	}
	if q.RawSort != "" {
		link += "&sort=" + url.QueryEscape(q.RawSort)
	}
	return link
}

type PageLink struct {
	Page    int    `json:"page"`
	URL     string `json:"url"`
	Current bool   `json:"current"`
}

// Pagination is the link set rendered under a listing.
type Pagination struct {
	Pages       []PageLink `json:"pages"`
	Ellipsis    bool       `json:"ellipsis"`
	Last        *PageLink  `json:"last,omitempty"`
	PrevURL     string     `json:"prev_url,omitempty"`
	NextURL     string     `json:"next_url,omitempty"`
	ShowControl bool       `json:"show"`
}

type Listing struct {
	Title      string            `json:"title"`
	Products   []*model.Product  `json:"products"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
	From       int64             `json:"from"`
	To         int64             `json:"to"`
	Sort       model.ProductSort `json:"sort"`
	Category   string            `json:"category,omitempty"`
	Pagination Pagination        `json:"pagination"`
}

// TotalPages is the ceiling of total over pageSize.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// PageWindow picks at most five page numbers around page.
func PageWindow(page, totalPages int) []int {
	if totalPages <= 0 {
		return nil
	}

	var start, end int
	switch {
	case totalPages <= pageWindowSize:
		start, end = 1, totalPages
	case page <= 3:
		start, end = 1, pageWindowSize
	case page >= totalPages-2:
		start, end = totalPages-pageWindowSize+1, totalPages
	default:
		start, end = page-2, page+2
	}

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

func BuildPagination(q ListingQuery, totalPages int) Pagination {
	p := Pagination{ShowControl: totalPages > 1}
	for _, n := range PageWindow(q.Page, totalPages) {
		p.Pages = append(p.Pages, PageLink{Page: n, URL: q.PageURL(n), Current: n == q.Page})
	}
	if totalPages > pageWindowSize && q.Page < totalPages-2 {
		p.Ellipsis = true
		p.Last = &PageLink{Page: totalPages, URL: q.PageURL(totalPages), Current: false}
	}
	if q.Page > 1 {
		p.PrevURL = q.PageURL(q.Page - 1)
	}
	if q.Page < totalPages {
		p.NextURL = q.PageURL(q.Page + 1)
	}
	return p
}

// BuildListing runs the page query and the count query for one shop page.
// The count only filters on category.
func BuildListing(ctx context.Context, products ProductService, q ListingQuery, pageSize int) (*Listing, error) {
	offset := q.Offset(pageSize)

	items, err := products.ListProducts(ctx, model.ProductFilter{
		Category: q.Category,
		Sort:     q.Sort,
		Limit:    pageSize,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}
	total, err := products.CountProducts(ctx, model.ProductFilter{Category: q.Category})
	if err != nil {
		return nil, err
	}

	totalPages := TotalPages(total, pageSize)
	listing := &Listing{
		Title:      "All Products",
		Products:   items,
		Page:       q.Page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
		Sort:       q.Sort,
		Category:   q.Category,
		Pagination: BuildPagination(q, totalPages),
	}
	if q.Category != "" {
		listing.Title = q.Category
	}
	if total > 0 {
		listing.From = int64(offset) + 1
		listing.To = int64(offset + pageSize)
		if listing.To > total {
			listing.To = total
		}
	}
	return listing, nil
}
