package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/model"
)

func newRestClient(t *testing.T, handler http.HandlerFunc) client.SupabaseClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return client.NewSupabaseClient(&config.Supabase{URL: srv.URL, AnonKey: "anon"}, srv.Client())
}

func writeNoRows(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotAcceptable)
	_, _ = w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`))
}

func TestProductRestListBuildsQuery(t *testing.T) {
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/rest/v1/products", r.URL.Path)
		assert.Equal(t, "eq.Summer Dresses", q.Get("category"))
		assert.Equal(t, []string{"gte.10", "lte.99.5"}, q["price"])
		assert.Equal(t, "price.asc,id.asc", q.Get("order"))
		assert.Equal(t, "9", q.Get("limit"))
		assert.Equal(t, "18", q.Get("offset"))
		_, _ = w.Write([]byte(`[{"id":3,"title":"Dress","price":25.5,"gallery":["a.png"],"category":"Summer Dresses","in_stock":true,"created_at":"2024-05-01T10:00:00+00:00"}]`))
	})

	products, err := NewProductRestRepository(rest).List(context.Background(), model.ProductFilter{
		Category: "Summer Dresses",
		MinPrice: dec("10"),
		MaxPrice: dec("99.5"),
		Sort:     model.SortPriceAsc,
		Limit:    9,
		Offset:   18,
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(3), products[0].ID)
	assert.True(t, products[0].Price.Equal(dec("25.5")))
	assert.Equal(t, []string{"a.png"}, products[0].Gallery)
}

func TestProductRestNewestIsDefaultOrder(t *testing.T) {
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "created_at.desc,id.desc", r.URL.Query().Get("order"))
		assert.Empty(t, r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`[]`))
	})

	products, err := NewProductRestRepository(rest).List(context.Background(), model.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductRestFindByIDMiss(t *testing.T) {
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.77", r.URL.Query().Get("id"))
		writeNoRows(w)
	})

	_, err := NewProductRestRepository(rest).FindByID(context.Background(), 77)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProductRestUpdateAndDeleteZeroRows(t *testing.T) {
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			var body map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "New", body["title"])
			assert.Contains(t, body, "updated_at")
			assert.NotContains(t, body, "price")
		}
		_, _ = w.Write([]byte(`[]`))
	})
	repo := NewProductRestRepository(rest)

	title := "New"
	_, err := repo.Update(context.Background(), 5, model.ProductPatch{Title: &title})
	assert.ErrorIs(t, err, model.ErrNotFound)

	ok, err := repo.Delete(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProductRestCreateReturnsRow(t *testing.T) {
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "id")
		assert.Equal(t, []interface{}{}, body["gallery"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":11,"title":"Cap","price":"15.00","gallery":[]}]`))
	})

	p := &model.Product{Title: "Cap", Price: dec("15")}
	require.NoError(t, NewProductRestRepository(rest).Create(context.Background(), p))
	assert.Equal(t, int64(11), p.ID)
}

func TestCategoryRestUpdateReportsZeroRows(t *testing.T) {
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "eq.1" {
			_, _ = w.Write([]byte(`[{"id":1,"name":"Bags","slug":"bags"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	repo := NewCategoryRestRepository(rest)

	ok, err := repo.Update(context.Background(), 1, "Bags", "bags")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Update(context.Background(), 2, "Bags", "bags")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Delete(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderRestCreateAndItemsForeignKey(t *testing.T) {
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/orders":
			var body map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "pending", body["status"])
			assert.NotContains(t, body, "id")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`[{"id":"7f0c","user_id":"u1","total_amount":20,"status":"pending","shipping_address":{"fullName":"Ann Lee"}}]`))
		case "/rest/v1/order_items":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"code":"23503","message":"insert or update on table \"order_items\" violates foreign key constraint \"order_items_product_id_fkey\""}`))
		}
	})
	repo := NewOrderRestRepository(rest)

	order := &model.Order{UserID: "u1", TotalAmount: dec("20"), Status: model.OrderStatusPending, ShippingAddress: testAddress()}
	require.NoError(t, repo.Create(context.Background(), order))
	assert.Equal(t, "7f0c", order.ID)

	err := repo.CreateOrderItems(context.Background(), []*model.OrderItem{{OrderID: order.ID, ProductID: 99, Quantity: 1, PriceAtPurchase: dec("20")}})
	assert.ErrorIs(t, err, model.ErrProductMissing)
}

func TestOrderRestListByUserMapsEmbeddedProduct(t *testing.T) {
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "eq.u1", q.Get("user_id"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, orderSelect, q.Get("select"))
		_, _ = w.Write([]byte(`[{
			"id":"o2","user_id":"u1","total_amount":"40.00","status":"shipped",
			"shipping_address":{"fullName":"Ann Lee","city":"Springfield"},
			"billing_address":null,
			"created_at":"2024-05-02T10:00:00+00:00",
			"order_items":[{"id":"i1","order_id":"o2","product_id":3,"quantity":2,"price_at_purchase":20,
				"products":{"id":3,"title":"Dress","price":25,"src_url":"/d.png","category":"dresses"}}]
		}]`))
	})

	orders, err := NewOrderRestRepository(rest).ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, model.OrderStatusShipped, o.Status)
	assert.Nil(t, o.BillingAddress)
	assert.Equal(t, "Springfield", o.ShippingAddress.City)
	require.Len(t, o.OrderItems, 1)
	require.NotNil(t, o.OrderItems[0].Product)
	assert.Equal(t, "Dress", o.OrderItems[0].Product.Title)
	assert.True(t, o.OrderItems[0].PriceAtPurchase.Equal(dec("20")))
}

func TestOrderRestFindByIDHiddenByRLS(t *testing.T) {
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeNoRows(w)
	})

	_, err := NewOrderRestRepository(rest).FindByID(context.Background(), "someone-elses")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestOrderRestListOrphans(t *testing.T) {
	cutoff := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lt.2024-05-01T12:00:00Z", r.URL.Query().Get("created_at"))
		_, _ = w.Write([]byte(`[
			{"id":"a","status":"pending","order_items":[]},
			{"id":"b","status":"failed","order_items":[{"id":"x"}]},
			{"id":"c","status":"pending","order_items":[{"id":"y"}]}
		]`))
	})

	ids, err := NewOrderRestRepository(rest).ListOrphans(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestProfileRestFetchCreateUpdate(t *testing.T) {
	var inserted map[string]interface{}
	rest := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("id") == "eq.missing" {
				writeNoRows(w)
				return
			}
			_, _ = w.Write([]byte(`{"id":"u1","email":"ann@shop.com","is_admin":true}`))
		case http.MethodPost:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`[]`))
		case http.MethodPatch:
			var body map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "", body["avatar_url"])
			assert.NotContains(t, body, "full_name")
			assert.Contains(t, body, "updated_at")
			_, _ = w.Write([]byte(`[{"id":"u1"}]`))
		}
	})
	repo := NewProfileRestRepository(rest)
	ctx := context.Background()

	p, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, repo.Create(ctx, &model.UserProfile{ID: "u2", Email: "b@shop.com", CreatedAt: time.Now()}))
	assert.Equal(t, "u2", inserted["id"])
	assert.NotContains(t, inserted, "is_admin")

	empty := ""
	require.NoError(t, repo.Update(ctx, "u1", model.ProfilePatch{AvatarURL: &empty}, time.Now()))
}
