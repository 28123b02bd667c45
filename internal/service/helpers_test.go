package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := client.InitDB(config.DriverSqlite, dsn, logger.Discard())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, client.Migrate(db))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testAddress() model.Address {
	return model.Address{
		FullName:   "Ann Lee",
		Street:     "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

// fakeOrderRepo records calls and fails on demand.
type fakeOrderRepo struct {
	mu sync.Mutex

	createErr     error
	itemsErr      error
	deleteErr     error
	markFailedErr error

	orders     map[string]*model.Order
	items      []*model.OrderItem
	deleted    []string
	markedFail []string
	orphans    []string
	cutoff     time.Time
	calls      []string
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*model.Order{}}
}

func (r *fakeOrderRepo) record(call string) {
	r.calls = append(r.calls, call)
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("create")
	if r.createErr != nil {
		return r.createErr
	}
	order.ID = fmt.Sprintf("order-%d", len(r.orders)+1)
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) CreateOrderItems(ctx context.Context, items []*model.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("items")
	if r.itemsErr != nil {
		return r.itemsErr
	}
	r.items = append(r.items, items...)
	return nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("delete")
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.orders[orderID]; !ok {
		return model.ErrNotFound
	}
	delete(r.orders, orderID)
	r.deleted = append(r.deleted, orderID)
	return nil
}

func (r *fakeOrderRepo) MarkFailed(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("mark_failed")
	if r.markFailedErr != nil {
		return r.markFailedErr
	}
	r.orders[orderID].Status = model.OrderStatusFailed
	r.markedFail = append(r.markedFail, orderID)
	return nil
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) ListOrphans(ctx context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoff = cutoff
	return r.orphans, nil
}
