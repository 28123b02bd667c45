package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"
	"storefront/internal/session"
)

type testValidator struct{ v *validator.Validate }

func (tv testValidator) Validate(i interface{}) error { return tv.v.Struct(i) }

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = testValidator{v: validator.New()}
	return e
}

func newContext(e *echo.Echo, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type fakeProducts struct {
	items   []*model.Product
	filters []model.ProductFilter
	created []model.ProductInput
	patches map[int64]model.ProductPatch
}

func (f *fakeProducts) ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	f.filters = append(f.filters, filter)
	end := len(f.items)
	start := filter.Offset
	if start > end {
		start = end
	}
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return f.items[start:end], nil
}

func (f *fakeProducts) CountProducts(ctx context.Context, filter model.ProductFilter) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeProducts) find(id int64) *model.Product {
	for _, p := range f.items {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *fakeProducts) GetProduct(ctx context.Context, productID int64) (*model.Product, error) {
	return f.find(productID), nil
}

func (f *fakeProducts) GetFullProduct(ctx context.Context, productID int64) (*model.Product, error) {
	return f.find(productID), nil
}

func (f *fakeProducts) CreateProduct(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	f.created = append(f.created, in)
	p := in.Product()
	p.ID = int64(100 + len(f.created))
	return p, nil
}

func (f *fakeProducts) UpdateProduct(ctx context.Context, productID int64, patch model.ProductPatch) (*model.Product, error) {
	p := f.find(productID)
	if p == nil {
		return nil, nil
	}
	if f.patches == nil {
		f.patches = map[int64]model.ProductPatch{}
	}
	f.patches[productID] = patch
	patch.Apply(p)
	return p, nil
}

func (f *fakeProducts) DeleteProduct(ctx context.Context, productID int64) (bool, error) {
	return f.find(productID) != nil, nil
}

type fakeCategories struct {
	rows []*model.Category
}

func (f *fakeCategories) GetCategories(ctx context.Context) ([]*model.Category, error) {
	return f.rows, nil
}

func (f *fakeCategories) GetCategory(ctx context.Context, categoryID int64) (*model.Category, error) {
	for _, c := range f.rows {
		if c.ID == categoryID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) CreateCategory(ctx context.Context, name, slug string) (*model.Category, error) {
	if name == "" {
		return nil, model.NewValidationError("name", "Name is required")
	}
	if slug == "" {
		slug = service.Slugify(name)
	}
	c := &model.Category{ID: int64(len(f.rows) + 1), Name: name, Slug: slug}
	f.rows = append(f.rows, c)
	return c, nil
}

func (f *fakeCategories) UpdateCategory(ctx context.Context, categoryID int64, name, slug string) (bool, error) {
	c, _ := f.GetCategory(ctx, categoryID)
	return c != nil, nil
}

func (f *fakeCategories) DeleteCategory(ctx context.Context, categoryID int64) (bool, error) {
	c, _ := f.GetCategory(ctx, categoryID)
	return c != nil, nil
}

type fakeOrders struct {
	placed  []service.PlaceOrderInput
	placeFn func(service.PlaceOrderInput) (*service.PlaceOrderResult, error)
	lookup  model.OrderLookup
	history []*model.Order
	viewer  string
}

func (f *fakeOrders) PlaceOrder(ctx context.Context, in service.PlaceOrderInput) (*service.PlaceOrderResult, error) {
	f.placed = append(f.placed, in)
	if f.placeFn != nil {
		return f.placeFn(in)
	}
	return &service.PlaceOrderResult{OrderID: "order-1", RedirectURL: service.ConfirmationURL("order-1")}, nil
}

func (f *fakeOrders) GetOrdersByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	f.viewer = userID
	return f.history, nil
}

func (f *fakeOrders) GetOrderByID(ctx context.Context, viewerID, orderID string) (*model.Order, error) {
	if f.lookup.Outcome == model.OrderFound {
		return f.lookup.Order, nil
	}
	return nil, nil
}

func (f *fakeOrders) LookupOrder(ctx context.Context, viewerID, orderID string) (model.OrderLookup, error) {
	f.viewer = viewerID
	return f.lookup, nil
}

func (f *fakeOrders) SweepOrphans(ctx context.Context, age time.Duration) (int, error) {
	return 0, nil
}

// fakeSession stands in for a browser's session store.
type fakeSession struct {
	state      session.State
	signInErr  error
	signOutErr error
	patches    []model.ProfilePatch
	signUps    []string
}

var _ middleware.UserSession = (*fakeSession)(nil)

func (f *fakeSession) GetState() session.State { return f.state }

func (f *fakeSession) Subscribe(fn func(session.State)) func() { return func() {} }

func (f *fakeSession) SignIn(ctx context.Context, email, password string) error {
	if f.signInErr != nil {
		return f.signInErr
	}
	f.state = session.State{
		User:    &model.UserProfile{ID: "user-1", Email: email},
		Session: &model.Session{AccessToken: "token"},
	}
	return nil
}

func (f *fakeSession) SignUp(ctx context.Context, email, password, fullName string) error {
	f.signUps = append(f.signUps, email)
	return nil
}

func (f *fakeSession) SignOut(ctx context.Context) error {
	f.state = session.State{}
	return f.signOutErr
}

func (f *fakeSession) UpdateProfile(ctx context.Context, patch model.ProfilePatch) error {
	f.patches = append(f.patches, patch)
	if f.state.User != nil {
		u := *f.state.User
		patch.Apply(&u)
		f.state.User = &u
	}
	return nil
}

func (f *fakeSession) Session(ctx context.Context) *model.Session { return f.state.Session }

func (f *fakeSession) WaitForProfile(ctx context.Context, timeout time.Duration) (*model.UserProfile, error) {
	if f.state.User == nil {
		return nil, model.ErrNotAuthenticated
	}
	return f.state.User, nil
}

// signedIn attaches s to c the way the session middlewares do.
func signedIn(c echo.Context, s *fakeSession) {
	middleware.SetUserSession(c, s)
	if s.state.User != nil {
		c.Set("user", s.state.User)
		c.Set("user_id", s.state.User.ID)
	}
}
