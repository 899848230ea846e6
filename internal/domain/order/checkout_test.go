package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/scoopworks/storefront/internal/domain/cart"
	"github.com/scoopworks/storefront/internal/domain/catalog"
	"github.com/scoopworks/storefront/internal/domain/customer"
)

// --- Mock implementations ---

// stubCatalog mimics the conditional-decrement contract of the real
// repository: the decrement applies only when the version still matches and
// stock covers the quantity, and every stock mutation bumps the version.
type stubCatalog struct {
	mu   sync.Mutex
	byID map[string]*catalog.Product

	// onDecrement, when set, runs under the lock before each decrement is
	// applied. Tests use it to interleave a concurrent write mid-checkout.
	onDecrement func(byID map[string]*catalog.Product, id string)
}

func newStubCatalog(products ...catalog.Product) *stubCatalog {
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &stubCatalog{byID: byID}
}

func (s *stubCatalog) FindByID(_ context.Context, id string) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubCatalog) FindActive(_ context.Context) ([]catalog.Product, error) { return nil, nil }

func (s *stubCatalog) FindByNameContains(_ context.Context, _ string) ([]catalog.Product, error) {
	return nil, nil
}

func (s *stubCatalog) Save(_ context.Context, _ *catalog.Product) error { return nil }

func (s *stubCatalog) DecrementStock(_ context.Context, id string, qty int, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onDecrement != nil {
		s.onDecrement(s.byID, id)
	}
	p, ok := s.byID[id]
	if !ok {
		return catalog.ErrNotFound
	}
	if p.Version != version || p.Stock < qty {
		return catalog.ErrVersionConflict
	}
	p.Stock -= qty
	p.Version++
	return nil
}

func (s *stubCatalog) IncrementStock(_ context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Stock += qty
	p.Version++
	return nil
}

func (s *stubCatalog) stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id].Stock
}

type stubCustomers struct {
	byID map[string]*customer.Customer
}

func (s *stubCustomers) FindByID(_ context.Context, id string) (*customer.Customer, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

type stubOrders struct {
	mu        sync.Mutex
	created   []*Order
	createErr error
}

func (s *stubOrders) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, o)
	return nil
}

func (s *stubOrders) FindByID(_ context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.created {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubOrders) Update(_ context.Context, _ *Order) error { return nil }

func (s *stubOrders) FindByCustomer(_ context.Context, customerID string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.created {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCustomer() *customer.Customer {
	return &customer.Customer{
		ID:      "cust-1",
		Name:    "Laura Jimenez",
		Phone:   "+57 301 555 0147",
		Address: "Calle 93 #11-27",
	}
}

func newCheckout(cat *stubCatalog, orders *stubOrders) *CheckoutService {
	customers := &stubCustomers{byID: map[string]*customer.Customer{"cust-1": testCustomer()}}
	svc := NewCheckoutService(cat, customers, orders, dec("5000"))
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func cartWith(items ...cart.Item) *cart.Cart {
	return cart.Restore("cust-1", items)
}

// --- Tests ---

func TestCheckoutComputesTotals(t *testing.T) {
	cat := newStubCatalog(
		catalog.Product{ID: "p1", Name: "Beans", Price: dec("18900"), Stock: 10, Active: true},
		catalog.Product{ID: "p2", Name: "Kit", Price: dec("65000"), Stock: 5, Active: true},
	)
	orders := &stubOrders{}
	svc := newCheckout(cat, orders)

	c := cartWith(
		cart.Item{ProductID: "p1", Quantity: 2, UnitPrice: dec("18900")},
		cart.Item{ProductID: "p2", Quantity: 1, UnitPrice: dec("65000")},
	)

	o, err := svc.Checkout(context.Background(), "cust-1", c)
	require.NoError(t, err)

	assert.Equal(t, StatusPendingPayment, o.Status)
	assert.Equal(t, "102800.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "19532.00", o.Tax.StringFixed(2))
	assert.Equal(t, "5000.00", o.Shipping.StringFixed(2))
	assert.Equal(t, "0.00", o.Discount.StringFixed(2))
	assert.Equal(t, "127332.00", o.Total.StringFixed(2))
	assert.Equal(t, "Calle 93 #11-27", o.ShippingAddress)
	assert.Nil(t, o.PaidAt)

	require.Len(t, o.Items, 2)
	assert.Equal(t, "Beans", o.Items[0].Name)

	assert.Equal(t, 8, cat.stock("p1"))
	assert.Equal(t, 4, cat.stock("p2"))
	assert.True(t, c.Empty(), "cart is cleared after successful checkout")
}

func TestCheckoutTaxRoundsHalfUp(t *testing.T) {
	cat := newStubCatalog(
		catalog.Product{ID: "p1", Name: "Beans", Price: dec("10.25"), Stock: 10, Active: true},
	)
	svc := newCheckout(cat, &stubOrders{})

	// 10.25 * 19% = 1.9475 -> 1.95
	o, err := svc.Checkout(context.Background(), "cust-1",
		cartWith(cart.Item{ProductID: "p1", Quantity: 1, UnitPrice: dec("10.25")}))
	require.NoError(t, err)
	assert.Equal(t, "1.95", o.Tax.StringFixed(2))
}

func TestCheckoutUsesFrozenCartPrices(t *testing.T) {
	cat := newStubCatalog(
		catalog.Product{ID: "p1", Name: "Beans", Price: dec("150"), Stock: 10, Active: true},
	)
	svc := newCheckout(cat, &stubOrders{})

	// Cart froze the price at 100 before the catalog moved to 150.
	o, err := svc.Checkout(context.Background(), "cust-1",
		cartWith(cart.Item{ProductID: "p1", Quantity: 2, UnitPrice: dec("100")}))
	require.NoError(t, err)

	assert.Equal(t, "200.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", o.Items[0].UnitPrice.StringFixed(2))
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := newCheckout(newStubCatalog(), &stubOrders{})

	_, err := svc.Checkout(context.Background(), "cust-1", cart.New("cust-1"))
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutUnknownCustomer(t *testing.T) {
	cat := newStubCatalog(
		catalog.Product{ID: "p1", Name: "Beans", Price: dec("100"), Stock: 10, Active: true},
	)
	svc := newCheckout(cat, &stubOrders{})

	_, err := svc.Checkout(context.Background(), "cust-404",
		cartWith(cart.Item{ProductID: "p1", Quantity: 1, UnitPrice: dec("100")}))
	assert.ErrorIs(t, err, customer.ErrNotFound)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	cat := newStubCatalog(
		catalog.Product{ID: "p1", Name: "Beans", Price: dec("100"), Stock: 1, Active: true},
	)
	orders := &stubOrders{}
	svc := newCheckout(cat, orders)

	_, err := svc.Checkout(context.Background(), "cust-1",
		cartWith(cart.Item{ProductID: "p1", Quantity: 2, UnitPrice: dec("100")}))

	var stockErr *cart.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Empty(t, orders.created)
	assert.Equal(t, 1, cat.stock("p1"), "validation failure must not touch stock")
}

func TestCheckoutRollsBackOnPartialReservation(t *testing.T) {
	cat := newStubCatalog(
		catalog.Product{ID: "p1", Name: "Beans", Price: dec("100"), Stock: 5, Active: true},
		catalog.Product{ID: "p2", Name: "Kit", Price: dec("200"), Stock: 5, Active: true, Version: 7},
	)
	orders := &stubOrders{}
	svc := newCheckout(cat, orders)

	c := cartWith(
		cart.Item{ProductID: "p1", Quantity: 2, UnitPrice: dec("100")},
		cart.Item{ProductID: "p2", Quantity: 1, UnitPrice: dec("200")},
	)

	// A concurrent writer bumps p2's version while p1 is being reserved, so
	// the reserve pass conflicts on p2 after p1 was already decremented.
	interleaved := false
	cat.onDecrement = func(byID map[string]*catalog.Product, id string) {
		if id == "p1" && !interleaved {
			interleaved = true
			byID["p2"].Version++
		}
	}

	_, err := svc.Checkout(context.Background(), "cust-1", c)
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, interleaved)

	assert.Empty(t, orders.created)
	assert.Equal(t, 5, cat.stock("p1"), "applied decrement for p1 must be rolled back")
	assert.False(t, c.Empty(), "cart survives a failed checkout")
}

func TestCheckoutRollsBackWhenOrderWriteFails(t *testing.T) {
	cat := newStubCatalog(
		catalog.Product{ID: "p1", Name: "Beans", Price: dec("100"), Stock: 5, Active: true},
	)
	orders := &stubOrders{createErr: errors.New("disk full")}
	svc := newCheckout(cat, orders)

	_, err := svc.Checkout(context.Background(), "cust-1",
		cartWith(cart.Item{ProductID: "p1", Quantity: 2, UnitPrice: dec("100")}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 5, cat.stock("p1"))
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	const (
		initialStock = 4
		buyers       = 8
	)
	cat := newStubCatalog(
		catalog.Product{ID: "p1", Name: "Beans", Price: dec("100"), Stock: initialStock, Active: true},
	)
	orders := &stubOrders{}
	svc := newCheckout(cat, orders)

	var (
		mu        sync.Mutex
		successes int
		conflicts int
	)

	var g errgroup.Group
	for i := 0; i < buyers; i++ {
		g.Go(func() error {
			c := cartWith(cart.Item{ProductID: "p1", Quantity: 1, UnitPrice: dec("100")})
			_, err := svc.Checkout(context.Background(), "cust-1", c)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				var stockErr *cart.InsufficientStockError
				if !errors.As(err, &stockErr) {
					return err
				}
				conflicts++
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, buyers, successes+conflicts)
	assert.GreaterOrEqual(t, successes, 1)
	assert.LessOrEqual(t, successes, initialStock, "never sell more than the stock")
	assert.Equal(t, initialStock-successes, cat.stock("p1"))
	assert.Len(t, orders.created, successes)
}

func TestOrderAndHistoryQueries(t *testing.T) {
	cat := newStubCatalog(
		catalog.Product{ID: "p1", Name: "Beans", Price: dec("100"), Stock: 10, Active: true},
	)
	orders := &stubOrders{}
	svc := newCheckout(cat, orders)

	created, err := svc.Checkout(context.Background(), "cust-1",
		cartWith(cart.Item{ProductID: "p1", Quantity: 1, UnitPrice: dec("100")}))
	require.NoError(t, err)

	got, err := svc.Order(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Order(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := svc.History(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestConfirmPaymentTransition(t *testing.T) {
	o := &Order{Status: StatusPendingPayment}
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, o.ConfirmPayment(MethodCashOnDelivery, at))
	assert.Equal(t, StatusPaymentConfirmed, o.Status)
	assert.Equal(t, MethodCashOnDelivery, o.PaymentMethod)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, at, *o.PaidAt)

	assert.ErrorIs(t, o.ConfirmPayment(MethodCreditCard, at), ErrAlreadyPaid)
	assert.Equal(t, MethodCashOnDelivery, o.PaymentMethod, "failed confirm must not overwrite the method")
}
