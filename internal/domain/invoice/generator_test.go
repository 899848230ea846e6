package invoice

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/scoopworks/storefront/internal/domain/customer"
	"github.com/scoopworks/storefront/internal/domain/order"
)

// --- Mock implementations ---

type stubInvoices struct {
	mu       sync.Mutex
	byOrder  map[string]*Invoice
	byNumber map[string]*Invoice
	saveErr  error
}

func newStubInvoices() *stubInvoices {
	return &stubInvoices{
		byOrder:  make(map[string]*Invoice),
		byNumber: make(map[string]*Invoice),
	}
}

func (s *stubInvoices) Save(_ context.Context, inv *Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.byOrder[inv.OrderID] = inv
	s.byNumber[inv.Number] = inv
	return nil
}

func (s *stubInvoices) FindByOrderID(_ context.Context, orderID string) (*Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (s *stubInvoices) FindByNumber(_ context.Context, number string) (*Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byNumber[number]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (s *stubInvoices) ExistsForOrder(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byOrder[orderID]
	return ok, nil
}

func (s *stubInvoices) ListAll(_ context.Context) ([]Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Invoice, 0, len(s.byOrder))
	for _, inv := range s.byOrder {
		out = append(out, *inv)
	}
	return out, nil
}

type stubOrders struct {
	byID map[string]*order.Order
}

func (s *stubOrders) Create(_ context.Context, _ *order.Order) error { return nil }

func (s *stubOrders) FindByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (s *stubOrders) Update(_ context.Context, _ *order.Order) error { return nil }

func (s *stubOrders) FindByCustomer(_ context.Context, _ string) ([]order.Order, error) {
	return nil, nil
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

type stubSequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (s *stubSequence) Next(_ context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters == nil {
		s.counters = make(map[string]int64)
	}
	key := day.Format("20060102")
	s.counters[key]++
	return s.counters[key], nil
}

// --- Helpers ---

func paidOrder(id string) *order.Order {
	paidAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return &order.Order{
		ID:         id,
		CustomerID: "cust-1",
		Status:     order.StatusPaymentConfirmed,
		Subtotal:   decimal.RequireFromString("102800.00"),
		Tax:        decimal.RequireFromString("19532.00"),
		Shipping:   decimal.RequireFromString("5000.00"),
		Total:      decimal.RequireFromString("127332.00"),
		PaidAt:     &paidAt,
	}
}

func fullCustomer() *customer.Customer {
	return &customer.Customer{
		ID:         "cust-1",
		Name:       "Laura Jimenez",
		Address:    "Calle 93 #11-27",
		City:       "Bogota",
		Region:     "Cundinamarca",
		PostalCode: "110221",
		TaxID:      "900123456-7",
		LegalName:  "Laura Jimenez",
	}
}

func newGenerator(invoices *stubInvoices, orders *stubOrders, cust *customer.Customer) *Generator {
	g := NewGenerator(
		invoices,
		orders,
		&stubCustomers{byID: map[string]*customer.Customer{cust.ID: cust}},
		&stubSequence{},
	)
	g.now = func() time.Time { return time.Date(2026, 9, 1, 15, 30, 0, 0, time.UTC) }
	return g
}

// --- Tests ---

func TestGenerateInvoice(t *testing.T) {
	invoices := newStubInvoices()
	orders := &stubOrders{byID: map[string]*order.Order{"ord-1": paidOrder("ord-1")}}
	g := newGenerator(invoices, orders, fullCustomer())

	inv, err := g.Generate(context.Background(), "ord-1", FiscalData{})
	require.NoError(t, err)

	assert.Equal(t, "INV-20260901-00001", inv.Number)
	assert.Equal(t, "ord-1", inv.OrderID)
	assert.Equal(t, "900123456-7", inv.TaxID)
	assert.Equal(t, "Laura Jimenez", inv.LegalName)
	assert.Equal(t, "Calle 93 #11-27, Bogota, Cundinamarca - 110221", inv.FiscalAddress)
	assert.Equal(t, "102800.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "19532.00", inv.Tax.StringFixed(2))
	assert.Equal(t, "122332.00", inv.Total.StringFixed(2), "invoice total excludes shipping")
}

func TestGenerateSequentialNumbers(t *testing.T) {
	invoices := newStubInvoices()
	orders := &stubOrders{byID: map[string]*order.Order{
		"ord-1": paidOrder("ord-1"),
		"ord-2": paidOrder("ord-2"),
	}}
	g := newGenerator(invoices, orders, fullCustomer())

	first, err := g.Generate(context.Background(), "ord-1", FiscalData{})
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), "ord-2", FiscalData{})
	require.NoError(t, err)

	assert.Equal(t, "INV-20260901-00001", first.Number)
	assert.Equal(t, "INV-20260901-00002", second.Number)
}

func TestGenerateConcurrentNumbersAreDistinct(t *testing.T) {
	const n = 16

	invoices := newStubInvoices()
	orders := &stubOrders{byID: make(map[string]*order.Order, n)}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("ord-%02d", i)
		orders.byID[id] = paidOrder(id)
	}
	g := newGenerator(invoices, orders, fullCustomer())

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("ord-%02d", i)
		eg.Go(func() error {
			_, err := g.Generate(context.Background(), id, FiscalData{})
			return err
		})
	}
	require.NoError(t, eg.Wait())

	all, err := g.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, n)

	seen := make(map[string]bool, n)
	for _, inv := range all {
		seen[inv.Number] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("INV-20260901-%05d", i)], "number %d missing", i)
	}
}

func TestGenerateSurfacesRacingDuplicate(t *testing.T) {
	invoices := newStubInvoices()
	invoices.saveErr = ErrAlreadyExists
	orders := &stubOrders{byID: map[string]*order.Order{"ord-1": paidOrder("ord-1")}}
	g := newGenerator(invoices, orders, fullCustomer())

	_, err := g.Generate(context.Background(), "ord-1", FiscalData{})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGenerateIsOncePerOrder(t *testing.T) {
	invoices := newStubInvoices()
	orders := &stubOrders{byID: map[string]*order.Order{"ord-1": paidOrder("ord-1")}}
	g := newGenerator(invoices, orders, fullCustomer())

	_, err := g.Generate(context.Background(), "ord-1", FiscalData{})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "ord-1", FiscalData{})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGenerateSubmittedFiscalDataWins(t *testing.T) {
	invoices := newStubInvoices()
	orders := &stubOrders{byID: map[string]*order.Order{"ord-1": paidOrder("ord-1")}}
	g := newGenerator(invoices, orders, fullCustomer())

	inv, err := g.Generate(context.Background(), "ord-1", FiscalData{
		TaxID:     "800555333-1",
		LegalName: "Jimenez Consultores SAS",
	})
	require.NoError(t, err)

	assert.Equal(t, "800555333-1", inv.TaxID)
	assert.Equal(t, "Jimenez Consultores SAS", inv.LegalName)
	// Remaining fields still come from the customer's defaults.
	assert.Contains(t, inv.FiscalAddress, "Bogota")
}

func TestGenerateMissingFiscalField(t *testing.T) {
	cust := fullCustomer()
	cust.TaxID = ""
	invoices := newStubInvoices()
	orders := &stubOrders{byID: map[string]*order.Order{"ord-1": paidOrder("ord-1")}}
	g := newGenerator(invoices, orders, cust)

	_, err := g.Generate(context.Background(), "ord-1", FiscalData{})

	var fiscalErr *InvalidFiscalDataError
	require.ErrorAs(t, err, &fiscalErr)
	assert.Equal(t, "tax id", fiscalErr.Field)

	exists, _ := invoices.ExistsForOrder(context.Background(), "ord-1")
	assert.False(t, exists, "no invoice may be saved when fiscal data is invalid")
}

func TestGenerateBlankPaddedFieldFails(t *testing.T) {
	cust := fullCustomer()
	cust.City = ""
	invoices := newStubInvoices()
	orders := &stubOrders{byID: map[string]*order.Order{"ord-1": paidOrder("ord-1")}}
	g := newGenerator(invoices, orders, cust)

	_, err := g.Generate(context.Background(), "ord-1", FiscalData{City: "   "})

	var fiscalErr *InvalidFiscalDataError
	require.ErrorAs(t, err, &fiscalErr)
	assert.Equal(t, "city", fiscalErr.Field)
}

func TestGenerateTaxRecomputedFromSubtotal(t *testing.T) {
	o := paidOrder("ord-1")
	o.Subtotal = decimal.RequireFromString("10.25")
	invoices := newStubInvoices()
	orders := &stubOrders{byID: map[string]*order.Order{"ord-1": o}}
	g := newGenerator(invoices, orders, fullCustomer())

	inv, err := g.Generate(context.Background(), "ord-1", FiscalData{})
	require.NoError(t, err)

	// 10.25 * 19% = 1.9475 -> 1.95
	assert.Equal(t, "1.95", inv.Tax.StringFixed(2))
	assert.Equal(t, "12.20", inv.Total.StringFixed(2))
}

func TestGenerateUnknownOrder(t *testing.T) {
	g := newGenerator(newStubInvoices(), &stubOrders{byID: map[string]*order.Order{}}, fullCustomer())

	_, err := g.Generate(context.Background(), "missing", FiscalData{})
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestInvoiceQueries(t *testing.T) {
	invoices := newStubInvoices()
	orders := &stubOrders{byID: map[string]*order.Order{"ord-1": paidOrder("ord-1")}}
	g := newGenerator(invoices, orders, fullCustomer())

	created, err := g.Generate(context.Background(), "ord-1", FiscalData{})
	require.NoError(t, err)

	byOrder, err := g.ByOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, created.Number, byOrder.Number)

	byNumber, err := g.ByNumber(context.Background(), created.Number)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", byNumber.OrderID)

	all, err := g.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = g.ByOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = g.ByNumber(context.Background(), "INV-19990101-00001")
	assert.ErrorIs(t, err, ErrNotFound)
}
