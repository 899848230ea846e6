// Package handler exposes the storefront over JSON HTTP. Customers are
// identified by the X-Customer-ID header; authentication happens upstream.
package handler

import (
	"net/http"

	"github.com/scoopworks/storefront/internal/domain/cart"
	"github.com/scoopworks/storefront/internal/domain/catalog"
	"github.com/scoopworks/storefront/internal/domain/invoice"
	"github.com/scoopworks/storefront/internal/domain/order"
	"github.com/scoopworks/storefront/internal/domain/payment"
)

// Handler bundles the API endpoints and their service dependencies.
type Handler struct {
	products catalog.Repository
	carts    *cart.Service
	sessions *cart.Store
	checkout *order.CheckoutService
	payments *payment.Processor
	invoices *invoice.Generator
}

// New creates a Handler.
func New(
	products catalog.Repository,
	carts *cart.Service,
	sessions *cart.Store,
	checkout *order.CheckoutService,
	payments *payment.Processor,
	invoices *invoice.Generator,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		sessions: sessions,
		checkout: checkout,
		payments: payments,
		invoices: invoices,
	}
}

// Routes returns the API route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("GET /api/cart", h.withCustomer(h.getCart))
	mux.HandleFunc("POST /api/cart/items", h.withCustomer(h.addCartItem))
	mux.HandleFunc("PUT /api/cart/items/{productID}", h.withCustomer(h.setCartItemQuantity))
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.withCustomer(h.removeCartItem))
	mux.HandleFunc("DELETE /api/cart", h.withCustomer(h.clearCart))
	mux.HandleFunc("GET /api/cart/validate", h.withCustomer(h.validateCart))

	mux.HandleFunc("POST /api/checkout", h.withCustomer(h.checkoutCart))
	mux.HandleFunc("GET /api/orders", h.withCustomer(h.listOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)

	mux.HandleFunc("POST /api/orders/{id}/payment", h.processPayment)
	mux.HandleFunc("GET /api/orders/{id}/payment", h.getPaymentStatus)

	mux.HandleFunc("POST /api/orders/{id}/invoice", h.generateInvoice)
	mux.HandleFunc("GET /api/orders/{id}/invoice", h.getInvoiceByOrder)
	mux.HandleFunc("GET /api/invoices", h.listInvoices)
	mux.HandleFunc("GET /api/invoices/{number}", h.getInvoiceByNumber)

	return mux
}

// customerHandler is an endpoint that requires a customer identity.
type customerHandler func(w http.ResponseWriter, r *http.Request, customerID string)

func (h *Handler) withCustomer(next customerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := r.Header.Get("X-Customer-ID")
		if customerID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "missing X-Customer-ID header")
			return
		}
		next(w, r, customerID)
	}
}
