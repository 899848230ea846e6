package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/scoopworks/storefront/internal/domain/order"
)

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	CustomerID      string              `json:"customer_id"`
	Status          string              `json:"status"`
	PaymentMethod   string              `json:"payment_method,omitempty"`
	Items           []orderItemResponse `json:"items"`
	Subtotal        string              `json:"subtotal"`
	Tax             string              `json:"tax"`
	Shipping        string              `json:"shipping"`
	Discount        string              `json:"discount"`
	Total           string              `json:"total"`
	ShippingAddress string              `json:"shipping_address"`
	ContactPhone    string              `json:"contact_phone,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		}
	}
	return orderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		Items:           items,
		Subtotal:        o.Subtotal.StringFixed(2),
		Tax:             o.Tax.StringFixed(2),
		Shipping:        o.Shipping.StringFixed(2),
		Discount:        o.Discount.StringFixed(2),
		Total:           o.Total.StringFixed(2),
		ShippingAddress: o.ShippingAddress,
		ContactPhone:    o.ContactPhone,
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
	}
}

// checkoutCart turns the customer's session cart into a pending order. The
// cleared cart is persisted afterwards so the next session starts empty; a
// failure there only gets logged since the order already exists.
func (h *Handler) checkoutCart(w http.ResponseWriter, r *http.Request, customerID string) {
	c, err := h.sessionCart(r, customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.checkout.Checkout(r.Context(), customerID, c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.carts.Persist(r.Context(), c); err != nil {
		zctx.From(r.Context()).Warn("persist cleared cart",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.checkout.Order(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, customerID string) {
	history, err := h.checkout.History(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]orderResponse, len(history))
	for i := range history {
		out[i] = toOrderResponse(&history[i])
	}
	writeJSON(w, http.StatusOK, out)
}
