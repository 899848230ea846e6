package handler

import (
	"net/http"

	"github.com/scoopworks/storefront/internal/domain/cart"
)

type cartItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type cartResponse struct {
	CustomerID string             `json:"customer_id"`
	Items      []cartItemResponse `json:"items"`
	Total      string             `json:"total"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := c.Items()
	out := make([]cartItemResponse, len(items))
	for i, it := range items {
		out[i] = cartItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Subtotal:  it.Subtotal().StringFixed(2),
		}
	}
	return cartResponse{
		CustomerID: c.CustomerID,
		Items:      out,
		Total:      c.Total().StringFixed(2),
	}
}

// sessionCart returns the customer's live cart, pulling the persisted copy
// into the session on first access.
func (h *Handler) sessionCart(r *http.Request, customerID string) (*cart.Cart, error) {
	c := h.sessions.Get(customerID)
	if !c.Empty() {
		return c, nil
	}
	loaded, err := h.carts.Load(r.Context(), customerID)
	if err != nil {
		return nil, err
	}
	if !loaded.Empty() {
		h.sessions.Put(loaded)
		return loaded, nil
	}
	return c, nil
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, customerID string) {
	c, err := h.sessionCart(r, customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request, customerID string) {
	var req addCartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "product_id is required")
		return
	}

	c, err := h.sessionCart(r, customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.carts.AddItem(r.Context(), c, req.ProductID, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) setCartItemQuantity(w http.ResponseWriter, r *http.Request, customerID string) {
	var req setQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.sessionCart(r, customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.carts.SetItemQuantity(r.Context(), c, r.PathValue("productID"), req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request, customerID string) {
	c, err := h.sessionCart(r, customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.carts.RemoveItem(r.Context(), c, r.PathValue("productID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, customerID string) {
	c, err := h.sessionCart(r, customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.carts.Clear(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type cartWarningResponse struct {
	ProductID string `json:"product_id"`
	Message   string `json:"message"`
}

type validateCartResponse struct {
	Valid    bool                  `json:"valid"`
	Warnings []cartWarningResponse `json:"warnings,omitempty"`
}

func (h *Handler) validateCart(w http.ResponseWriter, r *http.Request, customerID string) {
	c, err := h.sessionCart(r, customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	warnings, err := h.carts.ValidateAvailability(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]cartWarningResponse, len(warnings))
	for i, warn := range warnings {
		out[i] = cartWarningResponse{ProductID: warn.ProductID, Message: warn.Message}
	}
	writeJSON(w, http.StatusOK, validateCartResponse{
		Valid:    len(out) == 0,
		Warnings: out,
	})
}
